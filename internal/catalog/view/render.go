package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"net/url"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/lis/internal/catalog"
)

//go:embed templates/*.html
var templateFS embed.FS

const catalogPath = "/catalog"

// Renderer turns catalog snapshots into HTML.
type Renderer struct {
	catalog *template.Template
	login   *template.Template
}

type catalogData struct {
	Snap  catalog.Snapshot
	Query url.Values
}

type LoginData struct {
	Error string
	Next  string
}

func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"link":     link,
		"barWidth": barWidth,
		"money":    func(d decimal.Decimal) string { return d.StringFixed(2) },
		"percent":  func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
	}

	catalogTmpl, err := template.New("catalog.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/catalog.html")
	if err != nil {
		return nil, err
	}
	loginTmpl, err := template.New("login.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/login.html")
	if err != nil {
		return nil, err
	}

	return &Renderer{catalog: catalogTmpl, login: loginTmpl}, nil
}

// Render writes the catalog page. query is the current page query string; links keep it.
func (r *Renderer) Render(w io.Writer, snap catalog.Snapshot, query url.Values) error {
	if query == nil {
		query = url.Values{}
	}
	return r.catalog.ExecuteTemplate(w, "catalog.html", catalogData{Snap: snap, Query: query})
}

func (r *Renderer) RenderLogin(w io.Writer, data LoginData) error {
	return r.login.ExecuteTemplate(w, "login.html", data)
}

// link copies query and sets (or with an empty value, removes) the given key/value pairs.
func link(query url.Values, pairs ...string) string {
	next := url.Values{}
	for key, values := range query {
		next[key] = append([]string(nil), values...)
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			next.Del(pairs[i])
			continue
		}
		next.Set(pairs[i], pairs[i+1])
	}
	if encoded := next.Encode(); encoded != "" {
		return catalogPath + "?" + encoded
	}
	return catalogPath
}

// barWidth caps only the drawn bar; the progress value itself is not clamped.
func barWidth(progress float64) template.CSS {
	width := math.Max(0, math.Min(progress*100, 100))
	return template.CSS(fmt.Sprintf("width: %.0f%%", width))
}
