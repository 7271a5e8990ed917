package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/lis/internal/authorization"
	"github.com/smallbiznis/lis/internal/catalog"
	"github.com/smallbiznis/lis/internal/orgcontext"
	"go.uber.org/zap"
)

// CatalogPage renders the catalog server-side. The query string carries the filter state,
// so every link on the page is a plain GET.
func (s *Server) CatalogPage(c *gin.Context) {
	ctx := c.Request.Context()
	if _, ok := orgcontext.OrgIDFromContext(ctx); ok {
		if err := s.authorizeOrgActionWithContext(c, authorization.ObjectCatalog, authorization.ActionView); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	page := catalog.NewPage(s.catalogCfg)

	if err := page.Load(ctx, s.catalogFetcherFor(c)); err != nil {
		if errors.Is(err, catalog.ErrUnauthorized) {
			redirectToLogin(c)
			return
		}
		s.log.Warn("catalog load failed", zap.Error(err))
	}

	applyCatalogQuery(page, c)

	snap := page.Snapshot()
	orgID, _ := orgcontext.OrgIDFromContext(ctx)
	s.obsMetrics.RecordCatalogRender(ctx, orgID.String(), string(snap.Mode))

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, snap, c.Request.URL.Query()); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// catalogFetcherFor picks the product source for one page request. An org that could not be
// resolved becomes a fetch failure so a signed-in user sees the notice, not the login page.
func (s *Server) catalogFetcherFor(c *gin.Context) catalog.Fetcher {
	if orgErr := pageOrgError(c); orgErr != nil {
		return catalog.FetcherFunc(func(context.Context) ([]catalog.Product, error) {
			return nil, fmt.Errorf("%w: resolve org: %w", catalog.ErrFetchFailed, orgErr)
		})
	}
	if s.cfg.CatalogAPIBaseURL == "" {
		return s.catalogFetcher
	}

	token, _ := s.sessions.ReadToken(c)
	opts := []catalog.HTTPFetcherOption{catalog.WithCookieName(s.sessions.CookieName())}
	if orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context()); ok {
		opts = append(opts, catalog.WithHeader(HeaderOrg, orgID.String()))
	}
	return catalog.NewHTTPFetcher(s.cfg.CatalogAPIBaseURL, token, opts...)
}

func applyCatalogQuery(page *catalog.Page, c *gin.Context) {
	if term := c.Query("q"); term != "" {
		page.SetTerm(term)
	}
	if productType := strings.TrimSpace(c.Query("type")); productType != "" {
		page.SetType(productType)
	}
	if size := strings.TrimSpace(c.Query("size")); size != "" {
		page.SetSize(size)
	}

	lower, lowerErr := parseOptionalDecimal(c.Query("min"))
	upper, upperErr := parseOptionalDecimal(c.Query("max"))
	if lowerErr == nil && upperErr == nil && (lower != nil || upper != nil) {
		current := page.Snapshot().Filter
		if lower == nil {
			lower = &current.MinPrice
		}
		if upper == nil {
			upper = &current.MaxPrice
		}
		page.SetPriceRange(*lower, *upper)
	}

	page.SetViewMode(catalog.ParseViewMode(c.Query("view")))

	if selected := strings.TrimSpace(c.Query("selected")); selected != "" {
		page.Select(selected)
	}
}
