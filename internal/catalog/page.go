package catalog

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/lis/internal/config"
)

const (
	LoginPath        = "/login"
	NoticeLoadFailed = "Erro ao carregar produtos"
	EmptyMessage     = "Nenhum produto encontrado"
	NotInformed      = "Não informado"
)

type ViewMode string

const (
	ViewGrid ViewMode = "grid"
	ViewList ViewMode = "list"
)

// ParseViewMode falls back to the grid layout.
func ParseViewMode(raw string) ViewMode {
	if ViewMode(raw) == ViewList {
		return ViewList
	}
	return ViewGrid
}

type Phase string

const (
	PhaseLoading      Phase = "loading"
	PhaseLoaded       Phase = "loaded"
	PhaseUnauthorized Phase = "unauthorized"
)

// Page owns the catalog state: loaded products, facets, filter, view mode and selection.
type Page struct {
	mu sync.Mutex

	cfg *config.CatalogConfigHolder

	phase    Phase
	redirect string
	notice   string

	source   []Product
	filtered []Product
	facets   Facets
	stats    Stats
	filter   FilterState

	mode     ViewMode
	selected string
}

func NewPage(cfg *config.CatalogConfigHolder) *Page {
	return &Page{
		cfg:      cfg,
		phase:    PhaseLoading,
		source:   []Product{},
		filtered: []Product{},
		facets:   ComputeFacets(nil),
		filter:   DefaultFilter(ComputeFacets(nil)),
		mode:     ViewGrid,
	}
}

// Load fetches the products once. Unauthorized is terminal; any other failure keeps the
// previous products and raises a notice.
func (p *Page) Load(ctx context.Context, fetcher Fetcher) error {
	p.mu.Lock()
	p.phase = PhaseLoading
	p.notice = ""
	p.mu.Unlock()

	products, err := fetcher.FetchProducts(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			p.phase = PhaseUnauthorized
			p.redirect = LoginPath
			return err
		}
		p.phase = PhaseLoaded
		p.notice = NoticeLoadFailed
		return err
	}

	source := make([]Product, len(products))
	copy(source, products)

	p.source = source
	p.facets = ComputeFacets(source)
	p.stats = ComputeStats(source, p.cfg.Get().LowStockBelow)
	p.filter = DefaultFilter(p.facets)
	p.phase = PhaseLoaded
	p.recompute()
	return nil
}

func (p *Page) SetTerm(term string) {
	p.update(func(f *FilterState) { f.Term = term })
}

// SetType selects a type; an empty value clears it.
func (p *Page) SetType(productType string) {
	p.update(func(f *FilterState) { f.Type = productType })
}

// SetSize selects a size label; an empty value clears it.
func (p *Page) SetSize(size string) {
	p.update(func(f *FilterState) { f.Size = size })
}

// SetPriceRange sets the inclusive sale value bounds, swapping them if inverted.
func (p *Page) SetPriceRange(lower, upper decimal.Decimal) {
	p.update(func(f *FilterState) {
		f.MinPrice = lower
		f.MaxPrice = upper
	})
}

func (p *Page) ResetFilters() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filter = DefaultFilter(p.facets)
	p.recompute()
}

func (p *Page) SetViewMode(mode ViewMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = ParseViewMode(string(mode))
}

func (p *Page) ToggleView() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode == ViewGrid {
		p.mode = ViewList
		return
	}
	p.mode = ViewGrid
}

// Select opens the detail overlay for a loaded product and reports whether it exists.
func (p *Page) Select(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, product := range p.source {
		if product.ID == id {
			p.selected = id
			return true
		}
	}
	return false
}

func (p *Page) CloseDetail() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selected = ""
}

// DismissNotice clears the transient load failure message.
func (p *Page) DismissNotice() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notice = ""
}

func (p *Page) update(fn func(*FilterState)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.filter)
	p.filter = p.filter.Normalized()
	p.recompute()
}

// recompute must be called with mu held.
func (p *Page) recompute() {
	p.filtered = Apply(p.source, p.filter)
}

// Card is one product as shown in the grid or list.
type Card struct {
	ID         string
	Name       string
	Code       string
	Type       string
	SizeTag    string
	Color      string
	ImageURL   string
	Price      string
	SaleValue  decimal.Decimal
	Quantity   int
	StockLabel string
	Progress   float64
}

// Detail extends a card with the fields of the detail overlay.
type Detail struct {
	Card
	Description   string
	Material      string
	Supplier      string
	Model         string
	PurchasePrice string
	Margin        string
}

// Snapshot is an immutable copy of the page state for rendering.
type Snapshot struct {
	Phase        Phase
	Loading      bool
	Unauthorized bool
	Redirect     string
	Notice       string
	Mode         ViewMode
	Items        []Card
	Empty        bool
	Stats        Stats
	Facets       Facets
	Filter       FilterState
	Selected     *Detail
	GridColumns  int
}

func (p *Page) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	cfg := p.cfg.Get()
	items := make([]Card, 0, len(p.filtered))
	for _, product := range p.filtered {
		items = append(items, newCard(product, cfg))
	}

	snap := Snapshot{
		Phase:        p.phase,
		Loading:      p.phase == PhaseLoading,
		Unauthorized: p.phase == PhaseUnauthorized,
		Redirect:     p.redirect,
		Notice:       p.notice,
		Mode:         p.mode,
		Items:        items,
		Empty:        p.phase == PhaseLoaded && len(items) == 0,
		Stats:        p.stats,
		Facets: Facets{
			Types:    append([]string(nil), p.facets.Types...),
			Sizes:    append([]string(nil), p.facets.Sizes...),
			MaxPrice: p.facets.MaxPrice,
		},
		Filter:      p.filter,
		GridColumns: cfg.GridColumns,
	}

	if p.selected != "" {
		for _, product := range p.source {
			if product.ID == p.selected {
				detail := newDetail(product, cfg)
				snap.Selected = &detail
				break
			}
		}
	}
	return snap
}

// Filtered returns a copy of the visible products.
func (p *Page) Filtered() []Product {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Product(nil), p.filtered...)
}

// Source returns a copy of the loaded products.
func (p *Page) Source() []Product {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Product(nil), p.source...)
}

func newCard(p Product, cfg config.CatalogConfig) Card {
	card := Card{
		ID:         p.ID,
		Name:       p.Name,
		Code:       p.Code,
		Type:       p.Type,
		Color:      p.Color,
		Price:      FormatPrice(cfg.CurrencyPrefix, p.SaleValue),
		SaleValue:  p.SaleValue,
		Quantity:   p.Quantity,
		StockLabel: StockLabel(p.Quantity, cfg),
		Progress:   Progress(p.Quantity, cfg),
	}
	if size := p.SizeLabel(); size != "" {
		card.SizeTag = size + " (" + strconv.Itoa(p.SizeNumber) + ")"
	}
	if p.ImageURL != nil {
		card.ImageURL = *p.ImageURL
	}
	return card
}

func newDetail(p Product, cfg config.CatalogConfig) Detail {
	detail := Detail{
		Card:          newCard(p, cfg),
		Material:      p.Material,
		Supplier:      NotInformed,
		Model:         p.Model,
		PurchasePrice: FormatPrice(cfg.CurrencyPrefix, p.PurchaseValue),
		Margin:        p.Margin.StringFixed(2) + "%",
	}
	if p.Description != nil {
		detail.Description = *p.Description
	}
	if p.SupplierName != nil && *p.SupplierName != "" {
		detail.Supplier = *p.SupplierName
	}
	return detail
}
