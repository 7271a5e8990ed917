package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FilterState narrows the loaded products. Empty Type or Size means no constraint.
type FilterState struct {
	Term     string
	Type     string
	Size     string
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal
}

// Facets are the choices offered by the filter controls.
type Facets struct {
	Types    []string
	Sizes    []string
	MaxPrice decimal.Decimal
}

// ComputeFacets collects distinct types and sizes in first-seen order and the highest sale value.
func ComputeFacets(source []Product) Facets {
	facets := Facets{
		Types:    []string{},
		Sizes:    []string{},
		MaxPrice: decimal.Zero,
	}
	seenTypes := map[string]struct{}{}
	seenSizes := map[string]struct{}{}

	for _, p := range source {
		if p.Type != "" {
			if _, ok := seenTypes[p.Type]; !ok {
				seenTypes[p.Type] = struct{}{}
				facets.Types = append(facets.Types, p.Type)
			}
		}
		if size := p.SizeLabel(); size != "" {
			if _, ok := seenSizes[size]; !ok {
				seenSizes[size] = struct{}{}
				facets.Sizes = append(facets.Sizes, size)
			}
		}
		if p.SaleValue.GreaterThan(facets.MaxPrice) {
			facets.MaxPrice = p.SaleValue
		}
	}
	return facets
}

// DefaultFilter shows everything: no term, no type, no size, [0, max sale value].
func DefaultFilter(facets Facets) FilterState {
	return FilterState{
		MinPrice: decimal.Zero,
		MaxPrice: facets.MaxPrice,
	}
}

// Normalized swaps inverted price bounds.
func (f FilterState) Normalized() FilterState {
	if f.MinPrice.GreaterThan(f.MaxPrice) {
		f.MinPrice, f.MaxPrice = f.MaxPrice, f.MinPrice
	}
	return f
}

// Apply returns the products matching every constraint of state, in source order.
func Apply(source []Product, state FilterState) []Product {
	term := strings.ToLower(state.Term)

	result := make([]Product, 0, len(source))
	for _, p := range source {
		if term != "" && !matchesTerm(p, term) {
			continue
		}
		if state.Type != "" && p.Type != state.Type {
			continue
		}
		if state.Size != "" && p.SizeLabel() != state.Size {
			continue
		}
		if p.SaleValue.LessThan(state.MinPrice) || p.SaleValue.GreaterThan(state.MaxPrice) {
			continue
		}
		result = append(result, p)
	}
	return result
}

func matchesTerm(p Product, term string) bool {
	for _, field := range []string{p.Name, p.Code, p.Model, p.Color, p.Material} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}
