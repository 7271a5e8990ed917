package catalog

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/lis/internal/config"
)

const (
	LabelOutOfStock = "Esgotado"
	LabelLow        = "Baixo"
	LabelModerate   = "Moderado"
	LabelAvailable  = "Disponível"
)

// StockLabel classifies a quantity. Zero always reads as out of stock.
func StockLabel(quantity int, cfg config.CatalogConfig) string {
	switch {
	case quantity <= 0:
		return LabelOutOfStock
	case quantity < cfg.LowStockBelow:
		return LabelLow
	case quantity < cfg.ModerateStockBelow:
		return LabelModerate
	default:
		return LabelAvailable
	}
}

// Progress is quantity over the configured divisor. Values above 1 are kept as is.
func Progress(quantity int, cfg config.CatalogConfig) float64 {
	if cfg.ProgressDivisor <= 0 {
		return 0
	}
	return float64(quantity) / float64(cfg.ProgressDivisor)
}

// FormatPrice renders a value as "<prefix> 120.00".
func FormatPrice(prefix string, value decimal.Decimal) string {
	return prefix + " " + value.StringFixed(2)
}

type Stats struct {
	Total      int
	InStock    int
	LowStock   int
	OutOfStock int
}

// ComputeStats summarises the unfiltered source.
func ComputeStats(source []Product, lowStockBelow int) Stats {
	stats := Stats{Total: len(source)}
	for _, p := range source {
		if p.Quantity > 0 {
			stats.InStock++
			if p.Quantity < lowStockBelow {
				stats.LowStock++
			}
			continue
		}
		stats.OutOfStock++
	}
	return stats
}
