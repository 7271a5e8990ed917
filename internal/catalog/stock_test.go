package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/lis/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestStockLabel(t *testing.T) {
	cfg := config.DefaultCatalogConfig()

	cases := map[int]string{
		0:  "Esgotado",
		1:  "Baixo",
		3:  "Baixo",
		4:  "Baixo",
		5:  "Moderado",
		7:  "Moderado",
		9:  "Moderado",
		10: "Disponível",
		15: "Disponível",
	}
	for qty, want := range cases {
		assert.Equal(t, want, StockLabel(qty, cfg), "quantity %d", qty)
	}
}

func TestStockLabelFollowsConfiguredThresholds(t *testing.T) {
	cfg := config.DefaultCatalogConfig()
	cfg.LowStockBelow = 2
	cfg.ModerateStockBelow = 4

	assert.Equal(t, LabelLow, StockLabel(1, cfg))
	assert.Equal(t, LabelModerate, StockLabel(3, cfg))
	assert.Equal(t, LabelAvailable, StockLabel(4, cfg))
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats(sampleProducts(), config.DefaultCatalogConfig().LowStockBelow)

	assert.Equal(t, Stats{Total: 4, InStock: 3, LowStock: 1, OutOfStock: 1}, stats)
	assert.Equal(t, stats.Total, stats.InStock+stats.OutOfStock)
	assert.LessOrEqual(t, stats.LowStock, stats.InStock)

	assert.Equal(t, Stats{}, ComputeStats(nil, 5))
}

func TestProgressIsNotClamped(t *testing.T) {
	cfg := config.DefaultCatalogConfig()

	assert.InDelta(t, 0.5, Progress(25, cfg), 1e-9)
	assert.InDelta(t, 2.0, Progress(100, cfg), 1e-9)
	assert.Zero(t, Progress(0, cfg))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "R$ 120.00", FormatPrice("R$", decimal.NewFromInt(120)))
	assert.Equal(t, "R$ 89.90", FormatPrice("R$", decimal.RequireFromString("89.9")))
	assert.Equal(t, "US$ 0.50", FormatPrice("US$", decimal.RequireFromString("0.499")))
}
