package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/lis/internal/clock"
	"github.com/smallbiznis/lis/internal/config"
	"github.com/smallbiznis/lis/internal/orgcontext"
	"github.com/smallbiznis/lis/internal/product/domain"
	"github.com/smallbiznis/lis/internal/product/repository"
	supplierdomain "github.com/smallbiznis/lis/internal/supplier/domain"
	"github.com/smallbiznis/lis/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testOrgID = int64(1001)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&supplierdomain.Supplier{}, &domain.Product{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:      conn,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Repo:    repository.Provide(),
		Catalog: config.NewStaticCatalogConfigHolder(config.DefaultCatalogConfig()),
	})
	return svc, conn
}

func orgCtx() context.Context {
	return orgcontext.WithOrgID(context.Background(), testOrgID)
}

func newRequest(code string, qty int, sale string) domain.CreateRequest {
	return domain.CreateRequest{
		Code:          code,
		Type:          "Camiseta",
		Name:          "Camiseta " + code,
		Model:         "Basic",
		Color:         "Azul",
		Material:      "Algodão",
		PurchaseValue: decimal.RequireFromString("50.00"),
		SaleValue:     decimal.RequireFromString(sale),
		Quantity:      qty,
	}
}

func TestCreateComputesMarginAndDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Create(orgCtx(), newRequest("CAM-001", 10, "75.00"))
	require.NoError(t, err)
	require.Equal(t, "CAM-001", resp.Code)
	require.Equal(t, domain.StatusActive, resp.Status)
	require.True(t, resp.Margin.Equal(decimal.NewFromInt(50)), "margin %s", resp.Margin)
	require.Nil(t, resp.SupplierName)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := orgCtx()

	cases := []struct {
		name   string
		mutate func(*domain.CreateRequest)
		want   error
	}{
		{"missing code", func(r *domain.CreateRequest) { r.Code = " " }, domain.ErrInvalidCode},
		{"missing name", func(r *domain.CreateRequest) { r.Name = "" }, domain.ErrInvalidName},
		{"missing type", func(r *domain.CreateRequest) { r.Type = "" }, domain.ErrInvalidType},
		{"negative quantity", func(r *domain.CreateRequest) { r.Quantity = -1 }, domain.ErrInvalidQuantity},
		{"negative sale", func(r *domain.CreateRequest) { r.SaleValue = decimal.NewFromInt(-1) }, domain.ErrInvalidSaleValue},
		{"negative purchase", func(r *domain.CreateRequest) { r.PurchaseValue = decimal.NewFromInt(-1) }, domain.ErrInvalidPurchaseValue},
		{"unknown supplier", func(r *domain.CreateRequest) { id := "12345"; r.SupplierID = &id }, domain.ErrInvalidSupplier},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := newRequest("X-1", 1, "10")
			tc.mutate(&req)
			_, err := svc.Create(ctx, req)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreateRequiresOrganization(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), newRequest("CAM-001", 1, "10"))
	require.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestCreateDuplicateCode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := orgCtx()

	_, err := svc.Create(ctx, newRequest("CAM-001", 1, "10"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, newRequest("CAM-001", 2, "20"))
	require.ErrorIs(t, err, domain.ErrCodeExists)
}

func TestListFiltersAndSupplierName(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := orgCtx()

	now := time.Now().UTC()
	require.NoError(t, conn.Create(&supplierdomain.Supplier{
		ID: 77, OrgID: snowflake.ID(testOrgID), Name: "Malharia Sul", CreatedAt: now, UpdatedAt: now,
	}).Error)

	supplierID := "77"
	withSupplier := newRequest("CAM-001", 3, "120")
	withSupplier.SupplierID = &supplierID
	_, err := svc.Create(ctx, withSupplier)
	require.NoError(t, err)

	other := newRequest("CAL-002", 0, "80")
	other.Type = "Calça"
	other.Color = "Preto"
	_, err = svc.Create(ctx, other)
	require.NoError(t, err)

	all, err := svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NotNil(t, all[0].SupplierName)
	require.Equal(t, "Malharia Sul", *all[0].SupplierName)

	byTerm, err := svc.List(ctx, domain.ListRequest{Term: "azu"})
	require.NoError(t, err)
	require.Len(t, byTerm, 1)
	require.Equal(t, "CAM-001", byTerm[0].Code)

	byType, err := svc.List(ctx, domain.ListRequest{Type: "Calça"})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	require.Equal(t, "CAL-002", byType[0].Code)

	sorted, err := svc.List(ctx, domain.ListRequest{SortBy: "sale_value", OrderBy: "desc"})
	require.NoError(t, err)
	require.Equal(t, "CAM-001", sorted[0].Code)

	otherOrg, err := svc.List(orgcontext.WithOrgID(context.Background(), 2002), domain.ListRequest{})
	require.NoError(t, err)
	require.Empty(t, otherOrg)
}

func TestUpdatePartialRecomputesMargin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := orgCtx()

	created, err := svc.Create(ctx, newRequest("CAM-001", 5, "75"))
	require.NoError(t, err)

	sale := decimal.NewFromInt(100)
	inactive := domain.StatusInactive
	updated, err := svc.Update(ctx, domain.UpdateRequest{ID: created.ID, SaleValue: &sale, Status: &inactive})
	require.NoError(t, err)
	require.True(t, updated.Margin.Equal(decimal.NewFromInt(100)), "margin %s", updated.Margin)
	require.Equal(t, domain.StatusInactive, updated.Status)
	require.Equal(t, created.Name, updated.Name)
	require.Equal(t, 5, updated.Quantity)

	negative := -3
	_, err = svc.Update(ctx, domain.UpdateRequest{ID: created.ID, Quantity: &negative})
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestDeleteAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := orgCtx()

	created, err := svc.Create(ctx, newRequest("CAM-001", 5, "75"))
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(ctx, "not-a-number")
	require.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := orgCtx()

	for i, qty := range []int{0, 3, 7, 15} {
		_, err := svc.Create(ctx, newRequest(string(rune('A'+i)), qty, "10"))
		require.NoError(t, err)
	}

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Stats{Total: 4, InStock: 3, LowStock: 1, OutOfStock: 1}, *stats)
	require.Equal(t, stats.Total, stats.InStock+stats.OutOfStock)
}
