package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/lis/internal/clock"
	customerdomain "github.com/smallbiznis/lis/internal/customer/domain"
	"github.com/smallbiznis/lis/internal/order/domain"
	"github.com/smallbiznis/lis/internal/order/repository"
	"github.com/smallbiznis/lis/internal/orgcontext"
	orgdomain "github.com/smallbiznis/lis/internal/organization/domain"
	productdomain "github.com/smallbiznis/lis/internal/product/domain"
	productrepo "github.com/smallbiznis/lis/internal/product/repository"
	"github.com/smallbiznis/lis/internal/providers/pdf"
	supplierdomain "github.com/smallbiznis/lis/internal/supplier/domain"
	"github.com/smallbiznis/lis/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testOrgID    = snowflake.ID(500)
	testClientID = snowflake.ID(600)
	testProduct  = snowflake.ID(700)
)

type fakePDF struct {
	last pdf.OrderReceipt
}

func (f *fakePDF) GenerateOrderReceipt(_ context.Context, data pdf.OrderReceipt) ([]byte, error) {
	if len(data.Items) == 0 {
		return nil, pdf.ErrEmptyReceipt
	}
	f.last = data
	return []byte("%PDF-fake"), nil
}

type testEnv struct {
	svc  domain.Service
	db   *gorm.DB
	pdf  *fakePDF
	ctx  context.Context
	repo productdomain.Repository
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&orgdomain.Organization{},
		&supplierdomain.Supplier{},
		&productdomain.Product{},
		&customerdomain.Customer{},
		&domain.Order{},
		&domain.OrderItem{},
	))

	now := time.Date(2026, 4, 10, 9, 30, 0, 0, time.UTC)
	require.NoError(t, conn.Create(&orgdomain.Organization{
		ID: testOrgID, Name: "Loja Centro", Slug: "loja-centro", CreatedAt: now, UpdatedAt: now,
	}).Error)
	require.NoError(t, conn.Create(&customerdomain.Customer{
		ID: testClientID, OrgID: testOrgID, Name: "Ana Souza", Email: "ana@example.com", CreatedAt: now, UpdatedAt: now,
	}).Error)
	require.NoError(t, conn.Create(&productdomain.Product{
		ID:        testProduct,
		OrgID:     testOrgID,
		Code:      "CAM-001",
		Type:      "Camiseta",
		Name:      "Camiseta Azul",
		SaleValue: decimal.RequireFromString("120.00"),
		Status:    productdomain.StatusActive,
		Quantity:  5,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	fake := &fakePDF{}
	products := productrepo.Provide()
	svc := New(Params{
		DB:          conn,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clock.NewFakeClock(now),
		Repo:        repository.Provide(),
		ProductRepo: products,
		PDF:         fake,
	})

	return testEnv{
		svc:  svc,
		db:   conn,
		pdf:  fake,
		ctx:  orgcontext.WithOrgID(context.Background(), int64(testOrgID)),
		repo: products,
	}
}

func (e testEnv) stock(t *testing.T) int {
	t.Helper()
	product, err := e.repo.FindByID(context.Background(), e.db, int64(testOrgID), int64(testProduct))
	require.NoError(t, err)
	require.NotNil(t, product)
	return product.Quantity
}

func (e testEnv) place(t *testing.T, qty int) *domain.Response {
	t.Helper()
	order, err := e.svc.Create(e.ctx, domain.CreateOrderRequest{
		ClientID: testClientID.String(),
		Items:    []domain.CreateOrderItem{{ProductID: testProduct.String(), Quantity: qty}},
	})
	require.NoError(t, err)
	return order
}

func notes(value string) *string { return &value }

func TestCreateDecrementsStock(t *testing.T) {
	env := newTestEnv(t)

	order := env.place(t, 3)
	require.Equal(t, domain.StatusPending, order.Status)
	require.NotEmpty(t, order.Number)
	require.Len(t, order.Items, 1)
	require.True(t, order.Total.Equal(decimal.NewFromInt(360)), "total %s", order.Total)
	require.Equal(t, 2, env.stock(t))

	stored, err := env.svc.Get(env.ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	require.Equal(t, "CAM-001", stored.Items[0].ProductCode)
}

func TestCreateInsufficientStockRollsBack(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(env.ctx, domain.CreateOrderRequest{
		ClientID: testClientID.String(),
		Items:    []domain.CreateOrderItem{{ProductID: testProduct.String(), Quantity: 4}, {ProductID: testProduct.String(), Quantity: 2}},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	require.Equal(t, 5, env.stock(t))

	var count int64
	require.NoError(t, env.db.Model(&domain.Order{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(env.ctx, domain.CreateOrderRequest{ClientID: testClientID.String()})
	require.ErrorIs(t, err, domain.ErrInvalidItems)

	_, err = env.svc.Create(env.ctx, domain.CreateOrderRequest{
		ClientID: "999",
		Items:    []domain.CreateOrderItem{{ProductID: testProduct.String(), Quantity: 1}},
	})
	require.ErrorIs(t, err, domain.ErrInvalidClient)

	_, err = env.svc.Create(env.ctx, domain.CreateOrderRequest{
		ClientID: testClientID.String(),
		Items:    []domain.CreateOrderItem{{ProductID: testProduct.String(), Quantity: 0}},
	})
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = env.svc.Create(context.Background(), domain.CreateOrderRequest{})
	require.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestCancelRestoresStock(t *testing.T) {
	env := newTestEnv(t)
	order := env.place(t, 3)

	_, err := env.svc.UpdateStatus(env.ctx, domain.UpdateStatusRequest{ID: order.ID, Status: "cancelled"})
	require.ErrorIs(t, err, domain.ErrAdminNotesRequired)

	cancelled, err := env.svc.UpdateStatus(env.ctx, domain.UpdateStatusRequest{
		ID:         order.ID,
		Status:     "cancelled",
		AdminNotes: notes("cliente desistiu"),
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	require.Equal(t, 5, env.stock(t))

	_, err = env.svc.UpdateStatus(env.ctx, domain.UpdateStatusRequest{ID: order.ID, Status: "processing"})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestStatusLifecycle(t *testing.T) {
	env := newTestEnv(t)
	order := env.place(t, 1)

	_, err := env.svc.UpdateStatus(env.ctx, domain.UpdateStatusRequest{ID: order.ID, Status: "shipped"})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = env.svc.UpdateStatus(env.ctx, domain.UpdateStatusRequest{ID: order.ID, Status: "lost"})
	require.ErrorIs(t, err, domain.ErrInvalidStatus)

	for _, next := range []string{"processing", "shipped", "completed"} {
		resp, err := env.svc.UpdateStatus(env.ctx, domain.UpdateStatusRequest{ID: order.ID, Status: next})
		require.NoError(t, err)
		require.Equal(t, domain.Status(next), resp.Status)
	}

	completed, err := env.svc.Get(env.ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, completed.ConfirmedAt)
	require.NotNil(t, completed.ShippedAt)
	require.NotNil(t, completed.DeliveredAt)

	_, err = env.svc.UpdateStatus(env.ctx, domain.UpdateStatusRequest{
		ID:         order.ID,
		Status:     "cancelled",
		AdminNotes: notes("tarde demais"),
	})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	require.Equal(t, 4, env.stock(t))
}

func TestListAndStats(t *testing.T) {
	env := newTestEnv(t)
	first := env.place(t, 1)
	env.place(t, 1)

	_, err := env.svc.UpdateStatus(env.ctx, domain.UpdateStatusRequest{ID: first.ID, Status: "processing"})
	require.NoError(t, err)

	all, err := env.svc.List(env.ctx, domain.ListOrderRequest{})
	require.NoError(t, err)
	require.Len(t, all.Orders, 2)
	require.False(t, all.HasMore)

	pending, err := env.svc.List(env.ctx, domain.ListOrderRequest{Status: "pending"})
	require.NoError(t, err)
	require.Len(t, pending.Orders, 1)

	paged, err := env.svc.List(env.ctx, domain.ListOrderRequest{PageSize: 1})
	require.NoError(t, err)
	require.Len(t, paged.Orders, 1)
	require.True(t, paged.HasMore)
	require.NotEmpty(t, paged.NextPageToken)

	stats, err := env.svc.Stats(env.ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.Total)
	require.Equal(t, int64(1), stats.ByStatus[domain.StatusPending])
	require.Equal(t, int64(1), stats.ByStatus[domain.StatusProcessing])
	require.Zero(t, stats.ByStatus[domain.StatusCancelled])
}

func TestReceipt(t *testing.T) {
	env := newTestEnv(t)
	order := env.place(t, 2)

	file, err := env.svc.Receipt(env.ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, "pedido-"+order.Number+".pdf", file.Filename)
	require.Equal(t, "Loja Centro", env.pdf.last.OrgName)
	require.Equal(t, "Ana Souza", env.pdf.last.ClientName)
	require.Equal(t, "R$ 240.00", env.pdf.last.Total)
	require.Equal(t, "R$ 120.00", env.pdf.last.Items[0].UnitPrice)
}
