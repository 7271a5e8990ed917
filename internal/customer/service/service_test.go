package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/lis/internal/clock"
	"github.com/smallbiznis/lis/internal/customer/domain"
	"github.com/smallbiznis/lis/internal/customer/repository"
	orderdomain "github.com/smallbiznis/lis/internal/order/domain"
	"github.com/smallbiznis/lis/internal/orgcontext"
	"github.com/smallbiznis/lis/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Customer{}, &orderdomain.Order{}, &orderdomain.OrderItem{}))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC))
	return New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Repo:  repository.Provide(),
	}), fakeClock, conn
}

func TestCreateCustomer(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := orgcontext.WithOrgID(context.Background(), 42)

	phone := " 11 98888-7777 "
	customer, err := svc.Create(ctx, domain.CreateCustomerRequest{
		Name:    "Ana Souza",
		Email:   "Ana@Example.com",
		Phone:   &phone,
		Address: map[string]any{"city": "São Paulo"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", customer.Email)
	require.NotNil(t, customer.Phone)
	assert.Equal(t, "11 98888-7777", *customer.Phone)

	got, err := svc.GetByID(ctx, domain.GetCustomerRequest{ID: customer.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, "São Paulo", got.Address["city"])
}

func TestCreateCustomerDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := orgcontext.WithOrgID(context.Background(), 42)

	_, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Name: "Ana B", Email: "ANA@example.com"})
	require.ErrorIs(t, err, domain.ErrEmailExists)

	// the same email is free in another organization
	_, err = svc.Create(orgcontext.WithOrgID(context.Background(), 43), domain.CreateCustomerRequest{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
}

func TestCreateCustomerValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := orgcontext.WithOrgID(context.Background(), 42)

	_, err := svc.Create(ctx, domain.CreateCustomerRequest{Email: "ana@example.com"})
	require.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Name: "Ana", Email: "ana"})
	require.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = svc.Create(context.Background(), domain.CreateCustomerRequest{Name: "Ana", Email: "ana@example.com"})
	require.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestListCustomersPaginatesNewestFirst(t *testing.T) {
	svc, fakeClock, _ := newTestService(t)
	ctx := orgcontext.WithOrgID(context.Background(), 42)

	for _, name := range []string{"Ana", "Bruno", "Carla"} {
		_, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: name, Email: name + "@example.com"})
		require.NoError(t, err)
		fakeClock.Advance(time.Minute)
	}

	first, err := svc.List(ctx, domain.ListCustomerRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Customers, 2)
	assert.Equal(t, "Carla", first.Customers[0].Name)
	assert.Equal(t, "Bruno", first.Customers[1].Name)
	require.True(t, first.HasMore)

	second, err := svc.List(ctx, domain.ListCustomerRequest{PageSize: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Customers, 1)
	assert.Equal(t, "Ana", second.Customers[0].Name)
	assert.False(t, second.HasMore)

	filtered, err := svc.List(ctx, domain.ListCustomerRequest{Name: "bru"})
	require.NoError(t, err)
	require.Len(t, filtered.Customers, 1)

	byEmail, err := svc.List(ctx, domain.ListCustomerRequest{Email: "carla@"})
	require.NoError(t, err)
	require.Len(t, byEmail.Customers, 1)
}

func TestUpdateAndDeleteCustomer(t *testing.T) {
	svc, _, conn := newTestService(t)
	ctx := orgcontext.WithOrgID(context.Background(), 42)

	ana, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	bruno, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Bruno", Email: "bruno@example.com"})
	require.NoError(t, err)

	taken := "bruno@example.com"
	_, err = svc.Update(ctx, domain.UpdateCustomerRequest{ID: ana.ID.String(), Email: &taken})
	require.ErrorIs(t, err, domain.ErrEmailExists)

	notes := "cliente VIP"
	updated, err := svc.Update(ctx, domain.UpdateCustomerRequest{ID: ana.ID.String(), Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "cliente VIP", updated.Notes)
	assert.Equal(t, "ana@example.com", updated.Email)

	now := time.Now().UTC()
	require.NoError(t, conn.Create(&orderdomain.Order{
		ID:        1,
		OrgID:     42,
		Number:    "01HZX",
		ClientID:  bruno.ID,
		Status:    orderdomain.StatusPending,
		Total:     decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)

	err = svc.Delete(ctx, domain.GetCustomerRequest{ID: bruno.ID.String()})
	require.ErrorIs(t, err, domain.ErrHasOrders)

	require.NoError(t, svc.Delete(ctx, domain.GetCustomerRequest{ID: ana.ID.String()}))
	_, err = svc.GetByID(ctx, domain.GetCustomerRequest{ID: ana.ID.String()})
	require.ErrorIs(t, err, domain.ErrNotFound)
}
