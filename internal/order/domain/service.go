package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/lis/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateOrderRequest) (*Response, error)
	List(ctx context.Context, req ListOrderRequest) (ListOrderResponse, error)
	Get(ctx context.Context, id string) (*Response, error)
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*Response, error)
	Stats(ctx context.Context) (*Stats, error)
	Receipt(ctx context.Context, id string) (*ReceiptFile, error)
}

type CreateOrderRequest struct {
	ClientID string            `json:"client_id"`
	Items    []CreateOrderItem `json:"items"`
	Notes    string            `json:"notes"`
}

type CreateOrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type ListOrderRequest struct {
	PageToken string
	PageSize  int32
	Status    string
	ClientID  string
}

type ListOrderFilter struct {
	Status   Status
	ClientID *int64
}

type ListOrderResponse struct {
	pagination.PageInfo
	Orders []Response `json:"orders"`
}

type UpdateStatusRequest struct {
	ID         string  `json:"-"`
	Status     string  `json:"status"`
	AdminNotes *string `json:"admin_notes"`
}

type ItemResponse struct {
	ProductID   string          `json:"product_id"`
	ProductCode string          `json:"product_code"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type Response struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	Number         string          `json:"number"`
	ClientID       string          `json:"client_id"`
	Status         Status          `json:"status"`
	Total          decimal.Decimal `json:"total"`
	Notes          string          `json:"notes,omitempty"`
	AdminNotes     *string         `json:"admin_notes,omitempty"`
	Items          []ItemResponse  `json:"items"`
	ConfirmedAt    *time.Time      `json:"confirmed_at,omitempty"`
	ShippedAt      *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type Stats struct {
	Total    int64            `json:"total"`
	ByStatus map[Status]int64 `json:"by_status"`
}

type ReceiptFile struct {
	Filename string
	Content  []byte
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidClient       = errors.New("invalid_client")
	ErrInvalidItems        = errors.New("invalid_items")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrInvalidProduct      = errors.New("invalid_product")
	ErrInsufficientStock   = errors.New("insufficient_stock")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidTransition   = errors.New("invalid_status_transition")
	ErrAdminNotesRequired  = errors.New("admin_notes_required")
	ErrNotFound            = errors.New("not_found")
)
