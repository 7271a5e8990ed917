package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*Stats, error)
}

type ListRequest struct {
	Term    string
	Type    string
	Size    string
	Status  *int
	SortBy  string
	OrderBy string
}

type CreateRequest struct {
	Code          string          `json:"code"`
	Type          string          `json:"type"`
	Name          string          `json:"name"`
	Model         string          `json:"model"`
	Description   *string         `json:"description"`
	ImageURL      *string         `json:"image_url"`
	Size          *string         `json:"size"`
	SizeNumber    int             `json:"size_number"`
	Color         string          `json:"color"`
	Material      string          `json:"material"`
	PurchaseValue decimal.Decimal `json:"purchase_value"`
	SaleValue     decimal.Decimal `json:"sale_value"`
	Status        *int            `json:"status"`
	Quantity      int             `json:"quantity"`
	SupplierID    *string         `json:"supplier_id"`
}

type UpdateRequest struct {
	ID            string           `json:"-"`
	Type          *string          `json:"type"`
	Name          *string          `json:"name"`
	Model         *string          `json:"model"`
	Description   *string          `json:"description"`
	ImageURL      *string          `json:"image_url"`
	Size          *string          `json:"size"`
	SizeNumber    *int             `json:"size_number"`
	Color         *string          `json:"color"`
	Material      *string          `json:"material"`
	PurchaseValue *decimal.Decimal `json:"purchase_value"`
	SaleValue     *decimal.Decimal `json:"sale_value"`
	Status        *int             `json:"status"`
	Quantity      *int             `json:"quantity"`
	// An empty SupplierID clears the supplier.
	SupplierID *string `json:"supplier_id"`
}

type Response struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	Code           string          `json:"code"`
	Type           string          `json:"type"`
	Name           string          `json:"name"`
	Model          string          `json:"model"`
	Description    *string         `json:"description,omitempty"`
	ImageURL       *string         `json:"image_url,omitempty"`
	Size           *string         `json:"size,omitempty"`
	SizeNumber     int             `json:"size_number"`
	Color          string          `json:"color"`
	Material       string          `json:"material"`
	PurchaseValue  decimal.Decimal `json:"purchase_value"`
	SaleValue      decimal.Decimal `json:"sale_value"`
	Margin         decimal.Decimal `json:"margin"`
	Status         int             `json:"status"`
	Quantity       int             `json:"quantity"`
	SupplierID     *string         `json:"supplier_id,omitempty"`
	SupplierName   *string         `json:"supplier_name,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Stats summarises stock levels for an organization.
type Stats struct {
	Total      int64 `json:"total"`
	InStock    int64 `json:"in_stock"`
	LowStock   int64 `json:"low_stock"`
	OutOfStock int64 `json:"out_of_stock"`
}

var (
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrInvalidCode          = errors.New("invalid_code")
	ErrInvalidName          = errors.New("invalid_name")
	ErrInvalidType          = errors.New("invalid_type")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInvalidSaleValue     = errors.New("invalid_sale_value")
	ErrInvalidPurchaseValue = errors.New("invalid_purchase_value")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrInvalidSupplier      = errors.New("invalid_supplier")
	ErrCodeExists           = errors.New("product_code_exists")
	ErrNotFound             = errors.New("not_found")
	ErrInvalidID            = errors.New("invalid_id")
)
