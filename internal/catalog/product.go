package catalog

import (
	"github.com/shopspring/decimal"
	productdomain "github.com/smallbiznis/lis/internal/product/domain"
)

// Product is the read-only shape the catalog works with, decoded from GET /api/products.
type Product struct {
	ID            string          `json:"id"`
	Code          string          `json:"code"`
	Type          string          `json:"type"`
	Name          string          `json:"name"`
	Model         string          `json:"model"`
	Description   *string         `json:"description,omitempty"`
	ImageURL      *string         `json:"image_url,omitempty"`
	Size          *string         `json:"size,omitempty"`
	SizeNumber    int             `json:"size_number"`
	Color         string          `json:"color"`
	Material      string          `json:"material"`
	PurchaseValue decimal.Decimal `json:"purchase_value"`
	SaleValue     decimal.Decimal `json:"sale_value"`
	Margin        decimal.Decimal `json:"margin"`
	Status        int             `json:"status"`
	Quantity      int             `json:"quantity"`
	SupplierName  *string         `json:"supplier_name,omitempty"`
}

// SizeLabel returns the size label or an empty string.
func (p Product) SizeLabel() string {
	if p.Size == nil {
		return ""
	}
	return *p.Size
}

func FromProductResponse(r productdomain.Response) Product {
	return Product{
		ID:            r.ID,
		Code:          r.Code,
		Type:          r.Type,
		Name:          r.Name,
		Model:         r.Model,
		Description:   r.Description,
		ImageURL:      r.ImageURL,
		Size:          r.Size,
		SizeNumber:    r.SizeNumber,
		Color:         r.Color,
		Material:      r.Material,
		PurchaseValue: r.PurchaseValue,
		SaleValue:     r.SaleValue,
		Margin:        r.Margin,
		Status:        r.Status,
		Quantity:      r.Quantity,
		SupplierName:  r.SupplierName,
	}
}
