package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	StatusInactive = 0
	StatusActive   = 1
)

type Product struct {
	ID            snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrgID         snowflake.ID    `json:"organization_id" gorm:"column:org_id;not null;uniqueIndex:ux_products_org_code,priority:1"`
	Code          string          `json:"code" gorm:"type:text;not null;uniqueIndex:ux_products_org_code,priority:2"`
	Type          string          `json:"type" gorm:"type:text;not null;index"`
	Name          string          `json:"name" gorm:"type:text;not null"`
	Model         string          `json:"model" gorm:"type:text"`
	Description   *string         `json:"description,omitempty" gorm:"type:text"`
	ImageURL      *string         `json:"image_url,omitempty" gorm:"type:text"`
	Size          *string         `json:"size,omitempty" gorm:"type:text"`
	SizeNumber    int             `json:"size_number" gorm:"not null;default:0"`
	Color         string          `json:"color" gorm:"type:text"`
	Material      string          `json:"material" gorm:"type:text"`
	PurchaseValue decimal.Decimal `json:"purchase_value" gorm:"type:decimal(12,2);not null;default:0"`
	SaleValue     decimal.Decimal `json:"sale_value" gorm:"type:decimal(12,2);not null;default:0"`
	Margin        decimal.Decimal `json:"margin" gorm:"type:decimal(12,2);not null;default:0"`
	Status        int             `json:"status" gorm:"not null"`
	Quantity      int             `json:"quantity" gorm:"not null;default:0;check:chk_products_quantity,quantity >= 0"`
	SupplierID    *snowflake.ID   `json:"supplier_id,omitempty" gorm:"index"`
	SupplierName  *string         `json:"supplier_name,omitempty" gorm:"->;-:migration"`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }

// ComputeMargin returns (sale - purchase) / purchase * 100 rounded to two places, or zero without a purchase value.
func ComputeMargin(purchase, sale decimal.Decimal) decimal.Decimal {
	if purchase.IsZero() {
		return decimal.Zero
	}
	return sale.Sub(purchase).Div(purchase).Mul(decimal.NewFromInt(100)).Round(2)
}
