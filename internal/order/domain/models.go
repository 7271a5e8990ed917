package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var Statuses = []Status{StatusPending, StatusProcessing, StatusShipped, StatusCompleted, StatusCancelled}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether an order may move from s to next.
func (s Status) CanTransition(next Status) bool {
	switch next {
	case StatusCancelled:
		return !s.Terminal()
	case StatusProcessing:
		return s == StatusPending
	case StatusShipped:
		return s == StatusProcessing
	case StatusCompleted:
		return s == StatusShipped
	default:
		return false
	}
}

func ParseStatus(raw string) (Status, bool) {
	for _, status := range Statuses {
		if string(status) == raw {
			return status, true
		}
	}
	return "", false
}

type Order struct {
	ID          snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrgID       snowflake.ID    `json:"organization_id" gorm:"column:org_id;not null;index"`
	Number      string          `json:"number" gorm:"type:text;not null;uniqueIndex"`
	ClientID    snowflake.ID    `json:"client_id" gorm:"not null;index"`
	Status      Status          `json:"status" gorm:"type:text;not null;index"`
	Total       decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null"`
	Notes       string          `json:"notes" gorm:"type:text"`
	AdminNotes  *string         `json:"admin_notes,omitempty" gorm:"type:text"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
	ShippedAt   *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time       `json:"updated_at" gorm:"not null"`
	Items       []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string { return "orders" }

// OrderItem snapshots the product at the time the order was placed.
type OrderItem struct {
	ID          snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrderID     snowflake.ID    `json:"order_id" gorm:"not null;index"`
	OrgID       snowflake.ID    `json:"organization_id" gorm:"column:org_id;not null"`
	ProductID   snowflake.ID    `json:"product_id" gorm:"not null;index"`
	ProductCode string          `json:"product_code" gorm:"type:text;not null"`
	ProductName string          `json:"product_name" gorm:"type:text;not null"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	Quantity    int             `json:"quantity" gorm:"not null"`
	Subtotal    decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null"`
}

func (OrderItem) TableName() string { return "order_items" }

// Client is the subset of customer data an order needs.
type Client struct {
	ID    snowflake.ID
	Name  string
	Email string
	Phone *string
}
