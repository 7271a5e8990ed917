package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Customer is a client placing orders with the shop.
type Customer struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID      `gorm:"column:org_id;not null;uniqueIndex:ux_customers_org_email,priority:1" json:"organization_id"`
	Name      string            `gorm:"not null" json:"name"`
	Email     string            `gorm:"not null;uniqueIndex:ux_customers_org_email,priority:2" json:"email"`
	Phone     *string           `json:"phone,omitempty"`
	Document  *string           `json:"document,omitempty"`
	Address   datatypes.JSONMap `gorm:"type:json" json:"address,omitempty"`
	Notes     string            `json:"notes,omitempty"`
	CreatedAt time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }
