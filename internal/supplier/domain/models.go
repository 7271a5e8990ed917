package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Supplier is referenced by products; the catalog shows its name in the detail overlay.
type Supplier struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	OrgID     snowflake.ID `json:"organization_id" gorm:"column:org_id;not null;index"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Document  *string      `json:"document,omitempty" gorm:"type:text"`
	Email     string       `json:"email" gorm:"type:text"`
	Phone     string       `json:"phone" gorm:"type:text"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

func (Supplier) TableName() string { return "suppliers" }
