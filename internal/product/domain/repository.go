package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id int64) (*Product, error)
	List(ctx context.Context, db *gorm.DB, orgID int64, filter ListRequest) ([]Product, error)
	Update(ctx context.Context, db *gorm.DB, product *Product) error
	Delete(ctx context.Context, db *gorm.DB, orgID, id int64) (int64, error)
	SupplierExists(ctx context.Context, db *gorm.DB, orgID, supplierID int64) (bool, error)
	Stats(ctx context.Context, db *gorm.DB, orgID int64, lowStockBelow int) (Stats, error)

	// AdjustQuantity adds delta to the stock on hand. It reports false when the
	// product is missing or the result would be negative.
	AdjustQuantity(ctx context.Context, db *gorm.DB, orgID, id int64, delta int) (bool, error)
}
