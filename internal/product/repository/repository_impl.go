package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/lis/internal/product/domain"
	"github.com/smallbiznis/lis/pkg/db/option"
	"gorm.io/gorm"
)

const productColumns = `products.*, (SELECT suppliers.name FROM suppliers
	WHERE suppliers.id = products.supplier_id AND suppliers.org_id = products.org_id) AS supplier_name`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id int64) (*domain.Product, error) {
	var p domain.Product
	tx := db.WithContext(ctx).
		Model(&domain.Product{}).
		Select(productColumns).
		Where("products.org_id = ? AND products.id = ?", orgID, id).
		Limit(1).
		Find(&p)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID int64, filter domain.ListRequest) ([]domain.Product, error) {
	var items []domain.Product
	stmt := db.WithContext(ctx).
		Model(&domain.Product{}).
		Select(productColumns).
		Where("products.org_id = ?", orgID)

	if term := strings.ToLower(strings.TrimSpace(filter.Term)); term != "" {
		like := "%" + term + "%"
		stmt = stmt.Where(
			"LOWER(products.name) LIKE ? OR LOWER(products.code) LIKE ? OR LOWER(products.model) LIKE ? OR LOWER(products.color) LIKE ? OR LOWER(products.material) LIKE ?",
			like, like, like, like, like,
		)
	}
	if filter.Type != "" {
		stmt = stmt.Where("products.type = ?", filter.Type)
	}
	if filter.Size != "" {
		stmt = stmt.Where("products.size = ?", filter.Size)
	}
	if filter.Status != nil {
		stmt = stmt.Where("products.status = ?", *filter.Status)
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
		"code":       true,
		"sale_value": true,
		"quantity":   true,
	})).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	if product == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE products
		 SET type = ?, name = ?, model = ?, description = ?, image_url = ?, size = ?, size_number = ?,
		     color = ?, material = ?, purchase_value = ?, sale_value = ?, margin = ?, status = ?,
		     quantity = ?, supplier_id = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		product.Type,
		product.Name,
		product.Model,
		product.Description,
		product.ImageURL,
		product.Size,
		product.SizeNumber,
		product.Color,
		product.Material,
		product.PurchaseValue,
		product.SaleValue,
		product.Margin,
		product.Status,
		product.Quantity,
		product.SupplierID,
		product.UpdatedAt,
		product.OrgID,
		product.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id int64) (int64, error) {
	tx := db.WithContext(ctx).Exec(`DELETE FROM products WHERE org_id = ? AND id = ?`, orgID, id)
	return tx.RowsAffected, tx.Error
}

func (r *repo) SupplierExists(ctx context.Context, db *gorm.DB, orgID, supplierID int64) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM suppliers WHERE org_id = ? AND id = ?`,
		orgID,
		supplierID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) Stats(ctx context.Context, db *gorm.DB, orgID int64, lowStockBelow int) (domain.Stats, error) {
	var stats domain.Stats
	err := db.WithContext(ctx).Raw(
		`SELECT
			COUNT(1) AS total,
			COALESCE(SUM(CASE WHEN quantity > 0 THEN 1 ELSE 0 END), 0) AS in_stock,
			COALESCE(SUM(CASE WHEN quantity > 0 AND quantity < ? THEN 1 ELSE 0 END), 0) AS low_stock,
			COALESCE(SUM(CASE WHEN quantity = 0 THEN 1 ELSE 0 END), 0) AS out_of_stock
		 FROM products WHERE org_id = ?`,
		lowStockBelow,
		orgID,
	).Scan(&stats).Error
	return stats, err
}

func (r *repo) AdjustQuantity(ctx context.Context, db *gorm.DB, orgID, id int64, delta int) (bool, error) {
	tx := db.WithContext(ctx).Exec(
		`UPDATE products SET quantity = quantity + ?
		 WHERE org_id = ? AND id = ? AND quantity + ? >= 0`,
		delta,
		orgID,
		id,
		delta,
	)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}
