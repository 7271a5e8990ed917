package option

import (
	"strings"
	"time"

	"github.com/smallbiznis/lis/pkg/db/pagination"
	"gorm.io/gorm"
)

// QueryOption mutates a GORM statement.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type QueryOptionFunc func(*gorm.DB) *gorm.DB

func (f QueryOptionFunc) Apply(db *gorm.DB) *gorm.DB {
	return f(db)
}

// ApplyPagination orders by newest first and fetches one extra row so callers can detect more pages.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		limit := page.Limit()
		stmt := db
		if token := strings.TrimSpace(page.PageToken); token != "" {
			cursor, err := pagination.DecodeCursor(token)
			if err == nil && cursor != nil {
				if createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt); err == nil {
					stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)", createdAt, createdAt, cursor.ID)
				}
			}
		}
		return stmt.Order("created_at desc, id desc").Limit(limit + 1)
	})
}

type SortBy struct {
	Field string
	Desc  bool
}

// WithQuerySortBy validates a user supplied sort column against an allow list.
func WithQuerySortBy(sortBy, orderBy string, allowed map[string]bool) *SortBy {
	field := strings.ToLower(strings.TrimSpace(sortBy))
	if field == "" || !allowed[field] {
		return nil
	}
	return &SortBy{
		Field: field,
		Desc:  strings.EqualFold(strings.TrimSpace(orderBy), "desc"),
	}
}

// WithSortBy orders by the given column, falling back to insertion order.
func WithSortBy(sort *SortBy) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if sort == nil {
			return db.Order("created_at asc, id asc")
		}
		direction := "asc"
		if sort.Desc {
			direction = "desc"
		}
		return db.Order(sort.Field + " " + direction + ", id asc")
	})
}
