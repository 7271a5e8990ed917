package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lis/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Order, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListOrderFilter, page pagination.Pagination) ([]*Order, error)

	// UpdateStatus persists the new status only if the stored status still equals from.
	UpdateStatus(ctx context.Context, db *gorm.DB, order *Order, from Status) (bool, error)
	CountByStatus(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (map[Status]int64, error)
	FindClient(ctx context.Context, db *gorm.DB, orgID, clientID snowflake.ID) (*Client, error)
	OrganizationName(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (string, error)
}
