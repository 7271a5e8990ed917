package domain

import (
	"github.com/smallbiznis/lis/pkg/repository"
	"gorm.io/gorm"
)

type Repository interface {
	repository.Repository[Supplier]
}

// NewRepository wraps the generic store for suppliers.
func NewRepository(db *gorm.DB) Repository {
	return repository.ProvideStore[Supplier](db)
}
