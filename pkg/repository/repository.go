// Package repository is a generic GORM store for tables whose rows are addressed by
// a filter struct. Zero-valued fields in the filter are ignored, so tenant scoping
// is the caller's job: always set OrgID.
package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/lis/pkg/db/option"
	"gorm.io/gorm"
)

// ErrNilFilter guards Update and Delete against running without a WHERE clause.
var ErrNilFilter = errors.New("repository: nil filter")

type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, filter *T, opts ...option.QueryOption) ([]*T, error)
	// FindOne returns nil, nil when nothing matches.
	FindOne(ctx context.Context, filter *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, row *T) error
	Update(ctx context.Context, filter *T, fields map[string]any) (int64, error)
	Delete(ctx context.Context, filter *T) (int64, error)
}
