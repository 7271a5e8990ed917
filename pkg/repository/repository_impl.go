package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/lis/pkg/db/option"
	"gorm.io/gorm"
)

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return store[T]{db: db}
}

func (s store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	return store[T]{db: tx}
}

func (s store[T]) where(ctx context.Context, filter *T, opts []option.QueryOption) *gorm.DB {
	q := s.db.WithContext(ctx).Model(new(T))
	if filter != nil {
		q = q.Where(filter)
	}
	for _, opt := range opts {
		q = opt.Apply(q)
	}
	return q
}

func (s store[T]) Find(ctx context.Context, filter *T, opts ...option.QueryOption) ([]*T, error) {
	var rows []*T
	if err := s.where(ctx, filter, opts).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s store[T]) FindOne(ctx context.Context, filter *T, opts ...option.QueryOption) (*T, error) {
	row := new(T)
	err := s.where(ctx, filter, opts).Take(row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s store[T]) Create(ctx context.Context, row *T) error {
	return s.db.WithContext(ctx).Create(row).Error
}

func (s store[T]) Update(ctx context.Context, filter *T, fields map[string]any) (int64, error) {
	if filter == nil {
		return 0, ErrNilFilter
	}
	if len(fields) == 0 {
		return 0, nil
	}
	res := s.where(ctx, filter, nil).Updates(fields)
	return res.RowsAffected, res.Error
}

func (s store[T]) Delete(ctx context.Context, filter *T) (int64, error) {
	if filter == nil {
		return 0, ErrNilFilter
	}
	res := s.db.WithContext(ctx).Where(filter).Delete(new(T))
	return res.RowsAffected, res.Error
}
