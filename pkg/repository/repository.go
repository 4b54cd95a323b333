package repository

import (
	"context"

	"github.com/smallbiznis/shelflife/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a generic GORM-backed store for simple keyed tables.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID any, fields map[string]any) error
	Delete(ctx context.Context, resourceID any) (bool, error)
	Count(ctx context.Context, query *T) (int64, error)
}
