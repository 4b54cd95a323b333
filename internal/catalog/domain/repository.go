package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindByBarcode(ctx context.Context, db *gorm.DB, barcode string) (*Product, error)
	Insert(ctx context.Context, db *gorm.DB, product *Product) error
	UpdateFields(ctx context.Context, db *gorm.DB, barcode string, fields map[string]any) error
	List(ctx context.Context, db *gorm.DB, filter ListProductFilter) ([]*Product, error)
}

type ListProductFilter struct {
	Query    string
	Category string
}
