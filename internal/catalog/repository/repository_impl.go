package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/shelflife/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByBarcode(ctx context.Context, db *gorm.DB, barcode string) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT barcode, name, category, image_url, created_at, updated_at
		 FROM products WHERE barcode = ?`,
		barcode,
	).Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.Barcode == "" {
		return nil, nil
	}
	return &product, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (barcode, name, category, image_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		product.Barcode,
		product.Name,
		product.Category,
		product.ImageURL,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, barcode string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("barcode = ?", barcode).
		Updates(fields).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListProductFilter) ([]*domain.Product, error) {
	var products []*domain.Product
	stmt := db.WithContext(ctx).Model(&domain.Product{})
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		stmt = stmt.Where("LOWER(name) LIKE ? OR barcode LIKE ?", like, like)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		stmt = stmt.Where("category = ?", category)
	}
	if err := stmt.Order("name asc, barcode asc").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
