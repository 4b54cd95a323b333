package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// UpsertRequest only overwrites the fields that are set. Name is always
// applied when non-empty.
type UpsertRequest struct {
	Barcode  string
	Name     string
	Category *string
	ImageURL *string
}

type ListProductRequest struct {
	Query    string
	Category string
}

type Service interface {
	Upsert(context.Context, UpsertRequest) (Product, error)
	// UpsertTx runs the same merge inside a caller-owned transaction.
	UpsertTx(ctx context.Context, tx *gorm.DB, req UpsertRequest) (Product, error)
	GetByBarcode(ctx context.Context, barcode string) (Product, error)
	List(context.Context, ListProductRequest) ([]Product, error)
}

var (
	ErrInvalidBarcode = errors.New("invalid_barcode")
	ErrInvalidName    = errors.New("invalid_product_name")
	ErrNotFound       = errors.New("product_not_found")
)
