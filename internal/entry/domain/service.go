package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateEntryRequest struct {
	Barcode        string
	ProductName    string
	Category       *string
	ExpirationDate string
	Quantity       *int
	Location       *string
	Notes          *string
	ImageURL       *string
	StoreID        string
	MemberID       string
	DeviceID       string
}

// UpdateEntryRequest is a partial update; nil fields keep their value.
type UpdateEntryRequest struct {
	ProductName    *string
	Category       *string
	ExpirationDate *string
	Quantity       *int
	Location       *string
	Notes          *string
	ImageURL       *string
}

type ListEntryRequest struct {
	StoreID  string
	DeviceID string
	Status   string
}

// MaterializeRequest is an already validated entry, as produced by a
// completed batch item.
type MaterializeRequest struct {
	Barcode        string
	ProductName    string
	Category       *string
	ExpirationDate time.Time
	Quantity       int
	Location       *string
	Notes          *string
	ImageURL       *string
	StoreID        *snowflake.ID
	MemberID       *snowflake.ID
	DeviceID       string
	Source         string
}

type ExpiringRequest struct {
	Scope      Scope
	WithinDays int
}

type Service interface {
	Create(context.Context, CreateEntryRequest) (Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
	Update(ctx context.Context, id string, req UpdateEntryRequest) (Entry, error)
	Delete(ctx context.Context, id string) error
	List(context.Context, ListEntryRequest) ([]Entry, error)
	Stats(context.Context, ListEntryRequest) (Stats, error)
	Materialize(ctx context.Context, tx *gorm.DB, req MaterializeRequest) (Entry, error)
	ListExpiring(context.Context, ExpiringRequest) ([]Entry, error)
	// Today is the reference date used for classification.
	Today() time.Time
}

const (
	SourceScan  = "scan"
	SourceBatch = "batch"
)

var (
	ErrInvalidID             = errors.New("invalid_id")
	ErrInvalidBarcode        = errors.New("invalid_barcode")
	ErrInvalidProductName    = errors.New("invalid_product_name")
	ErrInvalidExpirationDate = errors.New("invalid_expiration_date")
	ErrInvalidQuantity       = errors.New("invalid_quantity")
	ErrInvalidStoreID        = errors.New("invalid_store_id")
	ErrInvalidMemberID       = errors.New("invalid_member_id")
	ErrInvalidStatus         = errors.New("invalid_status")
	ErrNotFound              = errors.New("entry_not_found")
)
