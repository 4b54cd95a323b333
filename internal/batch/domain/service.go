package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	entrydomain "github.com/smallbiznis/shelflife/internal/entry/domain"
)

type CreateBatchRequest struct {
	DeviceID string
	Name     string
	StoreID  string
	MemberID string
}

type AddItemRequest struct {
	Barcode        string
	ProductName    string
	Category       *string
	ExpirationDate string
	Quantity       *int
	Location       *string
	Notes          *string
	ImageURL       *string
}

type AddItemResult struct {
	Item           BatchItem
	BatchItemCount int
}

type FailedItem struct {
	ItemID  snowflake.ID `json:"itemId"`
	Barcode string       `json:"barcode"`
	Error   string       `json:"error"`
}

type CompleteResult struct {
	Batch          BatchSession
	EntriesCreated int
	Entries        []entrydomain.Entry
	Failed         []FailedItem
}

type Service interface {
	Create(context.Context, CreateBatchRequest) (BatchSession, error)
	ListByDevice(ctx context.Context, deviceID string) ([]BatchSession, error)
	Get(ctx context.Context, id string) (BatchSession, error)
	AddItem(ctx context.Context, batchID string, req AddItemRequest) (AddItemResult, error)
	ListItems(ctx context.Context, batchID string) ([]BatchItem, error)
	Complete(ctx context.Context, batchID string) (CompleteResult, error)
	Delete(ctx context.Context, batchID string) error
}

var (
	ErrInvalidID             = errors.New("invalid_batch_id")
	ErrInvalidDeviceID       = errors.New("invalid_device_id")
	ErrInvalidStoreID        = errors.New("invalid_store_id")
	ErrInvalidMemberID       = errors.New("invalid_member_id")
	ErrInvalidBarcode        = errors.New("invalid_barcode")
	ErrInvalidProductName    = errors.New("invalid_product_name")
	ErrInvalidExpirationDate = errors.New("invalid_expiration_date")
	ErrInvalidQuantity       = errors.New("invalid_quantity")
	ErrNotFound              = errors.New("batch_not_found")
	ErrInvalidState          = errors.New("batch_not_in_progress")
)
