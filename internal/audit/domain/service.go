package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

type RecordRequest struct {
	StoreID snowflake.ID
	// ActorDeviceID falls back to the device on the request context.
	ActorDeviceID string
	Action        Action
	TargetType    string
	TargetID      string
	Metadata      map[string]any
}

type ListRequest struct {
	StoreID  string
	Action   string
	Before   string
	PageSize int
}

type ListResponse struct {
	Activity   []ActivityLog `json:"activity"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

type Service interface {
	Record(ctx context.Context, req RecordRequest) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidStoreID = errors.New("invalid_store_id")
	ErrInvalidAction  = errors.New("invalid_action")
	ErrInvalidCursor  = errors.New("invalid_cursor")
)
