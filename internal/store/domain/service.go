package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

const (
	CodeLength      = 6
	CodeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	MaxCodeAttempts = 10
	MaxNameLength   = 100
	MaxNickLength   = 64
)

// CodeGenerator returns one candidate invite code.
type CodeGenerator func() (string, error)

// JoinLimiter throttles invite-code attempts per caller key.
type JoinLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type CreateStoreRequest struct {
	Name     string
	Nickname string
	DeviceID string
}

type JoinStoreRequest struct {
	Code     string
	Nickname string
	DeviceID string
	// ClientKey identifies the caller for rate limiting, usually the IP.
	ClientKey string
}

type TransferRequest struct {
	StoreID           string
	RequesterDeviceID string
	TargetMemberID    string
}

type Service interface {
	Create(context.Context, CreateStoreRequest) (Membership, error)
	Join(context.Context, JoinStoreRequest) (Membership, error)
	Get(ctx context.Context, storeID string) (Store, error)
	ListByDevice(ctx context.Context, deviceID string) ([]Membership, error)
	Members(ctx context.Context, storeID string) ([]Member, error)
	StoreIDsForDevice(ctx context.Context, deviceID string) ([]snowflake.ID, error)
	Leave(ctx context.Context, storeID, deviceID string) error
	Delete(ctx context.Context, storeID, requesterDeviceID string) error
	TransferOwnership(context.Context, TransferRequest) (Member, error)
	UpdateNickname(ctx context.Context, storeID, deviceID, nickname string) (Member, error)
}

var (
	ErrInvalidID               = errors.New("invalid_store_id")
	ErrInvalidName             = errors.New("invalid_store_name")
	ErrInvalidNickname         = errors.New("invalid_nickname")
	ErrInvalidDeviceID         = errors.New("invalid_device_id")
	ErrInvalidCode             = errors.New("invalid_store_code")
	ErrInvalidMemberID         = errors.New("invalid_member_id")
	ErrNotFound                = errors.New("store_not_found")
	ErrMemberNotFound          = errors.New("store_member_not_found")
	ErrAlreadyMember           = errors.New("already_member")
	ErrOwnerMustDelete         = errors.New("owner_cannot_leave_with_members")
	ErrInvalidTransfer         = errors.New("invalid_ownership_transfer")
	ErrRateLimited             = errors.New("join_rate_limited")
	ErrCodeGenerationExhausted = errors.New("store_code_generation_exhausted")
)
