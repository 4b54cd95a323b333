package domain

import (
	"context"
	"errors"

	entrydomain "github.com/smallbiznis/shelflife/internal/entry/domain"
)

const (
	MinWarningDays = 1
	MaxWarningDays = 30
)

type StartRequest struct {
	StoreID     string
	MemberID    string
	// WarningDays nil means the configured default; any given value must
	// be within [MinWarningDays, MaxWarningDays].
	WarningDays *int
	// DeviceID, when set, must belong to a member allowed to run checks.
	DeviceID string
}

type RecordActionRequest struct {
	EntryID  string
	Action   string
	MemberID string
}

type Service interface {
	Start(context.Context, StartRequest) (Summary, error)
	Get(ctx context.Context, sessionID string) (Summary, error)
	Worklist(ctx context.Context, sessionID string) ([]entrydomain.Entry, error)
	RecordAction(ctx context.Context, sessionID string, req RecordActionRequest) (Summary, error)
	Complete(ctx context.Context, sessionID string) (Summary, error)
	ListByStore(ctx context.Context, storeID string) ([]Session, error)
}

var (
	ErrInvalidID          = errors.New("invalid_session_id")
	ErrInvalidStoreID     = errors.New("invalid_store_id")
	ErrInvalidMemberID    = errors.New("invalid_member_id")
	ErrInvalidEntryID     = errors.New("invalid_entry_id")
	ErrInvalidWarningDays = errors.New("invalid_warning_days")
	ErrInvalidAction      = errors.New("invalid_action")
	ErrNotFound           = errors.New("daily_check_not_found")
	ErrEntryNotInWorklist = errors.New("entry_not_in_worklist")
	ErrAlreadyProcessed   = errors.New("entry_already_processed")
	ErrInvalidState       = errors.New("daily_check_not_in_progress")
)
