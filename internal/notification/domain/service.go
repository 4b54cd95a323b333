package domain

import (
	"context"
	"errors"
	"time"
)

const (
	MinDaysBefore = 1
	MaxDaysBefore = 30
)

type RegisterTokenRequest struct {
	DeviceID string
	Token    string
	Platform string
}

type CreateScheduleRequest struct {
	DeviceID   string
	StoreID    string
	Hour       int
	Minute     int
	Timezone   string
	DaysBefore int
	Enabled    *bool
	Weekdays   []int
}

type UpdateScheduleRequest struct {
	StoreID    *string
	Hour       *int
	Minute     *int
	Timezone   *string
	DaysBefore *int
	Enabled    *bool
	Weekdays   *[]int
}

// SendRequest targets the listed devices, or every device with a push token
// when DeviceIDs is empty. DaysBefore 0 uses the configured look-ahead.
type SendRequest struct {
	DeviceIDs  []string
	DaysBefore int
}

type SendResult struct {
	RunID   string `json:"runId"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
	Skipped int    `json:"skipped"`
}

type Service interface {
	RegisterToken(context.Context, RegisterTokenRequest) (PushToken, error)
	UnregisterToken(ctx context.Context, deviceID string) error

	CreateSchedule(context.Context, CreateScheduleRequest) (Schedule, error)
	GetSchedule(ctx context.Context, id string) (Schedule, error)
	ListSchedules(ctx context.Context, deviceID string) ([]Schedule, error)
	UpdateSchedule(ctx context.Context, id string, req UpdateScheduleRequest) (Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error

	SendExpirationReminders(context.Context, SendRequest) (SendResult, error)
	// RunDueSchedules sends every enabled schedule whose slot is due at now
	// and that has not fired on its local date yet.
	RunDueSchedules(ctx context.Context, now time.Time) (SendResult, error)
}

var (
	ErrInvalidID         = errors.New("invalid_schedule_id")
	ErrInvalidDeviceID   = errors.New("invalid_device_id")
	ErrInvalidToken      = errors.New("invalid_push_token")
	ErrInvalidPlatform   = errors.New("invalid_platform")
	ErrInvalidStoreID    = errors.New("invalid_store_id")
	ErrInvalidHour       = errors.New("invalid_hour")
	ErrInvalidMinute     = errors.New("invalid_minute")
	ErrInvalidTimezone   = errors.New("invalid_timezone")
	ErrInvalidDaysBefore = errors.New("invalid_days_before")
	ErrInvalidWeekdays   = errors.New("invalid_weekdays")
	ErrNotFound          = errors.New("schedule_not_found")
	ErrTokenNotFound     = errors.New("push_token_not_found")
)
