package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type PushToken struct {
	ID        snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	DeviceID  string       `gorm:"size:128;not null;uniqueIndex" json:"deviceId"`
	Token     string       `gorm:"size:255;not null" json:"token"`
	Platform  string       `gorm:"size:16;not null" json:"platform"`
	CreatedAt time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time    `gorm:"not null" json:"updatedAt"`
}

func (PushToken) TableName() string { return "push_tokens" }

// Schedule fires a reminder once per local day at Hour:Minute in Timezone.
// Weekdays holds a JSON array of time.Weekday numbers; empty means daily.
type Schedule struct {
	ID         snowflake.ID   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	DeviceID   string         `gorm:"size:128;not null;index" json:"deviceId"`
	StoreID    *snowflake.ID  `gorm:"index" json:"storeId"`
	Hour       int            `gorm:"not null" json:"hour"`
	Minute     int            `gorm:"not null" json:"minute"`
	Timezone   string         `gorm:"size:64;not null" json:"timezone"`
	DaysBefore int            `gorm:"not null" json:"daysBefore"`
	Enabled    bool           `gorm:"not null" json:"enabled"`
	Weekdays   datatypes.JSON `json:"weekdays"`
	LastSentOn *string        `gorm:"size:10" json:"lastSentOn"`
	CreatedAt  time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updatedAt"`
}

func (Schedule) TableName() string { return "notification_schedules" }

const (
	ReceiptSent    = "sent"
	ReceiptFailed  = "failed"
	ReceiptSkipped = "skipped"
)

// Receipt records one delivery attempt. IDs are ULIDs so receipts of a run
// sort by creation.
type Receipt struct {
	ID         string            `gorm:"primaryKey;size:26" json:"id"`
	RunID      string            `gorm:"size:26;not null;index" json:"runId"`
	DeviceID   string            `gorm:"size:128;not null;index" json:"deviceId"`
	ScheduleID *snowflake.ID     `json:"scheduleId"`
	Status     string            `gorm:"size:16;not null" json:"status"`
	TicketID   *string           `gorm:"size:128" json:"ticketId"`
	Payload    datatypes.JSONMap `json:"payload"`
	Error      *string           `json:"error"`
	CreatedAt  time.Time         `gorm:"not null" json:"createdAt"`
}

func (Receipt) TableName() string { return "push_receipts" }
