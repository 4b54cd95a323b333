package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

type Action string

const (
	ActionChecked    Action = "checked"
	ActionDiscounted Action = "discounted"
	ActionSold       Action = "sold"
	ActionDiscarded  Action = "discarded"
	ActionSkipped    Action = "skipped"
)

func (a Action) Valid() bool {
	switch a {
	case ActionChecked, ActionDiscounted, ActionSold, ActionDiscarded, ActionSkipped:
		return true
	default:
		return false
	}
}

// CounterColumn is the session column incremented for the action.
func (a Action) CounterColumn() string {
	switch a {
	case ActionChecked:
		return "checked_count"
	case ActionDiscounted:
		return "discounted_count"
	case ActionSold:
		return "sold_count"
	case ActionDiscarded:
		return "discarded_count"
	case ActionSkipped:
		return "skipped_count"
	default:
		return ""
	}
}

type Session struct {
	ID              snowflake.ID  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	StoreID         snowflake.ID  `gorm:"not null;index" json:"storeId"`
	MemberID        *snowflake.ID `json:"memberId"`
	WarningDays     int           `gorm:"not null" json:"warningDays"`
	Status          Status        `gorm:"size:32;not null" json:"status"`
	TotalItems      int           `gorm:"not null;default:0" json:"totalItems"`
	CheckedCount    int           `gorm:"not null;default:0" json:"checkedCount"`
	DiscountedCount int           `gorm:"not null;default:0" json:"discountedCount"`
	SoldCount       int           `gorm:"not null;default:0" json:"soldCount"`
	DiscardedCount  int           `gorm:"not null;default:0" json:"discardedCount"`
	SkippedCount    int           `gorm:"not null;default:0" json:"skippedCount"`
	StartedAt       time.Time     `gorm:"not null" json:"startedAt"`
	CompletedAt     *time.Time    `json:"completedAt"`
}

func (Session) TableName() string { return "daily_check_sessions" }

// ProcessedCount is the number of recorded actions.
func (s Session) ProcessedCount() int {
	return s.CheckedCount + s.DiscountedCount + s.SoldCount + s.DiscardedCount + s.SkippedCount
}

// Item is one entry frozen into a session's worklist at start.
type Item struct {
	SessionID   snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	EntryID     snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	Position    int          `gorm:"not null"`
	Action      *Action      `gorm:"size:32"`
	MemberID    *snowflake.ID
	ProcessedAt *time.Time
}

func (Item) TableName() string { return "daily_check_items" }

type Summary struct {
	Session
	Processed int `json:"processed"`
	Remaining int `json:"remaining"`
}
