package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Action string

const (
	ActionStoreCreated         Action = "store.created"
	ActionStoreDeleted         Action = "store.deleted"
	ActionMemberJoined         Action = "member.joined"
	ActionMemberLeft           Action = "member.left"
	ActionNicknameUpdated      Action = "member.nickname_updated"
	ActionOwnershipTransferred Action = "store.ownership_transferred"
	ActionDailyCheckStarted    Action = "daily_check.started"
	ActionDailyCheckCompleted  Action = "daily_check.completed"
)

const (
	TargetStore      = "store"
	TargetMember     = "member"
	TargetDailyCheck = "daily_check"
)

// ActivityLog is one append-only event in a store's history. Rows outlive
// the store they describe.
type ActivityLog struct {
	ID            snowflake.ID      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	StoreID       snowflake.ID      `gorm:"not null;index:idx_store_activity_store_created,priority:1" json:"storeId"`
	ActorDeviceID *string           `gorm:"size:128" json:"actorDeviceId,omitempty"`
	Action        Action            `gorm:"size:64;not null" json:"action"`
	TargetType    string            `gorm:"size:32;not null" json:"targetType"`
	TargetID      *string           `gorm:"size:64" json:"targetId,omitempty"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty"`
	IPAddress     *string           `gorm:"size:64" json:"-"`
	CreatedAt     time.Time         `gorm:"not null;index:idx_store_activity_store_created,priority:2" json:"createdAt"`
}

func (ActivityLog) TableName() string { return "store_activity_logs" }

type ListFilter struct {
	StoreID  snowflake.ID
	Action   string
	BeforeID snowflake.ID
	Limit    int
}
