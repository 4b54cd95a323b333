package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleMember Role = "MEMBER"
)

type Store struct {
	ID        snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Slug      string       `gorm:"size:128;not null;index" json:"slug"`
	Code      string       `gorm:"size:16;not null;uniqueIndex" json:"code"`
	CreatedAt time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time    `gorm:"not null" json:"updatedAt"`
}

func (Store) TableName() string { return "stores" }

type Member struct {
	ID       snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	StoreID  snowflake.ID `gorm:"not null;uniqueIndex:ux_store_members_store_device,priority:1" json:"storeId"`
	DeviceID string       `gorm:"size:128;not null;uniqueIndex:ux_store_members_store_device,priority:2;index" json:"deviceId"`
	Nickname string       `gorm:"size:64;not null" json:"nickname"`
	Role     Role         `gorm:"size:16;not null" json:"role"`
	JoinedAt time.Time    `gorm:"not null" json:"joinedAt"`
}

func (Member) TableName() string { return "store_members" }

type Membership struct {
	Store       Store  `json:"store"`
	Member      Member `json:"member"`
	MemberCount int    `json:"memberCount"`
}
