package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *Entry) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Entry, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*Entry, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	List(ctx context.Context, db *gorm.DB, filter ListEntryFilter) ([]*Entry, error)
}

// ListEntryFilter narrows by store and/or scanning device. With Scope set,
// the union of the scope's stores and the scope's device is returned instead.
type ListEntryFilter struct {
	StoreID  *snowflake.ID
	DeviceID string
	Scope    *Scope
}

type Scope struct {
	StoreIDs []snowflake.ID
	DeviceID string
}
