package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertStore(ctx context.Context, db *gorm.DB, store *Store) error
	FindStore(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Store, error)
	FindStoreByCode(ctx context.Context, db *gorm.DB, code string) (*Store, error)
	CodeExists(ctx context.Context, db *gorm.DB, code string) (bool, error)
	DeleteStore(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertMember(ctx context.Context, db *gorm.DB, member *Member) error
	FindMember(ctx context.Context, db *gorm.DB, storeID snowflake.ID, deviceID string) (*Member, error)
	FindMemberByID(ctx context.Context, db *gorm.DB, storeID, memberID snowflake.ID) (*Member, error)
	ListMembers(ctx context.Context, db *gorm.DB, storeID snowflake.ID) ([]*Member, error)
	CountMembers(ctx context.Context, db *gorm.DB, storeID snowflake.ID) (int, error)
	ListMembershipsByDevice(ctx context.Context, db *gorm.DB, deviceID string) ([]*Member, error)
	UpdateMember(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	DeleteMember(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	// DetachStoreData releases rows that referenced the store: entries and
	// batches lose their store, daily checks and members are removed.
	DetachStoreData(ctx context.Context, db *gorm.DB, storeID snowflake.ID) error
}
