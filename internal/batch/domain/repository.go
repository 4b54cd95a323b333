package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, session *BatchSession) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*BatchSession, error)
	ListByDevice(ctx context.Context, db *gorm.DB, deviceID string) ([]*BatchSession, error)
	InsertItem(ctx context.Context, db *gorm.DB, item *BatchItem) error
	IncrementItemCount(ctx context.Context, db *gorm.DB, id snowflake.ID) (int, error)
	ListItems(ctx context.Context, db *gorm.DB, batchID snowflake.ID) ([]*BatchItem, error)
	CountItems(ctx context.Context, db *gorm.DB, batchID snowflake.ID) (int64, error)
	// MarkCompleted flips an in-progress session and reports whether it did.
	MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}
