package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	entrydomain "github.com/smallbiznis/shelflife/internal/entry/domain"
	"gorm.io/gorm"
)

type Repository interface {
	InsertSession(ctx context.Context, db *gorm.DB, session *Session) error
	InsertItems(ctx context.Context, db *gorm.DB, items []Item) error
	FindSession(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Session, error)
	ListByStore(ctx context.Context, db *gorm.DB, storeID snowflake.ID) ([]*Session, error)
	// RemainingEntries joins the unprocessed worklist to live entries in
	// position order.
	RemainingEntries(ctx context.Context, db *gorm.DB, sessionID snowflake.ID) ([]*entrydomain.Entry, error)
	// CountRemaining and MarkProcessed apply the same live-entry join, so a
	// deleted entry is neither counted nor actionable.
	CountRemaining(ctx context.Context, db *gorm.DB, sessionID snowflake.ID) (int, error)
	FindItem(ctx context.Context, db *gorm.DB, sessionID, entryID snowflake.ID) (*Item, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, sessionID, entryID snowflake.ID, action Action, memberID *snowflake.ID, at time.Time) (bool, error)
	IncrementCounter(ctx context.Context, db *gorm.DB, sessionID snowflake.ID, action Action) error
	Complete(ctx context.Context, db *gorm.DB, sessionID snowflake.ID, at time.Time) (bool, error)
}
