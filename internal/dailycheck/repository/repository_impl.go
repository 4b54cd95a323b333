package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelflife/internal/dailycheck/domain"
	entrydomain "github.com/smallbiznis/shelflife/internal/entry/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertSession(ctx context.Context, db *gorm.DB, session *domain.Session) error {
	return db.WithContext(ctx).Create(session).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(items, 200).Error
}

func (r *repo) FindSession(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Session, error) {
	var session domain.Session
	err := db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ?", id).
		Limit(1).
		Find(&session).Error
	if err != nil {
		return nil, err
	}
	if session.ID == 0 {
		return nil, nil
	}
	return &session, nil
}

func (r *repo) ListByStore(ctx context.Context, db *gorm.DB, storeID snowflake.ID) ([]*domain.Session, error) {
	var sessions []*domain.Session
	err := db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("store_id = ?", storeID).
		Order("started_at desc, id desc").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repo) RemainingEntries(ctx context.Context, db *gorm.DB, sessionID snowflake.ID) ([]*entrydomain.Entry, error) {
	var entries []*entrydomain.Entry
	err := db.WithContext(ctx).Raw(
		`SELECT e.*
		 FROM daily_check_items i
		 JOIN product_entries e ON e.id = i.entry_id
		 WHERE i.session_id = ? AND i.action IS NULL
		 ORDER BY i.position ASC`,
		sessionID,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) CountRemaining(ctx context.Context, db *gorm.DB, sessionID snowflake.ID) (int, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*)
		 FROM daily_check_items i
		 JOIN product_entries e ON e.id = i.entry_id
		 WHERE i.session_id = ? AND i.action IS NULL`,
		sessionID,
	).Scan(&count).Error
	return int(count), err
}

func (r *repo) FindItem(ctx context.Context, db *gorm.DB, sessionID, entryID snowflake.ID) (*domain.Item, error) {
	var items []domain.Item
	err := db.WithContext(ctx).
		Model(&domain.Item{}).
		Where("session_id = ? AND entry_id = ?", sessionID, entryID).
		Limit(1).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (r *repo) MarkProcessed(ctx context.Context, db *gorm.DB, sessionID, entryID snowflake.ID, action domain.Action, memberID *snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE daily_check_items
		 SET action = ?, member_id = ?, processed_at = ?
		 WHERE session_id = ? AND entry_id = ? AND action IS NULL
		   AND EXISTS (SELECT 1 FROM product_entries e WHERE e.id = daily_check_items.entry_id)`,
		action, memberID, at, sessionID, entryID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) IncrementCounter(ctx context.Context, db *gorm.DB, sessionID snowflake.ID, action domain.Action) error {
	column := action.CounterColumn()
	if column == "" {
		return domain.ErrInvalidAction
	}
	// column comes from a closed set above, never from input.
	return db.WithContext(ctx).Exec(
		fmt.Sprintf(`UPDATE daily_check_sessions SET %[1]s = %[1]s + 1 WHERE id = ?`, column),
		sessionID,
	).Error
}

func (r *repo) Complete(ctx context.Context, db *gorm.DB, sessionID snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE daily_check_sessions SET status = ?, completed_at = ? WHERE id = ? AND status = ?`,
		domain.StatusCompleted, at, sessionID, domain.StatusInProgress,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
