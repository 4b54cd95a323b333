package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelflife/internal/batch/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, session *domain.BatchSession) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO batch_sessions (id, device_id, name, status, item_count, store_id, member_id, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.DeviceID,
		session.Name,
		session.Status,
		session.ItemCount,
		session.StoreID,
		session.MemberID,
		session.CreatedAt,
		session.CompletedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.BatchSession, error) {
	var session domain.BatchSession
	err := db.WithContext(ctx).
		Model(&domain.BatchSession{}).
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

func (r *repo) ListByDevice(ctx context.Context, db *gorm.DB, deviceID string) ([]*domain.BatchSession, error) {
	var sessions []*domain.BatchSession
	err := db.WithContext(ctx).
		Model(&domain.BatchSession{}).
		Where("device_id = ?", deviceID).
		Order("created_at desc, id desc").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repo) InsertItem(ctx context.Context, db *gorm.DB, item *domain.BatchItem) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO batch_items (id, batch_id, barcode, product_name, category, expiration_date, quantity,
			location, notes, image_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.BatchID,
		item.Barcode,
		item.ProductName,
		item.Category,
		item.ExpirationDate,
		item.Quantity,
		item.Location,
		item.Notes,
		item.ImageURL,
		item.CreatedAt,
	).Error
}

// IncrementItemCount bumps the counter in place and returns the new value.
// It only touches in-progress sessions; zero rows means the session moved on.
func (r *repo) IncrementItemCount(ctx context.Context, db *gorm.DB, id snowflake.ID) (int, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE batch_sessions SET item_count = item_count + 1 WHERE id = ? AND status = ?`,
		id, domain.StatusInProgress,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, domain.ErrInvalidState
	}

	var count int
	err := db.WithContext(ctx).Raw(
		`SELECT item_count FROM batch_sessions WHERE id = ?`, id,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, batchID snowflake.ID) ([]*domain.BatchItem, error) {
	var items []*domain.BatchItem
	err := db.WithContext(ctx).
		Model(&domain.BatchItem{}).
		Where("batch_id = ?", batchID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountItems(ctx context.Context, db *gorm.DB, batchID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.BatchItem{}).
		Where("batch_id = ?", batchID).
		Count(&count).Error
	return count, err
}

func (r *repo) MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE batch_sessions SET status = ?, completed_at = ? WHERE id = ? AND status = ?`,
		domain.StatusCompleted, at, id, domain.StatusInProgress,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	if err := db.WithContext(ctx).Exec(`DELETE FROM batch_items WHERE batch_id = ?`, id).Error; err != nil {
		return false, err
	}
	res := db.WithContext(ctx).Exec(`DELETE FROM batch_sessions WHERE id = ?`, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
