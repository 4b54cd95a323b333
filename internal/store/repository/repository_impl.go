package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelflife/internal/store/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertStore(ctx context.Context, db *gorm.DB, store *domain.Store) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO stores (id, name, slug, code, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		store.ID,
		store.Name,
		store.Slug,
		store.Code,
		store.CreatedAt,
		store.UpdatedAt,
	).Error
}

func (r *repo) FindStore(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Store, error) {
	var store domain.Store
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, code, created_at, updated_at
		 FROM stores
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&store).Error
	if err != nil {
		return nil, err
	}
	if store.ID == 0 {
		return nil, nil
	}
	return &store, nil
}

func (r *repo) FindStoreByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Store, error) {
	var store domain.Store
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, code, created_at, updated_at
		 FROM stores
		 WHERE code = ?
		 LIMIT 1`,
		code,
	).Scan(&store).Error
	if err != nil {
		return nil, err
	}
	if store.ID == 0 {
		return nil, nil
	}
	return &store, nil
}

func (r *repo) CodeExists(ctx context.Context, db *gorm.DB, code string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Store{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) DeleteStore(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM stores WHERE id = ?`, id).Error
}

func (r *repo) InsertMember(ctx context.Context, db *gorm.DB, member *domain.Member) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO store_members (id, store_id, device_id, nickname, role, joined_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		member.ID,
		member.StoreID,
		member.DeviceID,
		member.Nickname,
		member.Role,
		member.JoinedAt,
	).Error
}

func (r *repo) FindMember(ctx context.Context, db *gorm.DB, storeID snowflake.ID, deviceID string) (*domain.Member, error) {
	var member domain.Member
	err := db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("store_id = ? AND device_id = ?", storeID, deviceID).
		Limit(1).
		Find(&member).Error
	if err != nil {
		return nil, err
	}
	if member.ID == 0 {
		return nil, nil
	}
	return &member, nil
}

func (r *repo) FindMemberByID(ctx context.Context, db *gorm.DB, storeID, memberID snowflake.ID) (*domain.Member, error) {
	var member domain.Member
	err := db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("store_id = ? AND id = ?", storeID, memberID).
		Limit(1).
		Find(&member).Error
	if err != nil {
		return nil, err
	}
	if member.ID == 0 {
		return nil, nil
	}
	return &member, nil
}

func (r *repo) ListMembers(ctx context.Context, db *gorm.DB, storeID snowflake.ID) ([]*domain.Member, error) {
	var members []*domain.Member
	err := db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("store_id = ?", storeID).
		Order("joined_at asc, id asc").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repo) CountMembers(ctx context.Context, db *gorm.DB, storeID snowflake.ID) (int, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("store_id = ?", storeID).
		Count(&count).Error
	return int(count), err
}

func (r *repo) ListMembershipsByDevice(ctx context.Context, db *gorm.DB, deviceID string) ([]*domain.Member, error) {
	var members []*domain.Member
	err := db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("device_id = ?", deviceID).
		Order("joined_at asc, id asc").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repo) UpdateMember(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) DeleteMember(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM store_members WHERE id = ?`, id).Error
}

func (r *repo) DetachStoreData(ctx context.Context, db *gorm.DB, storeID snowflake.ID) error {
	statements := []string{
		`UPDATE product_entries SET store_id = NULL, member_id = NULL WHERE store_id = ?`,
		`UPDATE batch_sessions SET store_id = NULL, member_id = NULL WHERE store_id = ?`,
		`DELETE FROM daily_check_items WHERE session_id IN (SELECT id FROM daily_check_sessions WHERE store_id = ?)`,
		`DELETE FROM daily_check_sessions WHERE store_id = ?`,
		`UPDATE notification_schedules SET store_id = NULL WHERE store_id = ?`,
		`DELETE FROM store_members WHERE store_id = ?`,
	}
	for _, stmt := range statements {
		if err := db.WithContext(ctx).Exec(stmt, storeID).Error; err != nil {
			return err
		}
	}
	return nil
}
