package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelflife/internal/entry/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.Entry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO product_entries (id, barcode, product_name, category, expiration_date, quantity,
			location, notes, image_url, status, store_id, member_id, device_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Barcode,
		entry.ProductName,
		entry.Category,
		entry.ExpirationDate,
		entry.Quantity,
		entry.Location,
		entry.Notes,
		entry.ImageURL,
		entry.Status,
		entry.StoreID,
		entry.MemberID,
		entry.DeviceID,
		entry.CreatedAt,
		entry.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Entry, error) {
	var entry domain.Entry
	err := db.WithContext(ctx).
		Model(&domain.Entry{}).
		Where("id = ?", id).
		Limit(1).
		Find(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*domain.Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var entries []*domain.Entry
	err := db.WithContext(ctx).
		Model(&domain.Entry{}).
		Where("id IN ?", ids).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.Entry{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM product_entries WHERE id = ?`, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// List orders soonest-expiring first; ties keep insertion order.
func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListEntryFilter) ([]*domain.Entry, error) {
	var entries []*domain.Entry
	stmt := db.WithContext(ctx).Model(&domain.Entry{})

	if filter.Scope != nil {
		scope := filter.Scope
		switch {
		case len(scope.StoreIDs) > 0 && scope.DeviceID != "":
			stmt = stmt.Where("store_id IN ? OR device_id = ?", scope.StoreIDs, scope.DeviceID)
		case len(scope.StoreIDs) > 0:
			stmt = stmt.Where("store_id IN ?", scope.StoreIDs)
		case scope.DeviceID != "":
			stmt = stmt.Where("device_id = ?", scope.DeviceID)
		default:
			return nil, nil
		}
	}
	if filter.StoreID != nil {
		stmt = stmt.Where("store_id = ?", *filter.StoreID)
	}
	if filter.DeviceID != "" {
		stmt = stmt.Where("device_id = ?", filter.DeviceID)
	}

	err := stmt.
		Order("expiration_date asc, created_at asc, id asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
