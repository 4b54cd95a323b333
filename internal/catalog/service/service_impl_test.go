package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/shelflife/internal/cache"
	"github.com/smallbiznis/shelflife/internal/catalog/domain"
	"github.com/smallbiznis/shelflife/internal/catalog/repository"
	"github.com/smallbiznis/shelflife/internal/clock"
	"github.com/smallbiznis/shelflife/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func strPtr(v string) *string { return &v }

func newTestService(t *testing.T) (*Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()
	db := testutil.OpenDB(t, &domain.Product{})
	clk := clock.NewFakeClock(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clk,
		Repo:  repository.Provide(),
		Cache: cache.NewProductCache(),
	}).(*Service)
	return svc, db, clk
}

func countProducts(t *testing.T, db *gorm.DB) int64 {
	var n int64
	require.NoError(t, db.Model(&domain.Product{}).Count(&n).Error)
	return n
}

func TestUpsertIsIdempotent(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	req := domain.UpsertRequest{Barcode: "123", Name: "Milk", Category: strPtr("Dairy")}

	first, err := svc.Upsert(ctx, req)
	require.NoError(t, err)
	second, err := svc.Upsert(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, int64(1), countProducts(t, db))
	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, *first.Category, *second.Category)
}

func TestUpsertPreservesExistingFields(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, domain.UpsertRequest{Barcode: "123", Name: "Milk", Category: strPtr("Dairy"), ImageURL: strPtr("/uploads/a.jpg")})
	require.NoError(t, err)

	clk.Advance(time.Hour)
	updated, err := svc.Upsert(ctx, domain.UpsertRequest{Barcode: "123", Name: "Whole Milk", Category: strPtr("  ")})
	require.NoError(t, err)
	assert.Equal(t, "Whole Milk", updated.Name)
	require.NotNil(t, updated.Category)
	assert.Equal(t, "Dairy", *updated.Category)

	svc.cache.InvalidateProduct("123")
	stored, err := svc.GetByBarcode(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, "Whole Milk", stored.Name)
	assert.Equal(t, "Dairy", *stored.Category)
	assert.Equal(t, "/uploads/a.jpg", *stored.ImageURL)
	assert.True(t, stored.UpdatedAt.After(stored.CreatedAt))
}

func TestUpsertValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, domain.UpsertRequest{Barcode: "   ", Name: "Milk"})
	assert.ErrorIs(t, err, domain.ErrInvalidBarcode)

	_, err = svc.Upsert(ctx, domain.UpsertRequest{Barcode: "999"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestUpsertAcceptsAnyBarcodeFormat(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	for _, code := range []string{"4006381333931", "96385074", "CODE-39 ABC", "0"} {
		_, err := svc.Upsert(ctx, domain.UpsertRequest{Barcode: code, Name: "Item"})
		assert.NoError(t, err, code)
	}
}

func TestGetByBarcodeNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.GetByBarcode(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpsertTxRollsBackWithCaller(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := svc.UpsertTx(ctx, tx, domain.UpsertRequest{Barcode: "555", Name: "Bread"}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = svc.GetByBarcode(ctx, "555")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListOrdersByName(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	for _, p := range []domain.UpsertRequest{
		{Barcode: "3", Name: "Yogurt", Category: strPtr("Dairy")},
		{Barcode: "1", Name: "Apples", Category: strPtr("Produce")},
		{Barcode: "2", Name: "Butter", Category: strPtr("Dairy")},
	} {
		_, err := svc.Upsert(ctx, p)
		require.NoError(t, err)
	}

	all, err := svc.List(ctx, domain.ListProductRequest{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Apples", "Butter", "Yogurt"}, []string{all[0].Name, all[1].Name, all[2].Name})

	dairy, err := svc.List(ctx, domain.ListProductRequest{Category: "Dairy", Query: "butt"})
	require.NoError(t, err)
	require.Len(t, dairy, 1)
	assert.Equal(t, "2", dairy[0].Barcode)
}
