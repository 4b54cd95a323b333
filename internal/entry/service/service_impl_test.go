package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/shelflife/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/shelflife/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/shelflife/internal/catalog/service"
	"github.com/smallbiznis/shelflife/internal/clock"
	"github.com/smallbiznis/shelflife/internal/config"
	"github.com/smallbiznis/shelflife/internal/entry/domain"
	"github.com/smallbiznis/shelflife/internal/entry/repository"
	"github.com/smallbiznis/shelflife/internal/expiry"
	"github.com/smallbiznis/shelflife/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }

type fixture struct {
	svc     *Service
	db      *gorm.DB
	clock   *clock.FakeClock
	catalog catalogdomain.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.OpenDB(t, &catalogdomain.Product{}, &domain.Entry{})
	clk := clock.NewFakeClock(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
	catalog := catalogservice.New(catalogservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clk,
		Repo:  catalogrepo.Provide(),
	})
	svc := New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   testutil.MustNode(t),
		Clock:   clk,
		Repo:    repository.Provide(),
		Catalog: catalog,
		Expiry:  config.NewStaticExpiryConfigHolder(config.DefaultExpiryConfig()),
	}).(*Service)
	return fixture{svc: svc, db: db, clock: clk, catalog: catalog}
}

func (f fixture) create(t *testing.T, barcode, date string) domain.Entry {
	t.Helper()
	entry, err := f.svc.Create(context.Background(), domain.CreateEntryRequest{
		Barcode:        barcode,
		ProductName:    "Product " + barcode,
		ExpirationDate: date,
		DeviceID:       "device-1",
	})
	require.NoError(t, err)
	return entry
}

func TestCreateClassifiesAndUpsertsCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.svc.Create(ctx, domain.CreateEntryRequest{
		Barcode:        " 8991234 ",
		ProductName:    "Milk",
		Category:       strPtr("Dairy"),
		ExpirationDate: "2024-03-12",
		DeviceID:       "device-1",
	})
	require.NoError(t, err)
	assert.NotZero(t, entry.ID)
	assert.Equal(t, "8991234", entry.Barcode)
	assert.Equal(t, 1, entry.Quantity)
	assert.Equal(t, expiry.StatusExpiringSoon, entry.Status)

	product, err := f.catalog.GetByBarcode(ctx, "8991234")
	require.NoError(t, err)
	assert.Equal(t, "Milk", product.Name)
	assert.Equal(t, "Dairy", *product.Category)

	stored, err := f.svc.Get(ctx, entry.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "2024-03-12", expiry.FormatDate(stored.ExpirationDate))
	assert.Equal(t, expiry.StatusExpiringSoon, stored.Status)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.CreateEntryRequest
		err  error
	}{
		{"missing barcode", domain.CreateEntryRequest{ProductName: "x", ExpirationDate: "2024-03-12"}, domain.ErrInvalidBarcode},
		{"missing name", domain.CreateEntryRequest{Barcode: "1", ExpirationDate: "2024-03-12"}, domain.ErrInvalidProductName},
		{"bad date", domain.CreateEntryRequest{Barcode: "1", ProductName: "x", ExpirationDate: "12/03/2024"}, domain.ErrInvalidExpirationDate},
		{"zero quantity", domain.CreateEntryRequest{Barcode: "1", ProductName: "x", ExpirationDate: "2024-03-12", Quantity: intPtr(0)}, domain.ErrInvalidQuantity},
		{"bad store", domain.CreateEntryRequest{Barcode: "1", ProductName: "x", ExpirationDate: "2024-03-12", StoreID: "abc"}, domain.ErrInvalidStoreID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tc.req)
			assert.ErrorIs(t, err, tc.err)
		})
	}

	var n int64
	require.NoError(t, f.db.Model(&domain.Entry{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestListOrdersByExpirationAndReclassifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	late := f.create(t, "1", "2024-04-30")
	soon := f.create(t, "2", "2024-03-11")
	mid := f.create(t, "3", "2024-03-20")

	entries, err := f.svc.List(ctx, domain.ListEntryRequest{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, soon.ID, entries[0].ID)
	assert.Equal(t, mid.ID, entries[1].ID)
	assert.Equal(t, late.ID, entries[2].ID)

	// Two days later the soonest entry is expired although nothing was written.
	f.clock.AdvanceDays(2)
	expired, err := f.svc.List(ctx, domain.ListEntryRequest{Status: "expired"})
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, soon.ID, expired[0].ID)
	assert.Equal(t, expiry.StatusExpired, expired[0].Status)

	_, err = f.svc.List(ctx, domain.ListEntryRequest{Status: "rotten"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestListFiltersByStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, domain.CreateEntryRequest{
		Barcode: "1", ProductName: "A", ExpirationDate: "2024-03-20", StoreID: "42", DeviceID: "device-1",
	})
	require.NoError(t, err)
	f.create(t, "2", "2024-03-21")

	entries, err := f.svc.List(ctx, domain.ListEntryRequest{StoreID: "42"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "1", entries[0].Barcode)
}

func TestUpdateRecomputesStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.create(t, "1", "2024-05-01")
	assert.Equal(t, expiry.StatusFresh, entry.Status)

	updated, err := f.svc.Update(ctx, entry.ID.String(), domain.UpdateEntryRequest{
		ExpirationDate: strPtr("2024-03-01"),
		Quantity:       intPtr(4),
		Notes:          strPtr("top shelf"),
	})
	require.NoError(t, err)
	assert.Equal(t, expiry.StatusExpired, updated.Status)
	assert.Equal(t, 4, updated.Quantity)

	stored, err := f.svc.Get(ctx, entry.ID.String())
	require.NoError(t, err)
	assert.Equal(t, expiry.StatusExpired, stored.Status)
	assert.Equal(t, "top shelf", *stored.Notes)
	assert.Equal(t, "Product 1", stored.ProductName)

	// A write that does not touch the date still refreshes a stale status.
	fresh := f.create(t, "2", "2024-03-25")
	assert.Equal(t, expiry.StatusFresh, fresh.Status)
	f.clock.AdvanceDays(10)
	touched, err := f.svc.Update(ctx, fresh.ID.String(), domain.UpdateEntryRequest{Location: strPtr("Aisle 3")})
	require.NoError(t, err)
	assert.Equal(t, expiry.StatusExpiringSoon, touched.Status)
}

func TestUpdateErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.create(t, "1", "2024-05-01")

	_, err := f.svc.Update(ctx, "999", domain.UpdateEntryRequest{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.Update(ctx, "nope", domain.UpdateEntryRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
	_, err = f.svc.Update(ctx, entry.ID.String(), domain.UpdateEntryRequest{Quantity: intPtr(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = f.svc.Update(ctx, entry.ID.String(), domain.UpdateEntryRequest{ProductName: strPtr(" ")})
	assert.ErrorIs(t, err, domain.ErrInvalidProductName)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.create(t, "1", "2024-05-01")

	require.NoError(t, f.svc.Delete(ctx, entry.ID.String()))
	_, err := f.svc.Get(ctx, entry.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, entry.ID.String()), domain.ErrNotFound)

	// The catalog keeps the product after its entries are gone.
	_, err = f.catalog.GetByBarcode(ctx, "1")
	assert.NoError(t, err)
}

func TestStatsUsesToday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "1", "2024-03-09")
	f.create(t, "2", "2024-03-10")
	f.create(t, "3", "2024-03-17")
	f.create(t, "4", "2024-03-18")

	stats, err := f.svc.Stats(ctx, domain.ListEntryRequest{})
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{Total: 4, Fresh: 1, ExpiringSoon: 2, Expired: 1}, stats)

	f.clock.AdvanceDays(1)
	stats, err = f.svc.Stats(ctx, domain.ListEntryRequest{})
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{Total: 4, Fresh: 0, ExpiringSoon: 2, Expired: 2}, stats)
}

func TestListExpiringScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, domain.CreateEntryRequest{
		Barcode: "store", ProductName: "A", ExpirationDate: "2024-03-12", StoreID: "42", DeviceID: "device-2",
	})
	require.NoError(t, err)
	f.create(t, "mine", "2024-03-08")
	f.create(t, "later", "2024-04-01")
	_, err = f.svc.Create(ctx, domain.CreateEntryRequest{
		Barcode: "other", ProductName: "B", ExpirationDate: "2024-03-11", DeviceID: "device-3",
	})
	require.NoError(t, err)

	entries, err := f.svc.ListExpiring(ctx, domain.ExpiringRequest{
		Scope:      domain.Scope{StoreIDs: nil, DeviceID: "device-1"},
		WithinDays: 3,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "mine", entries[0].Barcode)

	store, err := f.svc.ListExpiring(ctx, domain.ExpiringRequest{
		Scope:      domain.Scope{StoreIDs: []snowflake.ID{42}, DeviceID: "device-1"},
		WithinDays: 3,
	})
	require.NoError(t, err)
	require.Len(t, store, 2)
	assert.Equal(t, "mine", store[0].Barcode)
	assert.Equal(t, "store", store[1].Barcode)
}

func TestToResponse(t *testing.T) {
	f := newFixture(t)
	entry := f.create(t, "1", "2024-03-15")

	resp := entry.ToResponse(expiry.DefaultPolicy(), f.svc.Today())
	assert.Equal(t, "2024-03-15", resp.ExpirationDate)
	assert.Equal(t, 5, resp.DaysUntilExpiration)
	assert.Equal(t, expiry.StatusExpiringSoon, resp.Status)
}
