package seed

import (
	"testing"
	"time"

	catalogdomain "github.com/smallbiznis/shelflife/internal/catalog/domain"
	entrydomain "github.com/smallbiznis/shelflife/internal/entry/domain"
	"github.com/smallbiznis/shelflife/internal/expiry"
	storedomain "github.com/smallbiznis/shelflife/internal/store/domain"
	"github.com/smallbiznis/shelflife/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSampleDataIsIdempotent(t *testing.T) {
	db := testutil.OpenDB(t,
		&catalogdomain.Product{},
		&storedomain.Store{},
		&storedomain.Member{},
		&entrydomain.Entry{},
	)
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, EnsureSampleData(db, now))
	require.NoError(t, EnsureSampleData(db, now.Add(24*time.Hour)))

	var products, stores, members, entries int64
	require.NoError(t, db.Model(&catalogdomain.Product{}).Count(&products).Error)
	require.NoError(t, db.Model(&storedomain.Store{}).Count(&stores).Error)
	require.NoError(t, db.Model(&storedomain.Member{}).Count(&members).Error)
	require.NoError(t, db.Model(&entrydomain.Entry{}).Count(&entries).Error)
	assert.Equal(t, int64(len(sampleProducts)), products)
	assert.Equal(t, int64(1), stores)
	assert.Equal(t, int64(1), members)
	assert.Equal(t, int64(len(sampleProducts)), entries)

	var statuses []expiry.Status
	require.NoError(t, db.Model(&entrydomain.Entry{}).Distinct("status").Pluck("status", &statuses).Error)
	assert.ElementsMatch(t, []expiry.Status{expiry.StatusExpired, expiry.StatusExpiringSoon, expiry.StatusFresh}, statuses)

	var owner storedomain.Member
	require.NoError(t, db.Where("device_id = ?", DemoDeviceID).First(&owner).Error)
	assert.Equal(t, storedomain.RoleOwner, owner.Role)
}

func TestEnsureSampleDataRequiresDB(t *testing.T) {
	assert.Error(t, EnsureSampleData(nil, time.Now()))
}
