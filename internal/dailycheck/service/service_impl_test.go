package service

import (
	"context"
	"testing"
	"time"

	auditdomain "github.com/smallbiznis/shelflife/internal/audit/domain"
	"github.com/smallbiznis/shelflife/internal/authorization"
	catalogdomain "github.com/smallbiznis/shelflife/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/shelflife/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/shelflife/internal/catalog/service"
	"github.com/smallbiznis/shelflife/internal/clock"
	"github.com/smallbiznis/shelflife/internal/dailycheck/domain"
	"github.com/smallbiznis/shelflife/internal/dailycheck/repository"
	entrydomain "github.com/smallbiznis/shelflife/internal/entry/domain"
	entryrepo "github.com/smallbiznis/shelflife/internal/entry/repository"
	entryservice "github.com/smallbiznis/shelflife/internal/entry/service"
	"github.com/smallbiznis/shelflife/internal/expiry"
	"github.com/smallbiznis/shelflife/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const storeID = "42"

type fixture struct {
	svc     *Service
	db      *gorm.DB
	clock   *clock.FakeClock
	entries entrydomain.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.OpenDB(t,
		&catalogdomain.Product{},
		&entrydomain.Entry{},
		&domain.Session{},
		&domain.Item{},
	)
	clk := clock.NewFakeClock(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC))
	node := testutil.MustNode(t)
	catalog := catalogservice.New(catalogservice.Params{
		DB: db, Log: zap.NewNop(), Clock: clk, Repo: catalogrepo.Provide(),
	})
	entries := entryservice.New(entryservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: entryrepo.Provide(), Catalog: catalog,
	})
	svc := New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   clk,
		Repo:    repository.Provide(),
		Entries: entries,
	}).(*Service)
	return fixture{svc: svc, db: db, clock: clk, entries: entries}
}

func (f fixture) addEntry(t *testing.T, barcode string, daysFromToday int) entrydomain.Entry {
	t.Helper()
	date := expiry.FormatDate(f.clock.Now().AddDate(0, 0, daysFromToday))
	entry, err := f.entries.Create(context.Background(), entrydomain.CreateEntryRequest{
		Barcode:        barcode,
		ProductName:    "Product " + barcode,
		ExpirationDate: date,
		StoreID:        storeID,
		DeviceID:       "d1",
	})
	require.NoError(t, err)
	return entry
}

func days(n int) *int {
	return &n
}

func ids(entries []entrydomain.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Barcode)
	}
	return out
}

func TestStartFreezesWorklistByWarningDays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	soon := f.addEntry(t, "soon", 3)
	assert.Equal(t, expiry.StatusExpiringSoon, soon.Status)
	f.addEntry(t, "expired", -2)
	f.addEntry(t, "today", 0)
	f.addEntry(t, "fresh", 20)

	wide, err := f.svc.Start(ctx, domain.StartRequest{StoreID: storeID, WarningDays: days(7)})
	require.NoError(t, err)
	assert.Equal(t, 3, wide.TotalItems)
	worklist, err := f.svc.Worklist(ctx, wide.ID.String())
	require.NoError(t, err)
	assert.Equal(t, []string{"expired", "today", "soon"}, ids(worklist))

	narrow, err := f.svc.Start(ctx, domain.StartRequest{StoreID: storeID, WarningDays: days(2)})
	require.NoError(t, err)
	worklist, err = f.svc.Worklist(ctx, narrow.ID.String())
	require.NoError(t, err)
	assert.Equal(t, []string{"expired", "today"}, ids(worklist))

	// Entries added after start stay out of the frozen list.
	f.addEntry(t, "late", 1)
	worklist, err = f.svc.Worklist(ctx, narrow.ID.String())
	require.NoError(t, err)
	assert.Len(t, worklist, 2)
}

func TestStartWarningDaysValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, n := range []int{-1, 0, 31, 100} {
		_, err := f.svc.Start(ctx, domain.StartRequest{StoreID: storeID, WarningDays: days(n)})
		assert.ErrorIs(t, err, domain.ErrInvalidWarningDays, "days=%d", n)
	}

	session, err := f.svc.Start(ctx, domain.StartRequest{StoreID: storeID})
	require.NoError(t, err)
	assert.Equal(t, 7, session.WarningDays)
	assert.Zero(t, session.TotalItems)

	_, err = f.svc.Start(ctx, domain.StartRequest{StoreID: "x", WarningDays: days(3)})
	assert.ErrorIs(t, err, domain.ErrInvalidStoreID)
}

func TestRecordActionCountsAndAdvances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addEntry(t, "a", 1)
	b := f.addEntry(t, "b", 2)
	outside := f.addEntry(t, "outside", 25)

	session, err := f.svc.Start(ctx, domain.StartRequest{StoreID: storeID, WarningDays: days(5), MemberID: "9"})
	require.NoError(t, err)
	sid := session.ID.String()

	summary, err := f.svc.RecordAction(ctx, sid, domain.RecordActionRequest{EntryID: a.ID.String(), Action: "sold", MemberID: "9"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SoldCount)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Remaining)

	worklist, err := f.svc.Worklist(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(worklist))

	_, err = f.svc.RecordAction(ctx, sid, domain.RecordActionRequest{EntryID: a.ID.String(), Action: "checked"})
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)
	_, err = f.svc.RecordAction(ctx, sid, domain.RecordActionRequest{EntryID: outside.ID.String(), Action: "checked"})
	assert.ErrorIs(t, err, domain.ErrEntryNotInWorklist)
	_, err = f.svc.RecordAction(ctx, sid, domain.RecordActionRequest{EntryID: b.ID.String(), Action: "eaten"})
	assert.ErrorIs(t, err, domain.ErrInvalidAction)

	summary, err = f.svc.RecordAction(ctx, sid, domain.RecordActionRequest{EntryID: b.ID.String(), Action: "Discarded"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.DiscardedCount)
	assert.Zero(t, summary.Remaining)

	// Disposition is advisory; the entry is still there.
	stored, err := f.entries.Get(ctx, a.ID.String())
	require.NoError(t, err)
	assert.Equal(t, a.Quantity, stored.Quantity)
}

func TestCompleteOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addEntry(t, "a", 1)

	session, err := f.svc.Start(ctx, domain.StartRequest{StoreID: storeID, WarningDays: days(3)})
	require.NoError(t, err)

	done, err := f.svc.Complete(ctx, session.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, 1, done.Remaining)

	_, err = f.svc.Complete(ctx, session.ID.String())
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = f.svc.RecordAction(ctx, session.ID.String(), domain.RecordActionRequest{EntryID: a.ID.String(), Action: "checked"})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = f.svc.Complete(ctx, "123")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListByStoreNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Start(ctx, domain.StartRequest{StoreID: storeID, WarningDays: days(3)})
	require.NoError(t, err)
	f.clock.Advance(24 * time.Hour)
	second, err := f.svc.Start(ctx, domain.StartRequest{StoreID: storeID, WarningDays: days(3)})
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, domain.StartRequest{StoreID: "43", WarningDays: days(3)})
	require.NoError(t, err)

	sessions, err := f.svc.ListByStore(ctx, storeID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)
	assert.Equal(t, first.ID, sessions[1].ID)
}

func TestStartRequiresMembershipWhenDeviceGiven(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.db.Exec(`CREATE TABLE store_members (
		id INTEGER PRIMARY KEY,
		store_id INTEGER NOT NULL,
		device_id TEXT NOT NULL,
		role TEXT NOT NULL
	)`).Error)
	require.NoError(t, f.db.Exec(`INSERT INTO store_members (id, store_id, device_id, role) VALUES (1, 42, 'member', 'MEMBER')`).Error)

	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)
	f.svc.authorizer = authorization.NewService(authorization.Params{DB: f.db, Log: zap.NewNop(), Enforcer: enforcer})

	_, err = f.svc.Start(ctx, domain.StartRequest{StoreID: storeID, WarningDays: days(3), DeviceID: "member"})
	assert.NoError(t, err)
	_, err = f.svc.Start(ctx, domain.StartRequest{StoreID: storeID, WarningDays: days(3), DeviceID: "stranger"})
	assert.ErrorIs(t, err, authorization.ErrForbidden)
}

type activityRecorder struct {
	records []auditdomain.RecordRequest
}

func (r *activityRecorder) Record(_ context.Context, req auditdomain.RecordRequest) error {
	r.records = append(r.records, req)
	return nil
}

func (r *activityRecorder) List(context.Context, auditdomain.ListRequest) (auditdomain.ListResponse, error) {
	return auditdomain.ListResponse{}, nil
}

func TestStartAndCompleteRecordActivity(t *testing.T) {
	f := newFixture(t)
	recorder := &activityRecorder{}
	f.svc.activity = recorder
	ctx := context.Background()
	a := f.addEntry(t, "a", 0)
	f.addEntry(t, "b", 2)

	session, err := f.svc.Start(ctx, domain.StartRequest{StoreID: storeID, WarningDays: days(3), MemberID: "7"})
	require.NoError(t, err)
	_, err = f.svc.RecordAction(ctx, session.ID.String(), domain.RecordActionRequest{EntryID: a.ID.String(), Action: "sold"})
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, session.ID.String())
	require.NoError(t, err)

	require.Len(t, recorder.records, 2)
	started, completed := recorder.records[0], recorder.records[1]
	assert.Equal(t, auditdomain.ActionDailyCheckStarted, started.Action)
	assert.Equal(t, 2, started.Metadata["total_items"])
	assert.Equal(t, auditdomain.ActionDailyCheckCompleted, completed.Action)
	assert.Equal(t, storeID, completed.StoreID.String())
	assert.Equal(t, session.ID.String(), completed.TargetID)
	assert.Equal(t, 1, completed.Metadata["processed"])
	assert.Equal(t, 1, completed.Metadata["sold"])
}

func TestDeletedEntryLeavesWorklistAndRemaining(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addEntry(t, "a", 1)
	b := f.addEntry(t, "b", 2)

	session, err := f.svc.Start(ctx, domain.StartRequest{StoreID: storeID, WarningDays: days(7)})
	require.NoError(t, err)
	sid := session.ID.String()
	require.Equal(t, 2, session.TotalItems)

	require.NoError(t, f.entries.Delete(ctx, b.ID.String()))

	summary, err := f.svc.RecordAction(ctx, sid, domain.RecordActionRequest{EntryID: a.ID.String(), Action: "checked"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Zero(t, summary.Remaining)
	assert.Equal(t, 2, summary.TotalItems)

	worklist, err := f.svc.Worklist(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, worklist)

	_, err = f.svc.RecordAction(ctx, sid, domain.RecordActionRequest{EntryID: b.ID.String(), Action: "sold"})
	assert.ErrorIs(t, err, domain.ErrEntryNotInWorklist)

	got, err := f.svc.Get(ctx, sid)
	require.NoError(t, err)
	assert.Zero(t, got.SoldCount)
	assert.Equal(t, 1, got.Processed)
	assert.Zero(t, got.Remaining)
}
