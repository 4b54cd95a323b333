package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/shelflife/internal/audit/domain"
	auditrepo "github.com/smallbiznis/shelflife/internal/audit/repository"
	auditservice "github.com/smallbiznis/shelflife/internal/audit/service"
	"github.com/smallbiznis/shelflife/internal/authorization"
	batchdomain "github.com/smallbiznis/shelflife/internal/batch/domain"
	batchrepo "github.com/smallbiznis/shelflife/internal/batch/repository"
	batchservice "github.com/smallbiznis/shelflife/internal/batch/service"
	catalogrepo "github.com/smallbiznis/shelflife/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/shelflife/internal/catalog/service"
	"github.com/smallbiznis/shelflife/internal/clock"
	"github.com/smallbiznis/shelflife/internal/config"
	dailycheckdomain "github.com/smallbiznis/shelflife/internal/dailycheck/domain"
	dailycheckrepo "github.com/smallbiznis/shelflife/internal/dailycheck/repository"
	dailycheckservice "github.com/smallbiznis/shelflife/internal/dailycheck/service"
	entrydomain "github.com/smallbiznis/shelflife/internal/entry/domain"
	entryrepo "github.com/smallbiznis/shelflife/internal/entry/repository"
	entryservice "github.com/smallbiznis/shelflife/internal/entry/service"
	"github.com/smallbiznis/shelflife/internal/migration"
	notificationdomain "github.com/smallbiznis/shelflife/internal/notification/domain"
	notificationservice "github.com/smallbiznis/shelflife/internal/notification/service"
	"github.com/smallbiznis/shelflife/internal/observability"
	"github.com/smallbiznis/shelflife/internal/providers/push"
	"github.com/smallbiznis/shelflife/internal/providers/storage"
	storedomain "github.com/smallbiznis/shelflife/internal/store/domain"
	storerepo "github.com/smallbiznis/shelflife/internal/store/repository"
	storeservice "github.com/smallbiznis/shelflife/internal/store/service"
	"github.com/smallbiznis/shelflife/internal/testutil"
	"github.com/smallbiznis/shelflife/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	clock  *clock.FakeClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenDB(t, migration.Models()...)
	clk := clock.NewFakeClock(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
	node := testutil.MustNode(t)
	log := zap.NewNop()

	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)
	authz := authorization.NewService(authorization.Params{DB: db, Log: log, Enforcer: enforcer})
	activity := auditservice.New(auditservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: auditrepo.Provide()})

	catalog := catalogservice.New(catalogservice.Params{DB: db, Log: log, Clock: clk, Repo: catalogrepo.Provide()})
	entries := entryservice.New(entryservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: entryrepo.Provide(), Catalog: catalog,
	})
	batches := batchservice.New(batchservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: batchrepo.Provide(), Entries: entries,
	})
	checks := dailycheckservice.New(dailycheckservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: dailycheckrepo.Provide(), Entries: entries, Authorizer: authz,
		Activity: activity,
	})
	stores := storeservice.New(storeservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: storerepo.Provide(), Authorizer: authz,
		Activity: activity,
	})
	notifications := notificationservice.New(notificationservice.Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Clock:     clk,
		Tokens:    repository.ProvideStore[notificationdomain.PushToken](db),
		Schedules: repository.ProvideStore[notificationdomain.Schedule](db),
		Receipts:  repository.ProvideStore[notificationdomain.Receipt](db),
		Entries:   entries,
		Stores:    stores,
		Push:      &push.NoOpProvider{},
	})

	uploadDir := t.TempDir()
	files, err := storage.NewLocal(storage.LocalConfig{Dir: uploadDir, PublicURL: "/uploads"})
	require.NoError(t, err)

	cfg := config.Config{
		Environment: "test",
		Upload:      config.UploadConfig{Dir: uploadDir, PublicURL: "/uploads", MaxBytes: 5 << 20},
	}
	engine := NewEngine(observability.Config{Environment: "test"}, nil)
	srv := NewServer(ServerParams{
		Gin:           engine,
		Cfg:           cfg,
		DB:            db,
		Log:           log,
		CatalogSvc:    catalog,
		EntrySvc:      entries,
		BatchSvc:      batches,
		DailyCheckSvc: checks,
		StoreSvc:      stores,
		NotifySvc:     notifications,
		ActivitySvc:   activity,
		Authorizer:    authz,
		Storage:       files,
	})
	srv.RegisterRoutes()

	return &testServer{engine: engine, db: db, clock: clk}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[map[string]any](t, rec)
	message, ok := body["error"].(string)
	require.True(t, ok, "error must be a string: %s", rec.Body.String())
	return message
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestProductUpsertAndLookup(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/products", map[string]any{
		"barcode": "8991002101234", "name": "Milk", "category": "dairy",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/products", map[string]any{
		"barcode": "8991002101234", "name": "Fresh Milk",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/products/barcode/8991002101234", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	product := decode[map[string]any](t, rec)
	assert.Equal(t, "Fresh Milk", product["name"])
	assert.Equal(t, "dairy", product["category"])

	rec = ts.do(t, http.MethodGet, "/api/products/barcode/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "product not found", errorBody(t, rec))
}

func TestEntryLifecycle(t *testing.T) {
	ts := newTestServer(t)

	for _, item := range []struct {
		barcode, name, date string
	}{
		{"1", "Rice", "2024-05-01"},
		{"2", "Bread", "2024-03-09"},
		{"3", "Milk", "2024-03-13"},
	} {
		rec := ts.do(t, http.MethodPost, "/api/products/entries", map[string]any{
			"barcode": item.barcode, "productName": item.name, "expirationDate": item.date,
		}, HeaderDeviceID, "d1")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := ts.do(t, http.MethodGet, "/api/products/entries?deviceId=d1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]entrydomain.Response](t, rec)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Bread", "Milk", "Rice"}, []string{list[0].ProductName, list[1].ProductName, list[2].ProductName})
	assert.Equal(t, "expired", string(list[0].Status))
	assert.Equal(t, "expiring_soon", string(list[1].Status))
	assert.Equal(t, 3, list[1].DaysUntilExpiration)
	assert.Equal(t, "d1", list[0].DeviceID)

	rec = ts.do(t, http.MethodGet, "/api/products/entries/stats?deviceId=d1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":3,"fresh":1,"expiringSoon":1,"expired":1}`, rec.Body.String())

	milkID := list[1].ID.String()
	rec = ts.do(t, http.MethodPut, "/api/products/entries/"+milkID, map[string]any{
		"expirationDate": "2024-04-30", "quantity": 4,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[entrydomain.Response](t, rec)
	assert.Equal(t, "fresh", string(updated.Status))
	assert.Equal(t, 4, updated.Quantity)

	rec = ts.do(t, http.MethodDelete, "/api/products/entries/"+milkID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = ts.do(t, http.MethodDelete, "/api/products/entries/"+milkID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "entry not found", errorBody(t, rec))
}

func TestCreateEntryValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/products/entries", map[string]any{
		"barcode": "1", "productName": "Rice", "expirationDate": "05/01/2024",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "expirationDate must be a YYYY-MM-DD date", errorBody(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/products/entries", map[string]any{
		"barcode": "1", "productName": "Rice", "expirationDate": "2024-05-01", "quantity": 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/products/entries", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	raw := httptest.NewRecorder()
	ts.engine.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
	assert.Equal(t, "invalid request", errorBody(t, raw))
}

func TestBatchScanFlow(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/batch-scans", map[string]any{"deviceId": "d1", "name": "Morning"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	batch := decode[batchdomain.BatchSession](t, rec)
	assert.Equal(t, batchdomain.StatusInProgress, batch.Status)
	batchID := batch.ID.String()

	rec = ts.do(t, http.MethodPost, "/api/batch-scans/"+batchID+"/items", map[string]any{
		"barcode": "123", "productName": "Milk", "expirationDate": "2024-03-09",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decode[map[string]any](t, rec)
	assert.EqualValues(t, 1, added["batchItemCount"])

	rec = ts.do(t, http.MethodGet, "/api/batch-scans/"+batchID+"/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]batchdomain.ItemResponse](t, rec), 1)

	rec = ts.do(t, http.MethodPost, "/api/batch-scans/"+batchID+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var completed struct {
		Batch          batchdomain.BatchSession `json:"batch"`
		EntriesCreated int                      `json:"entriesCreated"`
		Entries        []entrydomain.Response   `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &completed))
	assert.Equal(t, 1, completed.EntriesCreated)
	assert.Equal(t, batchdomain.StatusCompleted, completed.Batch.Status)
	require.Len(t, completed.Entries, 1)
	assert.Equal(t, "expired", string(completed.Entries[0].Status))

	rec = ts.do(t, http.MethodPost, "/api/batch-scans/"+batchID+"/complete", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "batch is already completed", errorBody(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/batch-scans/"+batchID+"/items", map[string]any{
		"barcode": "124", "productName": "Eggs", "expirationDate": "2024-03-20",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/batch-scans/d1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]batchdomain.BatchSession](t, rec), 1)

	rec = ts.do(t, http.MethodGet, "/api/batch-scans/session/"+batchID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/batch-scans/"+batchID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/batch-scans/session/"+batchID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTeamsFlow(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/teams", map[string]any{"name": "Shop", "nickname": "Alice", "deviceId": "d1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[storedomain.Membership](t, rec)
	storeID := created.Store.ID.String()
	assert.Equal(t, storedomain.RoleOwner, created.Member.Role)

	rec = ts.do(t, http.MethodPost, "/api/teams/join", map[string]any{"code": created.Store.Code, "nickname": "Bob", "deviceId": "d2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	joined := decode[storedomain.Membership](t, rec)
	assert.Equal(t, 2, joined.MemberCount)

	rec = ts.do(t, http.MethodPost, "/api/teams/join", map[string]any{"code": created.Store.Code, "nickname": "Bob", "deviceId": "d2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "device is already a member of this store", errorBody(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/teams/join", map[string]any{"code": "ZZZZZZ", "nickname": "Eve", "deviceId": "d3"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/teams/"+storeID+"/members", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]storedomain.Member](t, rec), 2)

	rec = ts.do(t, http.MethodGet, "/api/stores/d2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]storedomain.Membership](t, rec), 1)

	rec = ts.do(t, http.MethodPost, "/api/products/entries", map[string]any{
		"barcode": "1", "productName": "Rice", "expirationDate": "2024-03-12", "storeId": storeID,
	}, HeaderDeviceID, "d2")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/teams/"+storeID+"/entries", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entrydomain.Response](t, rec), 1)

	// Store reads that name a device require membership.
	for _, path := range []string{"/members", "/entries", "/activity"} {
		rec = ts.do(t, http.MethodGet, "/api/teams/"+storeID+path, nil, HeaderDeviceID, "d2")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		rec = ts.do(t, http.MethodGet, "/api/teams/"+storeID+path, nil, HeaderDeviceID, "stranger")
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}

	rec = ts.do(t, http.MethodDelete, "/api/teams/"+storeID, nil, HeaderDeviceID, "d2")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/teams/"+storeID+"/leave", map[string]any{"deviceId": "d1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/teams/"+storeID+"/leave", nil, HeaderDeviceID, "d2")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/teams/"+storeID+"/activity?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode[auditdomain.ListResponse](t, rec)
	require.Len(t, page.Activity, 2)
	assert.Equal(t, auditdomain.ActionMemberLeft, page.Activity[0].Action)
	assert.Equal(t, auditdomain.ActionMemberJoined, page.Activity[1].Action)
	require.NotEmpty(t, page.NextCursor)

	rec = ts.do(t, http.MethodGet, "/api/teams/"+storeID+"/activity?before="+page.NextCursor, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page = decode[auditdomain.ListResponse](t, rec)
	require.Len(t, page.Activity, 1)
	assert.Equal(t, auditdomain.ActionStoreCreated, page.Activity[0].Action)

	rec = ts.do(t, http.MethodGet, "/api/teams/"+storeID+"/activity?limit=many", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "limit must be an integer", errorBody(t, rec))

	rec = ts.do(t, http.MethodDelete, "/api/teams/"+storeID, map[string]any{"deviceId": "d1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/teams/"+storeID+"/members", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDailyCheckOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/stores", map[string]any{"name": "Shop", "nickname": "Alice", "deviceId": "d1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	storeID := decode[storedomain.Membership](t, rec).Store.ID.String()

	rec = ts.do(t, http.MethodPost, "/api/products/entries", map[string]any{
		"barcode": "1", "productName": "Yogurt", "expirationDate": "2024-03-13", "storeId": storeID, "deviceId": "d1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/daily-checks", map[string]any{"storeId": storeID, "warningDays": 31, "deviceId": "d1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "warningDays must be between 1 and 30", errorBody(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/daily-checks", map[string]any{"storeId": storeID, "warningDays": 2, "deviceId": "d1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 0, decode[dailycheckdomain.Summary](t, rec).TotalItems)

	rec = ts.do(t, http.MethodPost, "/api/daily-checks", map[string]any{"storeId": storeID, "warningDays": 7, "deviceId": "d1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	summary := decode[dailycheckdomain.Summary](t, rec)
	assert.Equal(t, 1, summary.TotalItems)
	sessionID := summary.ID.String()

	rec = ts.do(t, http.MethodGet, "/api/daily-checks/"+sessionID+"/worklist", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	worklist := decode[[]entrydomain.Response](t, rec)
	require.Len(t, worklist, 1)

	rec = ts.do(t, http.MethodPost, "/api/daily-checks/"+sessionID+"/actions", map[string]any{
		"entryId": worklist[0].ID.String(), "action": "discounted",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[dailycheckdomain.Summary](t, rec).DiscountedCount)

	rec = ts.do(t, http.MethodPost, "/api/daily-checks/"+sessionID+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/daily-checks/"+sessionID+"/complete", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/daily-checks", map[string]any{"storeId": storeID, "deviceId": "stranger"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/daily-checks/store/"+storeID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]dailycheckdomain.Session](t, rec), 2)
}

func TestNotificationRoutes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/notifications/register-token", map[string]any{
		"deviceId": "d1", "token": "ExponentPushToken[abc]", "platform": "ios",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/notifications/schedule", map[string]any{
		"deviceId": "d1", "hour": 24, "minute": 0, "timezone": "UTC", "daysBefore": 3,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "hour must be between 0 and 23", errorBody(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/notifications/schedule", map[string]any{
		"deviceId": "d1", "hour": 9, "minute": 30, "timezone": "UTC", "daysBefore": 3,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	schedule := decode[notificationdomain.Schedule](t, rec)

	rec = ts.do(t, http.MethodPut, "/api/notifications/schedule/"+schedule.ID.String(), map[string]any{"enabled": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[notificationdomain.Schedule](t, rec).Enabled)

	rec = ts.do(t, http.MethodGet, "/api/notifications/schedule", nil, HeaderDeviceID, "d1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]notificationdomain.Schedule](t, rec), 1)

	rec = ts.do(t, http.MethodPost, "/api/products/entries", map[string]any{
		"barcode": "1", "productName": "Milk", "expirationDate": "2024-03-11", "deviceId": "d1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/notifications/send-expiration-reminders", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[notificationdomain.SendResult](t, rec)
	assert.Equal(t, 1, result.Sent)

	rec = ts.do(t, http.MethodDelete, "/api/notifications/schedule/"+schedule.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/notifications/schedule/"+schedule.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartImage(t *testing.T, contentType string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadFormField, "photo"))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadProductImage(t *testing.T) {
	ts := newTestServer(t)
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

	upload := func(contentType string, payload []byte) *httptest.ResponseRecorder {
		body, formType := multipartImage(t, contentType, payload)
		req := httptest.NewRequest(http.MethodPost, "/api/upload/product-image", body)
		req.Header.Set("Content-Type", formType)
		rec := httptest.NewRecorder()
		ts.engine.ServeHTTP(rec, req)
		return rec
	}

	rec := upload("image/png", png)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	url, _ := decode[map[string]any](t, rec)["url"].(string)
	assert.True(t, strings.HasPrefix(url, "/uploads/products/"), url)
	assert.True(t, strings.HasSuffix(url, ".png"), url)

	served := httptest.NewRecorder()
	ts.engine.ServeHTTP(served, httptest.NewRequest(http.MethodGet, url, nil))
	assert.Equal(t, http.StatusOK, served.Code)

	rec = upload("text/plain", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "only image files are allowed", errorBody(t, rec))

	// A declared image type does not override the bytes.
	rec = upload("image/png", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "only image files are allowed", errorBody(t, rec))
	rec = upload("image/heic", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// HEIC is not sniffable, so the declared type is used.
	heic := append([]byte("\x00\x00\x00\x18ftypheic"), bytes.Repeat([]byte{1}, 32)...)
	rec = upload("image/heic", heic)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	url, _ = decode[map[string]any](t, rec)["url"].(string)
	assert.True(t, strings.HasSuffix(url, ".heic"), url)

	// Sniffed type wins over a wrong label.
	rec = upload("image/jpeg", png)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	url, _ = decode[map[string]any](t, rec)["url"].(string)
	assert.True(t, strings.HasSuffix(url, ".png"), url)

	rec = upload("image/jpeg", bytes.Repeat([]byte{1}, 6<<20))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "file too large", errorBody(t, rec))
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{entrydomain.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", batchdomain.ErrNotFound), http.StatusNotFound},
		{batchdomain.ErrInvalidState, http.StatusBadRequest},
		{dailycheckdomain.ErrInvalidState, http.StatusBadRequest},
		{storedomain.ErrAlreadyMember, http.StatusBadRequest},
		{storedomain.ErrOwnerMustDelete, http.StatusBadRequest},
		{authorization.ErrForbidden, http.StatusForbidden},
		{dailycheckdomain.ErrInvalidWarningDays, http.StatusBadRequest},
		{storedomain.ErrRateLimited, http.StatusTooManyRequests},
		{storedomain.ErrCodeGenerationExhausted, http.StatusInternalServerError},
		{ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
		{gorm.ErrRecordNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.NotEmpty(t, payload.Error)
		})
	}
}
