package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelflife/internal/batch/domain"
	"github.com/smallbiznis/shelflife/internal/clock"
	entrydomain "github.com/smallbiznis/shelflife/internal/entry/domain"
	"github.com/smallbiznis/shelflife/internal/expiry"
	obslogger "github.com/smallbiznis/shelflife/internal/observability/logger"
	"github.com/smallbiznis/shelflife/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultNameLayout = "2006-01-02 15:04"

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Entries entrydomain.Service
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	entries entrydomain.Service
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("batch.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		entries: p.Entries,
		metrics: p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateBatchRequest) (domain.BatchSession, error) {
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		return domain.BatchSession{}, domain.ErrInvalidDeviceID
	}
	storeID, err := parseOptionalID(req.StoreID)
	if err != nil {
		return domain.BatchSession{}, domain.ErrInvalidStoreID
	}
	memberID, err := parseOptionalID(req.MemberID)
	if err != nil {
		return domain.BatchSession{}, domain.ErrInvalidMemberID
	}

	now := s.clock.Now()
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = fmt.Sprintf("Batch %s", now.Format(defaultNameLayout))
	}

	session := domain.BatchSession{
		ID:        s.genID.Generate(),
		DeviceID:  deviceID,
		Name:      name,
		Status:    domain.StatusInProgress,
		StoreID:   storeID,
		MemberID:  memberID,
		CreatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, &session); err != nil {
		return domain.BatchSession{}, err
	}
	return session, nil
}

func (s *Service) ListByDevice(ctx context.Context, deviceID string) ([]domain.BatchSession, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, domain.ErrInvalidDeviceID
	}
	items, err := s.repo.ListByDevice(ctx, s.db, deviceID)
	if err != nil {
		return nil, err
	}

	sessions := make([]domain.BatchSession, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		sessions = append(sessions, *item)
	}
	return sessions, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.BatchSession, error) {
	batchID, err := parseID(id)
	if err != nil {
		return domain.BatchSession{}, domain.ErrInvalidID
	}
	session, err := s.repo.FindByID(ctx, s.db, batchID)
	if err != nil {
		return domain.BatchSession{}, err
	}
	if session == nil {
		return domain.BatchSession{}, domain.ErrNotFound
	}
	return *session, nil
}

// AddItem appends the item and bumps item_count in the same transaction so
// the counter always equals the number of item rows.
func (s *Service) AddItem(ctx context.Context, id string, req domain.AddItemRequest) (domain.AddItemResult, error) {
	batchID, err := parseID(id)
	if err != nil {
		return domain.AddItemResult{}, domain.ErrInvalidID
	}
	item, err := s.buildItem(batchID, req)
	if err != nil {
		return domain.AddItemResult{}, err
	}

	var count int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.repo.FindByID(ctx, tx, batchID)
		if err != nil {
			return err
		}
		if session == nil {
			return domain.ErrNotFound
		}
		if session.Status != domain.StatusInProgress {
			return domain.ErrInvalidState
		}
		if err := s.repo.InsertItem(ctx, tx, &item); err != nil {
			return err
		}
		count, err = s.repo.IncrementItemCount(ctx, tx, batchID)
		return err
	})
	if err != nil {
		return domain.AddItemResult{}, err
	}
	return domain.AddItemResult{Item: item, BatchItemCount: count}, nil
}

func (s *Service) buildItem(batchID snowflake.ID, req domain.AddItemRequest) (domain.BatchItem, error) {
	barcode := strings.TrimSpace(req.Barcode)
	if barcode == "" {
		return domain.BatchItem{}, domain.ErrInvalidBarcode
	}
	name := strings.TrimSpace(req.ProductName)
	if name == "" {
		return domain.BatchItem{}, domain.ErrInvalidProductName
	}
	expirationDate, err := expiry.ParseDate(req.ExpirationDate)
	if err != nil {
		return domain.BatchItem{}, domain.ErrInvalidExpirationDate
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity < 1 {
		return domain.BatchItem{}, domain.ErrInvalidQuantity
	}

	return domain.BatchItem{
		ID:             s.genID.Generate(),
		BatchID:        batchID,
		Barcode:        barcode,
		ProductName:    name,
		Category:       trimOptional(req.Category),
		ExpirationDate: expirationDate,
		Quantity:       quantity,
		Location:       trimOptional(req.Location),
		Notes:          trimOptional(req.Notes),
		ImageURL:       trimOptional(req.ImageURL),
		CreatedAt:      s.clock.Now(),
	}, nil
}

func (s *Service) ListItems(ctx context.Context, id string) ([]domain.BatchItem, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, s.db, session.ID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.BatchItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

// Complete claims the session first so concurrent calls cannot materialize
// the same items twice, then turns each item into an entry in its own
// transaction. A failing item is reported and does not undo the others.
func (s *Service) Complete(ctx context.Context, id string) (domain.CompleteResult, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return domain.CompleteResult{}, err
	}
	if session.Status != domain.StatusInProgress {
		return domain.CompleteResult{}, domain.ErrInvalidState
	}

	now := s.clock.Now()
	claimed, err := s.repo.MarkCompleted(ctx, s.db, session.ID, now)
	if err != nil {
		return domain.CompleteResult{}, err
	}
	if !claimed {
		return domain.CompleteResult{}, domain.ErrInvalidState
	}
	session.Status = domain.StatusCompleted
	session.CompletedAt = &now

	items, err := s.repo.ListItems(ctx, s.db, session.ID)
	if err != nil {
		return domain.CompleteResult{}, err
	}

	log := obslogger.WithContext(ctx, s.log).With(zap.String("batch_id", session.ID.String()))
	result := domain.CompleteResult{
		Batch:   session,
		Entries: make([]entrydomain.Entry, 0, len(items)),
		Failed:  []domain.FailedItem{},
	}
	for _, item := range items {
		if item == nil {
			continue
		}
		var created entrydomain.Entry
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			entry, err := s.entries.Materialize(ctx, tx, entrydomain.MaterializeRequest{
				Barcode:        item.Barcode,
				ProductName:    item.ProductName,
				Category:       item.Category,
				ExpirationDate: item.ExpirationDate,
				Quantity:       item.Quantity,
				Location:       item.Location,
				Notes:          item.Notes,
				ImageURL:       item.ImageURL,
				StoreID:        session.StoreID,
				MemberID:       session.MemberID,
				DeviceID:       session.DeviceID,
				Source:         entrydomain.SourceBatch,
			})
			if err != nil {
				return err
			}
			created = entry
			return nil
		})
		if err != nil {
			log.Warn("batch item not materialized",
				zap.String("item_id", item.ID.String()),
				zap.String("barcode", item.Barcode),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, domain.FailedItem{
				ItemID:  item.ID,
				Barcode: item.Barcode,
				Error:   err.Error(),
			})
			continue
		}
		result.Entries = append(result.Entries, created)
	}
	result.EntriesCreated = len(result.Entries)

	s.metrics.RecordBatchCompleted(ctx, len(result.Failed))
	log.Info("batch completed",
		zap.Int("items", len(items)),
		zap.Int("entries_created", result.EntriesCreated),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// Delete removes the session and its items in any state.
func (s *Service) Delete(ctx context.Context, id string) error {
	batchID, err := parseID(id)
	if err != nil {
		return domain.ErrInvalidID
	}
	var (
		session *domain.BatchSession
		removed int64
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		session, err = s.repo.FindByID(ctx, tx, batchID)
		if err != nil {
			return err
		}
		if session == nil {
			return domain.ErrNotFound
		}
		removed, err = s.repo.CountItems(ctx, tx, batchID)
		if err != nil {
			return err
		}
		deleted, err := s.repo.Delete(ctx, tx, batchID)
		if err != nil {
			return err
		}
		if !deleted {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	log := obslogger.WithContext(ctx, s.log).With(zap.String("batch_id", batchID.String()))
	if removed != int64(session.ItemCount) {
		log.Warn("batch item count drifted",
			zap.Int("item_count", session.ItemCount),
			zap.Int64("items", removed),
		)
	}
	log.Info("batch deleted",
		zap.String("status", string(session.Status)),
		zap.Int64("items", removed),
	)
	return nil
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}

func parseOptionalID(value string) (*snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
