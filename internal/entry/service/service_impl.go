package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/shelflife/internal/catalog/domain"
	"github.com/smallbiznis/shelflife/internal/clock"
	"github.com/smallbiznis/shelflife/internal/config"
	"github.com/smallbiznis/shelflife/internal/entry/domain"
	"github.com/smallbiznis/shelflife/internal/expiry"
	obslogger "github.com/smallbiznis/shelflife/internal/observability/logger"
	"github.com/smallbiznis/shelflife/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Catalog catalogdomain.Service
	Expiry  *config.ExpiryConfigHolder `optional:"true"`
	Metrics *metrics.Metrics           `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	catalog catalogdomain.Service
	expiry  *config.ExpiryConfigHolder
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("entry.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		catalog: p.Catalog,
		expiry:  p.Expiry,
		metrics: p.Metrics,
	}
}

func (s *Service) Today() time.Time {
	return expiry.TruncateDay(s.clock.Now())
}

func (s *Service) policy() expiry.Policy {
	if s.expiry == nil {
		return expiry.DefaultPolicy()
	}
	return expiry.Policy{SoonWindowDays: s.expiry.Get().SoonWindowDays}
}

func (s *Service) Create(ctx context.Context, req domain.CreateEntryRequest) (domain.Entry, error) {
	barcode := strings.TrimSpace(req.Barcode)
	if barcode == "" {
		return domain.Entry{}, domain.ErrInvalidBarcode
	}
	name := strings.TrimSpace(req.ProductName)
	if name == "" {
		return domain.Entry{}, domain.ErrInvalidProductName
	}
	expirationDate, err := expiry.ParseDate(req.ExpirationDate)
	if err != nil {
		return domain.Entry{}, domain.ErrInvalidExpirationDate
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity < 1 {
		return domain.Entry{}, domain.ErrInvalidQuantity
	}
	storeID, err := parseOptionalID(req.StoreID)
	if err != nil {
		return domain.Entry{}, domain.ErrInvalidStoreID
	}
	memberID, err := parseOptionalID(req.MemberID)
	if err != nil {
		return domain.Entry{}, domain.ErrInvalidMemberID
	}

	var created domain.Entry
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := s.Materialize(ctx, tx, domain.MaterializeRequest{
			Barcode:        barcode,
			ProductName:    name,
			Category:       trimOptional(req.Category),
			ExpirationDate: expirationDate,
			Quantity:       quantity,
			Location:       trimOptional(req.Location),
			Notes:          trimOptional(req.Notes),
			ImageURL:       trimOptional(req.ImageURL),
			StoreID:        storeID,
			MemberID:       memberID,
			DeviceID:       strings.TrimSpace(req.DeviceID),
			Source:         domain.SourceScan,
		})
		if err != nil {
			return err
		}
		created = entry
		return nil
	})
	if err != nil {
		return domain.Entry{}, err
	}

	s.metrics.RecordEntryCreated(ctx, domain.SourceScan, string(created.Status))
	return created, nil
}

// Materialize upserts the catalog product and inserts the entry using tx.
// The caller owns the transaction.
func (s *Service) Materialize(ctx context.Context, tx *gorm.DB, req domain.MaterializeRequest) (domain.Entry, error) {
	if strings.TrimSpace(req.Barcode) == "" {
		return domain.Entry{}, domain.ErrInvalidBarcode
	}
	if strings.TrimSpace(req.ProductName) == "" {
		return domain.Entry{}, domain.ErrInvalidProductName
	}
	if req.ExpirationDate.IsZero() {
		return domain.Entry{}, domain.ErrInvalidExpirationDate
	}
	if req.Quantity < 1 {
		return domain.Entry{}, domain.ErrInvalidQuantity
	}

	if _, err := s.catalog.UpsertTx(ctx, tx, catalogdomain.UpsertRequest{
		Barcode:  req.Barcode,
		Name:     req.ProductName,
		Category: req.Category,
		ImageURL: req.ImageURL,
	}); err != nil {
		return domain.Entry{}, err
	}

	now := s.clock.Now()
	expirationDate := expiry.TruncateDay(req.ExpirationDate)
	entry := domain.Entry{
		ID:             s.genID.Generate(),
		Barcode:        strings.TrimSpace(req.Barcode),
		ProductName:    strings.TrimSpace(req.ProductName),
		Category:       req.Category,
		ExpirationDate: expirationDate,
		Quantity:       req.Quantity,
		Location:       req.Location,
		Notes:          req.Notes,
		ImageURL:       req.ImageURL,
		Status:         s.policy().Classify(expirationDate, expiry.TruncateDay(now)),
		StoreID:        req.StoreID,
		MemberID:       req.MemberID,
		DeviceID:       req.DeviceID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, tx, &entry); err != nil {
		return domain.Entry{}, err
	}

	if req.Source == domain.SourceBatch {
		s.metrics.RecordEntryCreated(ctx, domain.SourceBatch, string(entry.Status))
	}
	obslogger.WithContext(ctx, s.log).Debug("entry materialized",
		zap.String("entry_id", entry.ID.String()),
		zap.String("status", string(entry.Status)),
		zap.String("source", req.Source),
	)
	return entry, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Entry, error) {
	entryID, err := parseID(id)
	if err != nil {
		return domain.Entry{}, domain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, s.db, entryID)
	if err != nil {
		return domain.Entry{}, err
	}
	if item == nil {
		return domain.Entry{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateEntryRequest) (domain.Entry, error) {
	entryID, err := parseID(id)
	if err != nil {
		return domain.Entry{}, domain.ErrInvalidID
	}

	var updated domain.Entry
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, entryID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}

		now := s.clock.Now()
		fields := map[string]any{}
		if req.ProductName != nil {
			name := strings.TrimSpace(*req.ProductName)
			if name == "" {
				return domain.ErrInvalidProductName
			}
			fields["product_name"] = name
			item.ProductName = name
		}
		if req.ExpirationDate != nil {
			parsed, err := expiry.ParseDate(*req.ExpirationDate)
			if err != nil {
				return domain.ErrInvalidExpirationDate
			}
			fields["expiration_date"] = parsed
			item.ExpirationDate = parsed
		}
		if req.Quantity != nil {
			if *req.Quantity < 1 {
				return domain.ErrInvalidQuantity
			}
			fields["quantity"] = *req.Quantity
			item.Quantity = *req.Quantity
		}
		if req.Category != nil {
			item.Category = trimOptional(req.Category)
			fields["category"] = item.Category
		}
		if req.Location != nil {
			item.Location = trimOptional(req.Location)
			fields["location"] = item.Location
		}
		if req.Notes != nil {
			item.Notes = trimOptional(req.Notes)
			fields["notes"] = item.Notes
		}
		if req.ImageURL != nil {
			item.ImageURL = trimOptional(req.ImageURL)
			fields["image_url"] = item.ImageURL
		}

		// Status is recomputed on every write, even when the date is unchanged.
		item.Status = s.policy().Classify(item.ExpirationDate, expiry.TruncateDay(now))
		item.UpdatedAt = now
		fields["status"] = item.Status
		fields["updated_at"] = now

		if err := s.repo.Update(ctx, tx, entryID, fields); err != nil {
			return err
		}
		updated = *item
		return nil
	})
	if err != nil {
		return domain.Entry{}, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	entryID, err := parseID(id)
	if err != nil {
		return domain.ErrInvalidID
	}
	deleted, err := s.repo.Delete(ctx, s.db, entryID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) List(ctx context.Context, req domain.ListEntryRequest) ([]domain.Entry, error) {
	filter, status, err := s.buildFilter(req)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	policy := s.policy()
	today := s.Today()
	entries := make([]domain.Entry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		item.Status = policy.Classify(item.ExpirationDate, today)
		if status != "" && item.Status != status {
			continue
		}
		entries = append(entries, *item)
	}
	return entries, nil
}

// Stats classifies against today rather than trusting the stored status.
func (s *Service) Stats(ctx context.Context, req domain.ListEntryRequest) (domain.Stats, error) {
	req.Status = ""
	entries, err := s.List(ctx, req)
	if err != nil {
		return domain.Stats{}, err
	}

	stats := domain.Stats{Total: len(entries)}
	for _, entry := range entries {
		switch entry.Status {
		case expiry.StatusFresh:
			stats.Fresh++
		case expiry.StatusExpiringSoon:
			stats.ExpiringSoon++
		case expiry.StatusExpired:
			stats.Expired++
		}
	}
	return stats, nil
}

// ListExpiring returns entries in scope expiring within WithinDays of today,
// already expired ones included.
func (s *Service) ListExpiring(ctx context.Context, req domain.ExpiringRequest) ([]domain.Entry, error) {
	if req.WithinDays < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	scope := req.Scope
	items, err := s.repo.List(ctx, s.db, domain.ListEntryFilter{Scope: &scope})
	if err != nil {
		return nil, err
	}

	policy := s.policy()
	today := s.Today()
	entries := make([]domain.Entry, 0, len(items))
	for _, item := range items {
		if item == nil || !expiry.IsWithin(item.ExpirationDate, today, req.WithinDays) {
			continue
		}
		item.Status = policy.Classify(item.ExpirationDate, today)
		entries = append(entries, *item)
	}
	return entries, nil
}

func (s *Service) buildFilter(req domain.ListEntryRequest) (domain.ListEntryFilter, expiry.Status, error) {
	filter := domain.ListEntryFilter{DeviceID: strings.TrimSpace(req.DeviceID)}
	storeID, err := parseOptionalID(req.StoreID)
	if err != nil {
		return filter, "", domain.ErrInvalidStoreID
	}
	filter.StoreID = storeID

	var status expiry.Status
	if raw := strings.TrimSpace(req.Status); raw != "" {
		parsed, ok := expiry.ParseStatus(raw)
		if !ok {
			return filter, "", domain.ErrInvalidStatus
		}
		status = parsed
	}
	return filter, status, nil
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
