package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/shelflife/internal/audit/domain"
	"github.com/smallbiznis/shelflife/internal/authorization"
	"github.com/smallbiznis/shelflife/internal/clock"
	"github.com/smallbiznis/shelflife/internal/config"
	"github.com/smallbiznis/shelflife/internal/dailycheck/domain"
	entrydomain "github.com/smallbiznis/shelflife/internal/entry/domain"
	obslogger "github.com/smallbiznis/shelflife/internal/observability/logger"
	"github.com/smallbiznis/shelflife/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Entries    entrydomain.Service
	Authorizer authorization.Service      `optional:"true"`
	Expiry     *config.ExpiryConfigHolder `optional:"true"`
	Metrics    *metrics.Metrics           `optional:"true"`
	Activity   auditdomain.Service        `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	entries    entrydomain.Service
	authorizer authorization.Service
	expiry     *config.ExpiryConfigHolder
	metrics    *metrics.Metrics
	activity   auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("dailycheck.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		entries:    p.Entries,
		authorizer: p.Authorizer,
		expiry:     p.Expiry,
		metrics:    p.Metrics,
		activity:   p.Activity,
	}
}

func (s *Service) defaultWarningDays() int {
	if s.expiry == nil {
		return config.DefaultExpiryConfig().DefaultWarningDays
	}
	return s.expiry.Get().DefaultWarningDays
}

// Start snapshots the store's worklist: every entry already expired or
// expiring within warningDays, soonest first. Later entry changes do not
// alter the session's list.
func (s *Service) Start(ctx context.Context, req domain.StartRequest) (domain.Summary, error) {
	storeID, err := parseID(req.StoreID)
	if err != nil || storeID == 0 {
		return domain.Summary{}, domain.ErrInvalidStoreID
	}
	memberID, err := parseOptionalID(req.MemberID)
	if err != nil {
		return domain.Summary{}, domain.ErrInvalidMemberID
	}
	warningDays := s.defaultWarningDays()
	if req.WarningDays != nil {
		warningDays = *req.WarningDays
	}
	if warningDays < domain.MinWarningDays || warningDays > domain.MaxWarningDays {
		return domain.Summary{}, domain.ErrInvalidWarningDays
	}

	if deviceID := strings.TrimSpace(req.DeviceID); deviceID != "" && s.authorizer != nil {
		if err := s.authorizer.Authorize(ctx, deviceID, storeID.String(), authorization.ObjectCheck, authorization.ActionCheckRun); err != nil {
			return domain.Summary{}, err
		}
	}

	worklist, err := s.entries.ListExpiring(ctx, entrydomain.ExpiringRequest{
		Scope:      entrydomain.Scope{StoreIDs: []snowflake.ID{storeID}},
		WithinDays: warningDays,
	})
	if err != nil {
		return domain.Summary{}, err
	}

	session := domain.Session{
		ID:          s.genID.Generate(),
		StoreID:     storeID,
		MemberID:    memberID,
		WarningDays: warningDays,
		Status:      domain.StatusInProgress,
		TotalItems:  len(worklist),
		StartedAt:   s.clock.Now(),
	}
	items := make([]domain.Item, 0, len(worklist))
	for i, entry := range worklist {
		items = append(items, domain.Item{
			SessionID: session.ID,
			EntryID:   entry.ID,
			Position:  i,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertSession(ctx, tx, &session); err != nil {
			return err
		}
		return s.repo.InsertItems(ctx, tx, items)
	})
	if err != nil {
		return domain.Summary{}, err
	}

	obslogger.WithStore(obslogger.WithContext(ctx, s.log), storeID.String()).Info("daily check started",
		zap.String("session_id", session.ID.String()),
		zap.Int("warning_days", warningDays),
		zap.Int("items", len(items)),
	)
	s.recordActivity(ctx, auditdomain.RecordRequest{
		StoreID:       storeID,
		ActorDeviceID: req.DeviceID,
		Action:        auditdomain.ActionDailyCheckStarted,
		TargetType:    auditdomain.TargetDailyCheck,
		TargetID:      session.ID.String(),
		Metadata: map[string]any{
			"warning_days": warningDays,
			"total_items":  len(items),
		},
	})
	return domain.Summary{Session: session, Remaining: len(items)}, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Summary, error) {
	sessionID, err := parseID(id)
	if err != nil {
		return domain.Summary{}, domain.ErrInvalidID
	}
	return s.summary(ctx, s.db, sessionID)
}

func (s *Service) summary(ctx context.Context, db *gorm.DB, sessionID snowflake.ID) (domain.Summary, error) {
	session, err := s.repo.FindSession(ctx, db, sessionID)
	if err != nil {
		return domain.Summary{}, err
	}
	if session == nil {
		return domain.Summary{}, domain.ErrNotFound
	}
	remaining, err := s.repo.CountRemaining(ctx, db, sessionID)
	if err != nil {
		return domain.Summary{}, err
	}
	return domain.Summary{
		Session:   *session,
		Processed: session.ProcessedCount(),
		Remaining: remaining,
	}, nil
}

// Worklist returns the unprocessed part of the frozen list. Entries deleted
// since the session started drop out of the list and the remaining count.
func (s *Service) Worklist(ctx context.Context, id string) ([]entrydomain.Entry, error) {
	sessionID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	session, err := s.repo.FindSession(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrNotFound
	}

	items, err := s.repo.RemainingEntries(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	entries := make([]entrydomain.Entry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}
	return entries, nil
}

// RecordAction is audit only; the entry itself is left untouched.
func (s *Service) RecordAction(ctx context.Context, id string, req domain.RecordActionRequest) (domain.Summary, error) {
	sessionID, err := parseID(id)
	if err != nil {
		return domain.Summary{}, domain.ErrInvalidID
	}
	entryID, err := parseID(req.EntryID)
	if err != nil {
		return domain.Summary{}, domain.ErrInvalidEntryID
	}
	action := domain.Action(strings.ToLower(strings.TrimSpace(req.Action)))
	if !action.Valid() {
		return domain.Summary{}, domain.ErrInvalidAction
	}
	memberID, err := parseOptionalID(req.MemberID)
	if err != nil {
		return domain.Summary{}, domain.ErrInvalidMemberID
	}

	var summary domain.Summary
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.repo.FindSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return domain.ErrNotFound
		}
		if session.Status != domain.StatusInProgress {
			return domain.ErrInvalidState
		}

		marked, err := s.repo.MarkProcessed(ctx, tx, sessionID, entryID, action, memberID, s.clock.Now())
		if err != nil {
			return err
		}
		if !marked {
			item, err := s.repo.FindItem(ctx, tx, sessionID, entryID)
			if err != nil {
				return err
			}
			// An unprocessed item that was not marked points at a deleted entry.
			if item == nil || item.Action == nil {
				return domain.ErrEntryNotInWorklist
			}
			return domain.ErrAlreadyProcessed
		}
		if err := s.repo.IncrementCounter(ctx, tx, sessionID, action); err != nil {
			return err
		}

		summary, err = s.summary(ctx, tx, sessionID)
		return err
	})
	if err != nil {
		return domain.Summary{}, err
	}

	s.metrics.RecordDailyCheckAction(ctx, string(action))
	return summary, nil
}

// Complete may be called with items still unprocessed. A second call fails.
func (s *Service) Complete(ctx context.Context, id string) (domain.Summary, error) {
	sessionID, err := parseID(id)
	if err != nil {
		return domain.Summary{}, domain.ErrInvalidID
	}
	session, err := s.repo.FindSession(ctx, s.db, sessionID)
	if err != nil {
		return domain.Summary{}, err
	}
	if session == nil {
		return domain.Summary{}, domain.ErrNotFound
	}

	completed, err := s.repo.Complete(ctx, s.db, sessionID, s.clock.Now())
	if err != nil {
		return domain.Summary{}, err
	}
	if !completed {
		return domain.Summary{}, domain.ErrInvalidState
	}

	summary, err := s.summary(ctx, s.db, sessionID)
	if err != nil {
		return domain.Summary{}, err
	}
	s.recordActivity(ctx, auditdomain.RecordRequest{
		StoreID:    summary.StoreID,
		Action:     auditdomain.ActionDailyCheckCompleted,
		TargetType: auditdomain.TargetDailyCheck,
		TargetID:   sessionID.String(),
		Metadata: map[string]any{
			"processed":  summary.Processed,
			"remaining":  summary.Remaining,
			"discounted": summary.DiscountedCount,
			"sold":       summary.SoldCount,
			"discarded":  summary.DiscardedCount,
		},
	})
	return summary, nil
}

func (s *Service) recordActivity(ctx context.Context, req auditdomain.RecordRequest) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, req)
}

func (s *Service) ListByStore(ctx context.Context, storeID string) ([]domain.Session, error) {
	parsed, err := parseID(storeID)
	if err != nil {
		return nil, domain.ErrInvalidStoreID
	}
	items, err := s.repo.ListByStore(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	sessions := make([]domain.Session, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		sessions = append(sessions, *item)
	}
	return sessions, nil
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
