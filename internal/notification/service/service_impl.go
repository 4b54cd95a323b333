package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/shelflife/internal/audit/masking"
	"github.com/smallbiznis/shelflife/internal/clock"
	"github.com/smallbiznis/shelflife/internal/config"
	entrydomain "github.com/smallbiznis/shelflife/internal/entry/domain"
	"github.com/smallbiznis/shelflife/internal/expiry"
	"github.com/smallbiznis/shelflife/internal/notification/domain"
	obslogger "github.com/smallbiznis/shelflife/internal/observability/logger"
	"github.com/smallbiznis/shelflife/internal/observability/metrics"
	"github.com/smallbiznis/shelflife/internal/providers/push"
	storedomain "github.com/smallbiznis/shelflife/internal/store/domain"
	"github.com/smallbiznis/shelflife/pkg/db"
	"github.com/smallbiznis/shelflife/pkg/db/option"
	"github.com/smallbiznis/shelflife/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var validPlatforms = map[string]bool{
	"ios":     true,
	"android": true,
	"web":     true,
	"unknown": true,
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Tokens    repository.Repository[domain.PushToken]
	Schedules repository.Repository[domain.Schedule]
	Receipts  repository.Repository[domain.Receipt]
	Entries   entrydomain.Service
	Stores    storedomain.Service
	Push      push.Provider
	Expiry    *config.ExpiryConfigHolder `optional:"true"`
	Metrics   *metrics.Metrics           `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	tokens    repository.Repository[domain.PushToken]
	schedules repository.Repository[domain.Schedule]
	receipts  repository.Repository[domain.Receipt]
	entries   entrydomain.Service
	stores    storedomain.Service
	push      push.Provider
	expiry    *config.ExpiryConfigHolder
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("notification.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		tokens:    p.Tokens,
		schedules: p.Schedules,
		receipts:  p.Receipts,
		entries:   p.Entries,
		stores:    p.Stores,
		push:      p.Push,
		expiry:    p.Expiry,
		metrics:   p.Metrics,
	}
}

func (s *Service) RegisterToken(ctx context.Context, req domain.RegisterTokenRequest) (domain.PushToken, error) {
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		return domain.PushToken{}, domain.ErrInvalidDeviceID
	}
	token := strings.TrimSpace(req.Token)
	if token == "" || len(token) > 255 {
		return domain.PushToken{}, domain.ErrInvalidToken
	}
	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	if platform == "" {
		platform = "unknown"
	}
	if !validPlatforms[platform] {
		return domain.PushToken{}, domain.ErrInvalidPlatform
	}

	record, err := s.upsertToken(ctx, deviceID, token, platform)
	if err != nil && db.IsDuplicateKeyErr(err) {
		record, err = s.upsertToken(ctx, deviceID, token, platform)
	}
	if err != nil {
		return domain.PushToken{}, err
	}
	return record, nil
}

func (s *Service) upsertToken(ctx context.Context, deviceID, token, platform string) (domain.PushToken, error) {
	now := s.clock.Now()
	existing, err := s.tokens.FindOne(ctx, &domain.PushToken{DeviceID: deviceID})
	if err != nil {
		return domain.PushToken{}, err
	}
	if existing == nil {
		record := domain.PushToken{
			ID:        s.genID.Generate(),
			DeviceID:  deviceID,
			Token:     token,
			Platform:  platform,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.tokens.Create(ctx, &record); err != nil {
			return domain.PushToken{}, err
		}
		return record, nil
	}

	if err := s.tokens.Update(ctx, existing.ID, map[string]any{
		"token":      token,
		"platform":   platform,
		"updated_at": now,
	}); err != nil {
		return domain.PushToken{}, err
	}
	existing.Token = token
	existing.Platform = platform
	existing.UpdatedAt = now
	return *existing, nil
}

func (s *Service) UnregisterToken(ctx context.Context, deviceID string) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return domain.ErrInvalidDeviceID
	}
	existing, err := s.tokens.FindOne(ctx, &domain.PushToken{DeviceID: deviceID})
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrTokenNotFound
	}
	_, err = s.tokens.Delete(ctx, existing.ID)
	return err
}

func (s *Service) CreateSchedule(ctx context.Context, req domain.CreateScheduleRequest) (domain.Schedule, error) {
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		return domain.Schedule{}, domain.ErrInvalidDeviceID
	}
	storeID, err := parseOptionalID(req.StoreID)
	if err != nil {
		return domain.Schedule{}, domain.ErrInvalidStoreID
	}
	daysBefore := req.DaysBefore
	if daysBefore == 0 {
		daysBefore = s.reminderDaysBefore()
	}
	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = "UTC"
	}
	if err := validateSlot(req.Hour, req.Minute, timezone, daysBefore); err != nil {
		return domain.Schedule{}, err
	}
	weekdays, err := normalizeWeekdays(req.Weekdays)
	if err != nil {
		return domain.Schedule{}, err
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	now := s.clock.Now()
	schedule := domain.Schedule{
		ID:         s.genID.Generate(),
		DeviceID:   deviceID,
		StoreID:    storeID,
		Hour:       req.Hour,
		Minute:     req.Minute,
		Timezone:   timezone,
		DaysBefore: daysBefore,
		Enabled:    enabled,
		Weekdays:   weekdays,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.schedules.Create(ctx, &schedule); err != nil {
		return domain.Schedule{}, err
	}
	return schedule, nil
}

func (s *Service) GetSchedule(ctx context.Context, id string) (domain.Schedule, error) {
	scheduleID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Schedule{}, domain.ErrInvalidID
	}
	schedule, err := s.schedules.FindOne(ctx, &domain.Schedule{ID: scheduleID})
	if err != nil {
		return domain.Schedule{}, err
	}
	if schedule == nil {
		return domain.Schedule{}, domain.ErrNotFound
	}
	return *schedule, nil
}

func (s *Service) ListSchedules(ctx context.Context, deviceID string) ([]domain.Schedule, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, domain.ErrInvalidDeviceID
	}
	items, err := s.schedules.Find(ctx, &domain.Schedule{DeviceID: deviceID},
		option.WithSortBy(option.QuerySortBy{Field: "created_at"}),
	)
	if err != nil {
		return nil, err
	}
	schedules := make([]domain.Schedule, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		schedules = append(schedules, *item)
	}
	return schedules, nil
}

func (s *Service) UpdateSchedule(ctx context.Context, id string, req domain.UpdateScheduleRequest) (domain.Schedule, error) {
	schedule, err := s.GetSchedule(ctx, id)
	if err != nil {
		return domain.Schedule{}, err
	}

	fields := map[string]any{}
	if req.StoreID != nil {
		storeID, err := parseOptionalID(*req.StoreID)
		if err != nil {
			return domain.Schedule{}, domain.ErrInvalidStoreID
		}
		schedule.StoreID = storeID
		fields["store_id"] = storeID
	}
	if req.Hour != nil {
		schedule.Hour = *req.Hour
		fields["hour"] = *req.Hour
	}
	if req.Minute != nil {
		schedule.Minute = *req.Minute
		fields["minute"] = *req.Minute
	}
	if req.Timezone != nil {
		schedule.Timezone = strings.TrimSpace(*req.Timezone)
		fields["timezone"] = schedule.Timezone
	}
	if req.DaysBefore != nil {
		schedule.DaysBefore = *req.DaysBefore
		fields["days_before"] = *req.DaysBefore
	}
	if req.Enabled != nil {
		schedule.Enabled = *req.Enabled
		fields["enabled"] = *req.Enabled
	}
	if req.Weekdays != nil {
		weekdays, err := normalizeWeekdays(*req.Weekdays)
		if err != nil {
			return domain.Schedule{}, err
		}
		schedule.Weekdays = weekdays
		fields["weekdays"] = weekdays
	}
	if err := validateSlot(schedule.Hour, schedule.Minute, schedule.Timezone, schedule.DaysBefore); err != nil {
		return domain.Schedule{}, err
	}
	if len(fields) == 0 {
		return schedule, nil
	}

	schedule.UpdatedAt = s.clock.Now()
	fields["updated_at"] = schedule.UpdatedAt
	if err := s.schedules.Update(ctx, schedule.ID, fields); err != nil {
		return domain.Schedule{}, err
	}
	return schedule, nil
}

func (s *Service) DeleteSchedule(ctx context.Context, id string) error {
	scheduleID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrInvalidID
	}
	deleted, err := s.schedules.Delete(ctx, scheduleID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

type recipient struct {
	deviceID   string
	token      string
	storeID    *snowflake.ID
	daysBefore int
	scheduleID *snowflake.ID
}

func (s *Service) SendExpirationReminders(ctx context.Context, req domain.SendRequest) (domain.SendResult, error) {
	daysBefore := req.DaysBefore
	if daysBefore == 0 {
		daysBefore = s.reminderDaysBefore()
	}
	if daysBefore < domain.MinDaysBefore || daysBefore > domain.MaxDaysBefore {
		return domain.SendResult{}, domain.ErrInvalidDaysBefore
	}

	var tokens []*domain.PushToken
	if len(req.DeviceIDs) == 0 {
		all, err := s.tokens.Find(ctx, &domain.PushToken{})
		if err != nil {
			return domain.SendResult{}, err
		}
		tokens = all
	} else {
		for _, deviceID := range req.DeviceIDs {
			token, err := s.tokens.FindOne(ctx, &domain.PushToken{DeviceID: strings.TrimSpace(deviceID)})
			if err != nil {
				return domain.SendResult{}, err
			}
			if token != nil {
				tokens = append(tokens, token)
			}
		}
	}

	recipients := make([]recipient, 0, len(tokens))
	for _, token := range tokens {
		if token == nil {
			continue
		}
		recipients = append(recipients, recipient{
			deviceID:   token.DeviceID,
			token:      token.Token,
			daysBefore: daysBefore,
		})
	}
	result := s.deliver(ctx, recipients)
	if len(req.DeviceIDs) > 0 {
		// Requested devices without a push token.
		result.Skipped += len(req.DeviceIDs) - len(tokens)
	}
	return result, nil
}

func (s *Service) RunDueSchedules(ctx context.Context, now time.Time) (domain.SendResult, error) {
	schedules, err := s.schedules.Find(ctx, &domain.Schedule{Enabled: true},
		option.WithSortBy(option.QuerySortBy{Field: "created_at"}),
	)
	if err != nil {
		return domain.SendResult{}, err
	}

	log := obslogger.WithContext(ctx, s.log)
	recipients := make([]recipient, 0)
	skipped := 0
	for _, schedule := range schedules {
		if schedule == nil {
			continue
		}
		date, due := dueOn(*schedule, now)
		if !due {
			continue
		}
		claimed, err := s.claimSlot(ctx, schedule.ID, date)
		if err != nil {
			log.Warn("failed to claim reminder slot", zap.String("schedule_id", schedule.ID.String()), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}

		token, err := s.tokens.FindOne(ctx, &domain.PushToken{DeviceID: schedule.DeviceID})
		if err != nil {
			return domain.SendResult{}, err
		}
		if token == nil {
			skipped++
			continue
		}
		scheduleID := schedule.ID
		recipients = append(recipients, recipient{
			deviceID:   schedule.DeviceID,
			token:      token.Token,
			storeID:    schedule.StoreID,
			daysBefore: schedule.DaysBefore,
			scheduleID: &scheduleID,
		})
	}

	result := s.deliver(ctx, recipients)
	result.Skipped += skipped
	return result, nil
}

// claimSlot marks the schedule as sent for date. Only one caller wins, so
// overlapping scheduler runs never double-send.
func (s *Service) claimSlot(ctx context.Context, id snowflake.ID, date string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&domain.Schedule{}).
		Where("id = ? AND (last_sent_on IS NULL OR last_sent_on <> ?)", id, date).
		Update("last_sent_on", date)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// deliver pushes one message per recipient that has something to report.
// Provider failures never surface to the caller; they are counted as failed.
func (s *Service) deliver(ctx context.Context, recipients []recipient) domain.SendResult {
	runID := ulid.Make().String()
	result := domain.SendResult{RunID: runID}
	log := obslogger.WithContext(ctx, s.log).With(zap.String("run_id", runID))
	today := expiry.TruncateDay(s.clock.Now())

	messages := make([]push.Message, 0, len(recipients))
	targets := make([]recipient, 0, len(recipients))
	for _, r := range recipients {
		scope, err := s.scopeFor(ctx, r)
		if err != nil {
			log.Warn("failed to resolve reminder scope", zap.String("device_id", r.deviceID), zap.Error(err))
			result.Failed++
			continue
		}
		entries, err := s.entries.ListExpiring(ctx, entrydomain.ExpiringRequest{Scope: scope, WithinDays: r.daysBefore})
		if err != nil {
			log.Warn("failed to list expiring entries", zap.String("device_id", r.deviceID), zap.Error(err))
			result.Failed++
			continue
		}
		if len(entries) == 0 {
			result.Skipped++
			continue
		}
		messages = append(messages, buildReminder(r.token, entries, r.daysBefore, today))
		targets = append(targets, r)
	}

	if len(messages) > 0 {
		tickets, err := s.push.Send(ctx, messages)
		if err != nil {
			log.Warn("push delivery failed", zap.String("provider", s.push.Name()), zap.Error(err))
		}
		for i, target := range targets {
			ticket := push.Ticket{Status: push.TicketError, Message: "not delivered"}
			if err != nil {
				ticket.Message = err.Error()
			}
			if i < len(tickets) {
				ticket = tickets[i]
			}
			if ticket.Status == push.TicketOK {
				result.Sent++
			} else {
				result.Failed++
			}
			s.saveReceipt(ctx, runID, target, messages[i], ticket)
		}
	}

	s.metrics.RecordReminders(ctx, s.push.Name(), result.Sent, result.Failed)
	log.Info("expiration reminders delivered",
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
	)
	return result
}

func (s *Service) scopeFor(ctx context.Context, r recipient) (entrydomain.Scope, error) {
	if r.storeID != nil {
		return entrydomain.Scope{StoreIDs: []snowflake.ID{*r.storeID}}, nil
	}
	storeIDs, err := s.stores.StoreIDsForDevice(ctx, r.deviceID)
	if err != nil {
		return entrydomain.Scope{}, err
	}
	return entrydomain.Scope{StoreIDs: storeIDs, DeviceID: r.deviceID}, nil
}

func (s *Service) saveReceipt(ctx context.Context, runID string, target recipient, message push.Message, ticket push.Ticket) {
	receipt := domain.Receipt{
		ID:         ulid.Make().String(),
		RunID:      runID,
		DeviceID:   target.deviceID,
		ScheduleID: target.scheduleID,
		Status:     domain.ReceiptSent,
		Payload: datatypes.JSONMap{
			"to":    masking.MaskSecret(message.To),
			"title": message.Title,
			"body":  message.Body,
			"data":  message.Data,
		},
		CreatedAt: s.clock.Now(),
	}
	if ticket.ID != "" {
		id := ticket.ID
		receipt.TicketID = &id
	}
	if ticket.Status != push.TicketOK {
		receipt.Status = domain.ReceiptFailed
		msg := ticket.Message
		receipt.Error = &msg
	}
	if err := s.receipts.Create(ctx, &receipt); err != nil {
		obslogger.WithContext(ctx, s.log).Warn("failed to store push receipt",
			zap.String("device_id", target.deviceID),
			zap.Error(err),
		)
	}
}

func (s *Service) reminderDaysBefore() int {
	if s.expiry == nil {
		return config.DefaultExpiryConfig().ReminderDaysBefore
	}
	return s.expiry.Get().ReminderDaysBefore
}

func validateSlot(hour, minute int, timezone string, daysBefore int) error {
	if hour < 0 || hour > 23 {
		return domain.ErrInvalidHour
	}
	if minute < 0 || minute > 59 {
		return domain.ErrInvalidMinute
	}
	if timezone == "" || timezone == "Local" {
		return domain.ErrInvalidTimezone
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return domain.ErrInvalidTimezone
	}
	if daysBefore < domain.MinDaysBefore || daysBefore > domain.MaxDaysBefore {
		return domain.ErrInvalidDaysBefore
	}
	return nil
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
