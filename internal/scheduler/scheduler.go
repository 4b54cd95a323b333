package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelflife/internal/clock"
	notificationdomain "github.com/smallbiznis/shelflife/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/shelflife/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	JobExpirationReminders = "expiration_reminders"
	JobReceiptRetention    = "receipt_retention"

	lockKeyPrefix = "scheduler:job:"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

// JobLocker serializes a job across scheduler replicas.
type JobLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Notifications notificationdomain.Service
	Locker        JobLocker                    `optional:"true"`
	Metrics       *obsmetrics.SchedulerMetrics `optional:"true"`
	Config        Config                       `optional:"true"`
}

type Scheduler struct {
	db            *gorm.DB
	log           *zap.Logger
	cfg           Config
	genID         *snowflake.Node
	clock         clock.Clock
	notifications notificationdomain.Service
	locker        JobLocker
	metrics       *obsmetrics.SchedulerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.Notifications == nil {
		return nil, ErrInvalidConfig
	}
	schedMetrics := p.Metrics
	if schedMetrics == nil {
		schedMetrics = obsmetrics.Scheduler()
	}
	return &Scheduler{
		db:            p.DB,
		log:           p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:           p.Config.withDefaults(),
		genID:         p.GenID,
		clock:         p.Clock,
		notifications: p.Notifications,
		locker:        p.Locker,
		metrics:       schedMetrics,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	release, ok := s.acquire(parent, name)
	if !ok {
		s.metrics.IncJobSkipped(name, obsmetrics.SchedulerSkipReasonLockHeld)
		return nil
	}
	defer release()

	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.startJobRun(ctx, name)
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	log.Debug("scheduler job started")
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	run.failed = err != nil
	s.logJobFinish(ctx, run)
	if err == nil {
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		// Soft timeout: the next tick picks up where this one stopped.
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// acquire takes the job's distributed lock. Without a locker, or when the
// lock backend fails, the job runs anyway; reminder slots are claimed in the
// database, so a duplicate run cannot double-send.
func (s *Scheduler) acquire(ctx context.Context, name string) (func(), bool) {
	noop := func() {}
	if s.locker == nil {
		return noop, true
	}
	key := lockKeyPrefix + name
	token, ok, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
	if err != nil {
		s.logger(ctx).Warn("scheduler lock unavailable", zap.String("job", name), zap.Error(err))
		return noop, true
	}
	if !ok {
		return noop, false
	}
	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.logger(ctx).Warn("scheduler lock release failed", zap.String("job", name), zap.Error(err))
		}
	}, true
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobExpirationReminders, s.ExpirationRemindersJob},
		{JobReceiptRetention, s.ReceiptRetentionJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, s.cfg.JobTimeout, job.Run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := time.Now().Add(s.cfg.RunInterval)

	for {
		if runLag := time.Since(nextRun); runLag > 0 {
			s.metrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(strings.TrimSpace(enabled), jobName) {
			return true
		}
	}
	return false
}

// ExpirationRemindersJob fires every notification schedule whose local slot
// is due now.
func (s *Scheduler) ExpirationRemindersJob(ctx context.Context) error {
	result, err := s.notifications.RunDueSchedules(ctx, s.clock.Now())
	if err != nil {
		return err
	}
	s.count(ctx, "push_sent", result.Sent)
	s.count(ctx, "push_failed", result.Failed)
	if result.Failed > 0 {
		s.logger(ctx).Warn("reminder deliveries failed",
			zap.String("push_run_id", result.RunID),
			zap.Int("failed", result.Failed),
		)
	}
	return nil
}

// ReceiptRetentionJob drops push receipts older than the retention window.
func (s *Scheduler) ReceiptRetentionJob(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.cfg.ReceiptRetention)
	res := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&notificationdomain.Receipt{})
	if res.Error != nil {
		return res.Error
	}
	s.count(ctx, "push_receipt", int(res.RowsAffected))
	return nil
}
