package scheduler

import (
	"context"
	"sort"
	"time"

	obslogger "github.com/smallbiznis/shelflife/internal/observability/logger"
	"go.uber.org/zap"
)

// jobRun tallies what a single job run touched, keyed by resource
// ("push_sent", "push_receipt", ...), for the finish line.
type jobRun struct {
	job       string
	runID     string
	startedAt time.Time
	counts    map[string]int
	failed    bool
}

type jobRunKey struct{}

func (s *Scheduler) startJobRun(ctx context.Context, job string) (context.Context, *jobRun) {
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		startedAt: s.clock.Now(),
		counts:    map[string]int{},
	}
	return context.WithValue(ctx, jobRunKey{}, run), run
}

func jobRunFromContext(ctx context.Context) *jobRun {
	run, _ := ctx.Value(jobRunKey{}).(*jobRun)
	return run
}

// count records n processed items of a resource for the current run and the
// batch metric.
func (s *Scheduler) count(ctx context.Context, resource string, n int) {
	if n <= 0 {
		return
	}
	run := jobRunFromContext(ctx)
	if run == nil {
		return
	}
	run.counts[resource] += n
	s.metrics.AddBatchProcessed(run.job, resource, n)
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logJobFinish(ctx context.Context, run *jobRun) {
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int64("duration_ms", s.clock.Now().Sub(run.startedAt).Milliseconds()),
	}
	resources := make([]string, 0, len(run.counts))
	for resource := range run.counts {
		resources = append(resources, resource)
	}
	sort.Strings(resources)
	for _, resource := range resources {
		fields = append(fields, zap.Int(resource, run.counts[resource]))
	}

	if run.failed {
		s.logger(ctx).Warn("scheduler job finished with errors", fields...)
		return
	}
	s.logger(ctx).Info("scheduler job finished", fields...)
}
