package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/civicnotify/dispatch-engine/internal/config"
	"github.com/civicnotify/dispatch-engine/internal/db"
	"github.com/civicnotify/dispatch-engine/internal/domain"
	"github.com/civicnotify/dispatch-engine/internal/engine"
	"github.com/civicnotify/dispatch-engine/internal/ops"
)

// Runner triggers engine jobs, either once (CLI mode) or on cron
// schedules (serve mode). Every run takes the per-job advisory lock first
// so an overlapping manual invocation does not duplicate transport calls;
// a held lock skips the run cleanly.
type Runner struct {
	eng    *engine.Engine
	pool   *pgxpool.Pool
	board  *ops.StatusBoard
	cron   *cron.Cron
	logger *zap.Logger
}

func NewRunner(eng *engine.Engine, pool *pgxpool.Pool, board *ops.StatusBoard, loc *time.Location, logger *zap.Logger) *Runner {
	return &Runner{
		eng:    eng,
		pool:   pool,
		board:  board,
		cron:   cron.New(cron.WithLocation(loc)),
		logger: logger,
	}
}

// Schedule registers the three jobs on their configured cron expressions.
func (r *Runner) Schedule(cfg *config.Config) error {
	jobs := []struct {
		spec string
		name string
	}{
		{cfg.DispatchCron, domain.JobDispatch},
		{cfg.DailyCron, domain.JobDigestDaily},
		{cfg.WeeklyCron, domain.JobDigestWeekly},
	}
	for _, j := range jobs {
		name := j.name
		if _, err := r.cron.AddFunc(j.spec, func() {
			if err := r.RunOnce(context.Background(), name); err != nil {
				r.logger.Error("scheduled run failed",
					zap.String("job", name), zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", j.name, j.spec, err)
		}
	}
	return nil
}

// RunOnce executes one job under its advisory lock and records the outcome
// on the status board. A held lock returns domain.ErrJobLocked without
// touching the watermark.
func (r *Runner) RunOnce(ctx context.Context, job string) error {
	lock, acquired, err := db.AcquireJobLock(ctx, r.pool, job)
	if err != nil {
		return fmt.Errorf("acquire job lock: %w", err)
	}
	if !acquired {
		r.logger.Info("skipping run: another invocation holds the lock",
			zap.String("job", job))
		return domain.ErrJobLocked
	}
	defer lock.Release(ctx)

	start := time.Now()
	var stats domain.RunStats
	var runErr error

	switch job {
	case domain.JobDispatch:
		stats, runErr = r.eng.RunDispatch(ctx)
	case domain.JobDigestDaily:
		stats, runErr = r.eng.RunDigest(ctx, domain.FrequencyDaily)
	case domain.JobDigestWeekly:
		stats, runErr = r.eng.RunDigest(ctx, domain.FrequencyWeekly)
	default:
		return fmt.Errorf("unknown job %q", job)
	}

	r.board.Record(job, start.UTC(), time.Since(start), stats, runErr)
	return runErr
}

// Start launches the cron scheduler in its own goroutine.
func (r *Runner) Start() {
	r.cron.Start()
}

// Stop halts scheduling and returns a context that closes once in-flight
// jobs finish.
func (r *Runner) Stop() context.Context {
	return r.cron.Stop()
}
