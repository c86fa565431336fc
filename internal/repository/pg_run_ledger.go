package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicnotify/dispatch-engine/internal/domain"
)

type pgRunLedger struct {
	pool *pgxpool.Pool
}

// NewPgRunLedger returns a RunLedger backed by the run_watermarks table,
// one row per job name.
func NewPgRunLedger(pool *pgxpool.Pool) RunLedger {
	return &pgRunLedger{pool: pool}
}

func (r *pgRunLedger) Watermark(ctx context.Context, job string) (time.Time, bool, error) {
	var t time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT last_run_at FROM run_watermarks WHERE job_name = $1`, job).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read watermark: %w", err)
	}
	return t, true, nil
}

// RecordRun upserts the job's watermark. GREATEST keeps the watermark
// monotonic even if an overlapping manual run finishes out of order.
func (r *pgRunLedger) RecordRun(ctx context.Context, job string, ranAt time.Time, stats domain.RunStats) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO run_watermarks
			(job_name, last_run_at, events_processed, items_queued,
			 sends_succeeded, sends_failed, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (job_name) DO UPDATE SET
			last_run_at      = GREATEST(run_watermarks.last_run_at, EXCLUDED.last_run_at),
			events_processed = EXCLUDED.events_processed,
			items_queued     = EXCLUDED.items_queued,
			sends_succeeded  = EXCLUDED.sends_succeeded,
			sends_failed     = EXCLUDED.sends_failed,
			updated_at       = EXCLUDED.updated_at`,
		job, ranAt, stats.EventsProcessed, stats.ItemsQueued,
		stats.SendsSucceeded, stats.SendsFailed, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}
