package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// JobLock is a session-scoped Postgres advisory lock keyed by job name.
// Correctness of the engine does not depend on it (queue uniqueness and the
// notification log make overlapping runs safe); it only prevents two
// concurrent invocations from wasting duplicate transport calls.
type JobLock struct {
	conn *pgxpool.Conn
	job  string
}

// AcquireJobLock tries to take the advisory lock for job without blocking.
// It returns (nil, false, nil) when another invocation already holds it.
// The lock is tied to a dedicated pooled connection held until Release.
func AcquireJobLock(ctx context.Context, pool *pgxpool.Pool, job string) (*JobLock, bool, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	err = conn.QueryRow(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, job).Scan(&acquired)
	if err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}
	return &JobLock{conn: conn, job: job}, true, nil
}

// Release unlocks and returns the connection to the pool.
func (l *JobLock) Release(ctx context.Context) {
	_, _ = l.conn.Exec(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, l.job)
	l.conn.Release()
}
