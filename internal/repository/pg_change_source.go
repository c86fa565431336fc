package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicnotify/dispatch-engine/internal/domain"
)

type pgChangeSource struct {
	pool *pgxpool.Pool
}

// NewPgChangeSource returns a ChangeSource backed by the meetings table.
func NewPgChangeSource(pool *pgxpool.Pool) ChangeSource {
	return &pgChangeSource{pool: pool}
}

func (r *pgChangeSource) ChangedSince(ctx context.Context, since, now time.Time) ([]domain.ChangeEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, council_id, title, starts_at, modified_at
		FROM meetings
		WHERE modified_at > $1
		  AND starts_at > $2
		ORDER BY modified_at ASC`, since, now)
	if err != nil {
		return nil, fmt.Errorf("query changed meetings: %w", err)
	}
	defer rows.Close()

	var events []domain.ChangeEvent
	for rows.Next() {
		var e domain.ChangeEvent
		if err := rows.Scan(&e.ID, &e.CouncilID, &e.Title, &e.StartsAt, &e.ModifiedAt); err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
