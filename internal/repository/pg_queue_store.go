package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicnotify/dispatch-engine/internal/domain"
)

type pgQueueStore struct {
	pool *pgxpool.Pool
}

// NewPgQueueStore returns a QueueStore backed by the queue_items table.
func NewPgQueueStore(pool *pgxpool.Pool) QueueStore {
	return &pgQueueStore{pool: pool}
}

// Enqueue relies on the unique index over (subscription_id, event_id,
// channel): re-enqueueing the same triple is a silent no-op regardless of
// the existing row's status.
func (r *pgQueueStore) Enqueue(ctx context.Context, item domain.QueueItem) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO queue_items
			(id, subscription_id, event_id, channel, status, scheduled_for, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (subscription_id, event_id, channel) DO NOTHING`,
		item.ID, item.SubscriptionID, item.EventID, item.Channel,
		item.Status, item.ScheduledFor, item.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("enqueue item: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

const dueItemColumns = `
	q.id, q.subscription_id, q.event_id, q.channel, q.status,
	q.scheduled_for, q.sent_at, q.created_at,
	s.subscriber_id, s.frequency,
	m.id, m.council_id, m.title, m.starts_at, m.modified_at`

func (r *pgQueueStore) DueDeferred(ctx context.Context, now time.Time) ([]domain.DueItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+dueItemColumns+`
		FROM queue_items q
		JOIN subscriptions s ON s.id = q.subscription_id
		JOIN meetings m ON m.id = q.event_id
		WHERE q.status = 'pending'
		  AND q.scheduled_for <= $1
		  AND s.frequency = 'immediate'
		ORDER BY q.scheduled_for ASC`, now)
	if err != nil {
		return nil, fmt.Errorf("query due deferred items: %w", err)
	}
	defer rows.Close()
	return scanDueItems(rows)
}

func (r *pgQueueStore) DueDigest(ctx context.Context, freq domain.Frequency, now time.Time) ([]domain.DueItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+dueItemColumns+`
		FROM queue_items q
		JOIN subscriptions s ON s.id = q.subscription_id
		JOIN meetings m ON m.id = q.event_id
		WHERE q.status = 'pending'
		  AND q.scheduled_for <= $1
		  AND s.frequency = $2
		ORDER BY s.subscriber_id, q.channel, m.starts_at`, now, freq)
	if err != nil {
		return nil, fmt.Errorf("query due digest items: %w", err)
	}
	defer rows.Close()
	return scanDueItems(rows)
}

func (r *pgQueueStore) MarkSent(ctx context.Context, ids []string, sentAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE queue_items
		SET status = 'sent', sent_at = $2
		WHERE id = ANY($1) AND status = 'pending'`, ids, sentAt)
	if err != nil {
		return fmt.Errorf("mark items sent: %w", err)
	}
	return nil
}

func (r *pgQueueStore) MarkFailed(ctx context.Context, ids []string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE queue_items
		SET status = 'failed'
		WHERE id = ANY($1) AND status = 'pending'`, ids)
	if err != nil {
		return fmt.Errorf("mark items failed: %w", err)
	}
	return nil
}

func scanDueItems(rows pgx.Rows) ([]domain.DueItem, error) {
	var items []domain.DueItem
	for rows.Next() {
		var d domain.DueItem
		err := rows.Scan(
			&d.Item.ID, &d.Item.SubscriptionID, &d.Item.EventID, &d.Item.Channel,
			&d.Item.Status, &d.Item.ScheduledFor, &d.Item.SentAt, &d.Item.CreatedAt,
			&d.SubscriberID, &d.Frequency,
			&d.Event.ID, &d.Event.CouncilID, &d.Event.Title, &d.Event.StartsAt, &d.Event.ModifiedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan due item: %w", err)
		}
		items = append(items, d)
	}
	return items, rows.Err()
}
