package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicnotify/dispatch-engine/internal/domain"
)

type pgNotificationLog struct {
	pool *pgxpool.Pool
}

// NewPgNotificationLog returns a NotificationLog backed by the
// notification_log table. The table is append-only; rows are never updated.
func NewPgNotificationLog(pool *pgxpool.Pool) NotificationLog {
	return &pgNotificationLog{pool: pool}
}

func (r *pgNotificationLog) Append(ctx context.Context, e domain.LogEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_log
			(id, subscription_id, subscriber_id, event_id, channel, outcome, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.SubscriptionID, e.SubscriberID, e.EventID, e.Channel, e.Outcome, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append log entry: %w", err)
	}
	return nil
}

// SentChannels keys the lookup on subscriber rather than subscription so a
// subscriber reached through two interest keys (e.g. a parent and a child
// council) is still deduplicated to one delivery per channel.
func (r *pgNotificationLog) SentChannels(ctx context.Context, subscriberID, eventID string) (map[domain.Channel]bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT channel
		FROM notification_log
		WHERE subscriber_id = $1 AND event_id = $2 AND outcome = 'sent'`,
		subscriberID, eventID)
	if err != nil {
		return nil, fmt.Errorf("query sent channels: %w", err)
	}
	defer rows.Close()

	sent := make(map[domain.Channel]bool)
	for rows.Next() {
		var ch domain.Channel
		if err := rows.Scan(&ch); err != nil {
			return nil, fmt.Errorf("scan sent channel: %w", err)
		}
		sent[ch] = true
	}
	return sent, rows.Err()
}
