package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicnotify/dispatch-engine/internal/domain"
)

type pgSubscriptionStore struct {
	pool *pgxpool.Pool
}

// NewPgSubscriptionStore returns a SubscriptionStore reading the
// externally-owned subscriptions and subscribers tables.
func NewPgSubscriptionStore(pool *pgxpool.Pool) SubscriptionStore {
	return &pgSubscriptionStore{pool: pool}
}

func (r *pgSubscriptionStore) ActiveForCouncils(ctx context.Context, councilIDs []string) ([]domain.Subscription, error) {
	if len(councilIDs) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, subscriber_id, council_id, channels, frequency, active
		FROM subscriptions
		WHERE active AND council_id = ANY($1)`, councilIDs)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var s domain.Subscription
		var channels []string
		if err := rows.Scan(&s.ID, &s.SubscriberID, &s.CouncilID, &channels, &s.Frequency, &s.Active); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		s.Channels = make([]domain.Channel, len(channels))
		for i, ch := range channels {
			s.Channels[i] = domain.Channel(ch)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *pgSubscriptionStore) SubscribersByID(ctx context.Context, ids []string) (map[string]domain.Subscriber, error) {
	if len(ids) == 0 {
		return map[string]domain.Subscriber{}, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, email, phone, email_confirmed, message_confirmed
		FROM subscribers
		WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	result := make(map[string]domain.Subscriber, len(ids))
	for rows.Next() {
		var s domain.Subscriber
		if err := rows.Scan(&s.ID, &s.Email, &s.Phone, &s.EmailConfirmed, &s.MessageConfirmed); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		result[s.ID] = s
	}
	return result, rows.Err()
}
