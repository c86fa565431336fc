package repository

import (
	"context"
	"time"

	"github.com/civicnotify/dispatch-engine/internal/domain"
)

// ChangeSource reads meeting records written by the upstream scraper.
// Only rows modified after the watermark and still in the future are
// relevant to the engine.
type ChangeSource interface {
	// ChangedSince returns events with modified_at > since and
	// starts_at > now, ordered by modification time ascending.
	ChangedSince(ctx context.Context, since, now time.Time) ([]domain.ChangeEvent, error)
}

// SubscriptionStore reads the externally-owned subscription and subscriber
// tables. The engine never writes to either.
type SubscriptionStore interface {
	ActiveForCouncils(ctx context.Context, councilIDs []string) ([]domain.Subscription, error)
	SubscribersByID(ctx context.Context, ids []string) (map[string]domain.Subscriber, error)
}

// QueueStore is the durable holding area for deferred and digest items.
// Enqueue is idempotent: at most one row per (subscription, event, channel).
type QueueStore interface {
	// Enqueue inserts the item unless one already exists for its
	// (subscription, event, channel) triple. Returns false when the insert
	// was a no-op.
	Enqueue(ctx context.Context, item domain.QueueItem) (bool, error)
	// DueDeferred returns pending immediate-frequency items whose scheduled
	// time has passed (quiet-hours deferrals), joined with send context.
	DueDeferred(ctx context.Context, now time.Time) ([]domain.DueItem, error)
	// DueDigest returns pending items of the given cadence due at now.
	DueDigest(ctx context.Context, freq domain.Frequency, now time.Time) ([]domain.DueItem, error)
	MarkSent(ctx context.Context, ids []string, sentAt time.Time) error
	MarkFailed(ctx context.Context, ids []string) error
}

// NotificationLog is the append-only audit of every delivery attempt and
// the engine's primary defense against duplicate delivery across re-runs.
type NotificationLog interface {
	Append(ctx context.Context, e domain.LogEntry) error
	// SentChannels returns the channels on which (subscriber, event) has
	// already been delivered successfully, across all subscriptions.
	SentChannels(ctx context.Context, subscriberID, eventID string) (map[domain.Channel]bool, error)
}

// RunLedger stores one watermark row per job name.
type RunLedger interface {
	// Watermark returns the last successful run time for job, or
	// found=false when no prior run exists.
	Watermark(ctx context.Context, job string) (time.Time, bool, error)
	// RecordRun upserts the watermark; it must be called only after all
	// side effects of the run have been attempted.
	RecordRun(ctx context.Context, job string, ranAt time.Time, stats domain.RunStats) error
}
