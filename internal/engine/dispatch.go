package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civicnotify/dispatch-engine/internal/domain"
)

// RunDispatch is one dispatch invocation: flush due quiet-hours deferrals,
// detect changes since the watermark, resolve subscribers, apply the
// dispatch policy, and record the watermark. A returned error means the
// run aborted before recording its watermark; the next invocation re-scans
// the same window and the idempotent bookkeeping absorbs the overlap.
// Send failures never abort the run; they are counted in the stats.
func (e *Engine) RunDispatch(ctx context.Context) (domain.RunStats, error) {
	start := e.now().UTC()
	log := e.logger.With(
		zap.String("job", domain.JobDispatch),
		zap.String("run_id", uuid.New().String()),
		zap.Bool("dry_run", e.dryRun),
	)
	log.Info("run starting")

	var stats domain.RunStats

	if err := e.flushDeferred(ctx, start, &stats); err != nil {
		return stats, err
	}

	since, found, err := e.ledger.Watermark(ctx, domain.JobDispatch)
	if err != nil {
		return stats, fmt.Errorf("read watermark: %w", err)
	}
	if !found {
		// First run ever: scan one polling interval back.
		since = start.Add(-e.pollInterval)
	}

	events, err := e.changes.ChangedSince(ctx, since, start)
	if err != nil {
		return stats, fmt.Errorf("detect changes: %w", err)
	}
	stats.EventsProcessed = len(events)

	pairs, err := e.resolve(ctx, events)
	if err != nil {
		return stats, err
	}
	stats.PairsResolved = len(pairs)

	for _, pair := range pairs {
		for _, ch := range pair.Channels {
			d := e.decide(pair.Subscription.Frequency, ch, start)
			switch d.action {
			case actionSendNow:
				if e.sendImmediate(ctx, pair, ch) {
					stats.SendsSucceeded++
				} else {
					stats.SendsFailed++
				}
			case actionDefer, actionDigest:
				if err := e.enqueuePair(ctx, pair, ch, d.at, start, &stats, log); err != nil {
					return stats, err
				}
			}
		}
	}

	return stats, e.finishRun(ctx, domain.JobDispatch, start, stats, log)
}

// flushDeferred delivers pending immediate-frequency items whose scheduled
// time has passed, i.e. the quiet-hours deferrals from earlier runs. Quiet
// hours are re-checked at send time so a run landing back inside the
// window leaves items pending for the next morning's invocation.
func (e *Engine) flushDeferred(ctx context.Context, now time.Time, stats *domain.RunStats) error {
	due, err := e.queue.DueDeferred(ctx, now)
	if err != nil {
		return fmt.Errorf("select due deferred items: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	subscribers, err := e.lookupSubscribers(ctx, due)
	if err != nil {
		return err
	}

	for _, d := range due {
		if d.Item.Channel == domain.ChannelMessage && e.sched.InQuietHours(now) {
			stats.Skipped++
			continue
		}
		subscriber, ok := subscribers[d.SubscriberID]
		if !ok {
			e.logger.Warn("queue item references missing subscriber",
				zap.String("queue_item_id", d.Item.ID),
				zap.String("subscriber_id", d.SubscriberID))
			stats.Skipped++
			continue
		}
		if e.sendDue(ctx, d, subscriber) {
			stats.SendsSucceeded++
		} else {
			stats.SendsFailed++
		}
	}
	return nil
}

// enqueuePair creates one pending queue item. An enqueue hitting an
// existing (subscription, event, channel) row is a no-op; a
// store error is fatal because continuing could half-apply the window.
func (e *Engine) enqueuePair(ctx context.Context, pair ResolvedPair, ch domain.Channel, at, now time.Time, stats *domain.RunStats, log *zap.Logger) error {
	if e.dryRun {
		log.Info("dry-run: would enqueue",
			zap.String("subscription_id", pair.Subscription.ID),
			zap.String("event_id", pair.Event.ID),
			zap.String("channel", string(ch)),
			zap.Time("scheduled_for", at))
		stats.ItemsQueued++
		return nil
	}

	inserted, err := e.queue.Enqueue(ctx, domain.QueueItem{
		ID:             uuid.New().String(),
		SubscriptionID: pair.Subscription.ID,
		EventID:        pair.Event.ID,
		Channel:        ch,
		Status:         domain.QueuePending,
		ScheduledFor:   at,
		CreatedAt:      now,
	})
	if err != nil {
		return fmt.Errorf("enqueue item: %w", err)
	}
	if inserted {
		stats.ItemsQueued++
	} else {
		stats.Skipped++
	}
	return nil
}

func (e *Engine) lookupSubscribers(ctx context.Context, due []domain.DueItem) (map[string]domain.Subscriber, error) {
	idSet := make(map[string]bool)
	for _, d := range due {
		idSet[d.SubscriberID] = true
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	subscribers, err := e.subs.SubscribersByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load subscribers for due items: %w", err)
	}
	return subscribers, nil
}

// finishRun records the watermark (skipped in dry-run mode) and emits the
// run summary. It must run only after all side effects were attempted.
func (e *Engine) finishRun(ctx context.Context, job string, start time.Time, stats domain.RunStats, log *zap.Logger) error {
	if !e.dryRun {
		if err := e.ledger.RecordRun(ctx, job, start, stats); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}

	duration := e.now().UTC().Sub(start)
	log.Info("run complete",
		zap.Duration("duration", duration),
		zap.Int("events_processed", stats.EventsProcessed),
		zap.Int("pairs_resolved", stats.PairsResolved),
		zap.Int("items_queued", stats.ItemsQueued),
		zap.Int("sends_succeeded", stats.SendsSucceeded),
		zap.Int("sends_failed", stats.SendsFailed),
		zap.Int("skipped", stats.Skipped),
	)
	e.hooks.OnRun(job, duration, stats)
	return nil
}
