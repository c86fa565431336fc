package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civicnotify/dispatch-engine/internal/domain"
)

// digestGroup is all due items for one (subscriber, channel), delivered as
// a single batched payload.
type digestGroup struct {
	subscriberID string
	channel      domain.Channel
	items        []domain.DueItem
}

// RunDigest is one digest invocation for the daily or weekly cadence.
// All pending items due at or before the run's start are grouped by
// (subscriber, channel); each group gets exactly one transport call, and
// every item in the group transitions together.
func (e *Engine) RunDigest(ctx context.Context, freq domain.Frequency) (domain.RunStats, error) {
	var job string
	switch freq {
	case domain.FrequencyDaily:
		job = domain.JobDigestDaily
	case domain.FrequencyWeekly:
		job = domain.JobDigestWeekly
	default:
		return domain.RunStats{}, domain.ErrInvalidFrequency
	}

	start := e.now().UTC()
	log := e.logger.With(
		zap.String("job", job),
		zap.String("run_id", uuid.New().String()),
		zap.Bool("dry_run", e.dryRun),
	)
	log.Info("run starting")

	var stats domain.RunStats

	due, err := e.queue.DueDigest(ctx, freq, start)
	if err != nil {
		return stats, fmt.Errorf("select due digest items: %w", err)
	}
	stats.EventsProcessed = len(due)

	if len(due) == 0 {
		// An empty window is a normal outcome; the watermark still advances.
		return stats, e.finishRun(ctx, job, start, stats, log)
	}

	subscribers, err := e.lookupSubscribers(ctx, due)
	if err != nil {
		return stats, err
	}

	for _, g := range groupDue(due) {
		subscriber, ok := subscribers[g.subscriberID]
		if !ok {
			log.Warn("digest group references missing subscriber",
				zap.String("subscriber_id", g.subscriberID))
			stats.Skipped += len(g.items)
			continue
		}
		if g.channel == domain.ChannelMessage && e.sched.InQuietHours(start) {
			// A digest run landing inside the quiet window leaves message
			// groups pending for the next scheduled invocation.
			stats.Skipped += len(g.items)
			continue
		}
		stats.PairsResolved += len(g.items)
		if e.sendGroup(ctx, g, subscriber) {
			stats.SendsSucceeded++
		} else {
			stats.SendsFailed++
		}
	}

	return stats, e.finishRun(ctx, job, start, stats, log)
}

// groupDue folds due items into (subscriber, channel) groups, preserving
// the store's ordering within and across groups.
func groupDue(due []domain.DueItem) []digestGroup {
	type key struct {
		subscriberID string
		channel      domain.Channel
	}
	index := make(map[key]int)
	var groups []digestGroup
	for _, d := range due {
		k := key{d.SubscriberID, d.Item.Channel}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, digestGroup{subscriberID: k.subscriberID, channel: k.channel})
		}
		groups[i].items = append(groups[i].items, d)
	}
	return groups
}
