package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civicnotify/dispatch-engine/internal/domain"
	"github.com/civicnotify/dispatch-engine/internal/transport"
)

// deliver invokes the channel transport for one send, after the per-channel
// rate limiter grants a token. The transport's own timeout bounds the call;
// any error (non-2xx, timeout, connection failure) is a failed delivery.
func (e *Engine) deliver(ctx context.Context, ch domain.Channel, address string, p transport.Payload) error {
	if err := e.limiter.Wait(ctx, ch); err != nil {
		return err
	}
	switch ch {
	case domain.ChannelEmail:
		return e.email.SendEmail(ctx, address, p)
	case domain.ChannelMessage:
		return e.message.SendMessage(ctx, address, p)
	}
	return domain.ErrInvalidChannel
}

// appendLog writes one audit entry. A log write failure after a successful
// send is not fatal: the worst case is a repeated delivery on a later run,
// which the at-least-once contract allows.
func (e *Engine) appendLog(ctx context.Context, subscriptionID, subscriberID, eventID string, ch domain.Channel, outcome domain.Outcome) {
	entry := domain.LogEntry{
		ID:             uuid.New().String(),
		SubscriptionID: subscriptionID,
		SubscriberID:   subscriberID,
		EventID:        eventID,
		Channel:        ch,
		Outcome:        outcome,
		CreatedAt:      e.now().UTC(),
	}
	if err := e.log.Append(ctx, entry); err != nil {
		e.logger.Error("failed to append notification log entry",
			zap.String("subscription_id", subscriptionID),
			zap.String("event_id", eventID),
			zap.String("channel", string(ch)),
			zap.Error(err))
	}
}

// sendImmediate delivers a single-event notification on the immediate path
// (no queue item involved). Returns whether the send succeeded.
func (e *Engine) sendImmediate(ctx context.Context, pair ResolvedPair, ch domain.Channel) bool {
	log := e.logger.With(
		zap.String("subscription_id", pair.Subscription.ID),
		zap.String("event_id", pair.Event.ID),
		zap.String("channel", string(ch)),
	)

	if e.dryRun {
		log.Info("dry-run: would send immediately")
		return true
	}

	payload := transport.SinglePayload(pair.Event, e.sched.Location())
	err := e.deliver(ctx, ch, pair.Subscriber.Address(ch), payload)
	if err != nil {
		log.Warn("send failed", zap.Error(err))
		e.appendLog(ctx, pair.Subscription.ID, pair.Subscriber.ID, pair.Event.ID, ch, domain.OutcomeFailed)
		e.hooks.OnFailed(ch)
		return false
	}

	e.appendLog(ctx, pair.Subscription.ID, pair.Subscriber.ID, pair.Event.ID, ch, domain.OutcomeSent)
	e.hooks.OnSent(ch)
	log.Info("notification sent")
	return true
}

// sendDue delivers one due deferred queue item and transitions it to its
// terminal state. Failed items are not retried within the run.
func (e *Engine) sendDue(ctx context.Context, d domain.DueItem, subscriber domain.Subscriber) bool {
	log := e.logger.With(
		zap.String("queue_item_id", d.Item.ID),
		zap.String("event_id", d.Item.EventID),
		zap.String("channel", string(d.Item.Channel)),
	)

	if e.dryRun {
		log.Info("dry-run: would send deferred item")
		return true
	}

	ch := d.Item.Channel
	payload := transport.SinglePayload(d.Event, e.sched.Location())
	err := e.deliver(ctx, ch, subscriber.Address(ch), payload)
	sentAt := e.now().UTC()

	if err != nil {
		log.Warn("deferred send failed", zap.Error(err))
		e.markQueue(ctx, []string{d.Item.ID}, time.Time{}, false, log)
		e.appendLog(ctx, d.Item.SubscriptionID, subscriber.ID, d.Item.EventID, ch, domain.OutcomeFailed)
		e.hooks.OnFailed(ch)
		return false
	}

	e.markQueue(ctx, []string{d.Item.ID}, sentAt, true, log)
	e.appendLog(ctx, d.Item.SubscriptionID, subscriber.ID, d.Item.EventID, ch, domain.OutcomeSent)
	e.hooks.OnSent(ch)
	log.Info("deferred notification sent")
	return true
}

// sendGroup delivers one digest group with a single transport call, then
// transitions every item in the group together and writes one log entry
// per item so the per-pair dedup check stays complete.
func (e *Engine) sendGroup(ctx context.Context, g digestGroup, subscriber domain.Subscriber) bool {
	log := e.logger.With(
		zap.String("subscriber_id", g.subscriberID),
		zap.String("channel", string(g.channel)),
		zap.Int("items", len(g.items)),
	)

	if e.dryRun {
		log.Info("dry-run: would send digest")
		return true
	}

	events := make([]domain.ChangeEvent, len(g.items))
	ids := make([]string, len(g.items))
	for i, d := range g.items {
		events[i] = d.Event
		ids[i] = d.Item.ID
	}

	payload := transport.DigestPayload(events, e.sched.Location())
	err := e.deliver(ctx, g.channel, subscriber.Address(g.channel), payload)
	sentAt := e.now().UTC()

	outcome := domain.OutcomeSent
	if err != nil {
		log.Warn("digest send failed", zap.Error(err))
		outcome = domain.OutcomeFailed
	}

	e.markQueue(ctx, ids, sentAt, err == nil, log)
	for _, d := range g.items {
		e.appendLog(ctx, d.Item.SubscriptionID, subscriber.ID, d.Item.EventID, g.channel, outcome)
	}

	if err != nil {
		e.hooks.OnFailed(g.channel)
		return false
	}
	e.hooks.OnSent(g.channel)
	log.Info("digest sent")
	return true
}

func (e *Engine) markQueue(ctx context.Context, ids []string, sentAt time.Time, sent bool, log *zap.Logger) {
	var err error
	if sent {
		err = e.queue.MarkSent(ctx, ids, sentAt)
	} else {
		err = e.queue.MarkFailed(ctx, ids)
	}
	if err != nil {
		log.Error("failed to update queue item status", zap.Error(err))
	}
}
