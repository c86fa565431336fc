package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/civicnotify/dispatch-engine/internal/domain"
)

// ResolvedPair is one (subscription, event) pair that passed resolution:
// the subscription is active, the subscriber exists and has confirmed at
// least one channel, and Channels lists only the channels still owed a
// delivery (confirmed, in the subscription's channel set, and without a
// prior sent entry in the notification log).
type ResolvedPair struct {
	Subscription domain.Subscription
	Subscriber   domain.Subscriber
	Event        domain.ChangeEvent
	Channels     []domain.Channel
}

// resolve maps change events to the subscriptions that must be considered.
// Each (subscriber, event) pair is taken at most once even when the
// subscriber reaches the event through several interest keys, and channels
// already delivered in a previous run are dropped here. Any store failure
// is fatal to the run: nothing was committed yet, so retrying the whole
// window is safe.
func (e *Engine) resolve(ctx context.Context, events []domain.ChangeEvent) ([]ResolvedPair, error) {
	if len(events) == 0 {
		return nil, nil
	}

	councilSet := make(map[string]bool)
	for _, ev := range events {
		councilSet[ev.CouncilID] = true
	}
	councils := make([]string, 0, len(councilSet))
	for id := range councilSet {
		councils = append(councils, id)
	}

	subs, err := e.subs.ActiveForCouncils(ctx, councils)
	if err != nil {
		return nil, fmt.Errorf("load subscriptions: %w", err)
	}

	byCouncil := make(map[string][]domain.Subscription)
	subscriberIDs := make(map[string]bool)
	for _, s := range subs {
		byCouncil[s.CouncilID] = append(byCouncil[s.CouncilID], s)
		subscriberIDs[s.SubscriberID] = true
	}

	ids := make([]string, 0, len(subscriberIDs))
	for id := range subscriberIDs {
		ids = append(ids, id)
	}
	subscribers, err := e.subs.SubscribersByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load subscribers: %w", err)
	}

	seen := make(map[string]bool)
	var pairs []ResolvedPair
	for _, ev := range events {
		for _, sub := range byCouncil[ev.CouncilID] {
			subscriber, ok := subscribers[sub.SubscriberID]
			if !ok {
				// Data inconsistency: skip the pair, keep the run going.
				e.logger.Warn("subscription references missing subscriber",
					zap.String("subscription_id", sub.ID),
					zap.String("subscriber_id", sub.SubscriberID))
				continue
			}
			if !subscriber.AnyConfirmed() {
				continue
			}

			key := sub.SubscriberID + "\x00" + ev.ID
			if seen[key] {
				continue
			}
			seen[key] = true

			sent, err := e.log.SentChannels(ctx, sub.SubscriberID, ev.ID)
			if err != nil {
				return nil, fmt.Errorf("check notification log: %w", err)
			}

			var channels []domain.Channel
			for _, ch := range sub.Channels {
				if !ch.IsValid() || !subscriber.Confirmed(ch) || sent[ch] {
					continue
				}
				channels = append(channels, ch)
			}
			if len(channels) == 0 {
				continue
			}

			pairs = append(pairs, ResolvedPair{
				Subscription: sub,
				Subscriber:   subscriber,
				Event:        ev,
				Channels:     channels,
			})
		}
	}
	return pairs, nil
}
