package domain

import "time"

// QueueStatus tracks the lifecycle of a queue item. An item is created as
// pending and transitions exactly once to sent or failed; it never returns
// to pending. Re-delivery after a crash works by re-selecting rows still
// pending past their scheduled time, not by resetting state.
type QueueStatus string

const (
	QueuePending QueueStatus = "pending"
	QueueSent    QueueStatus = "sent"
	QueueFailed  QueueStatus = "failed"
)

// QueueItem is a deferred or digest-bound delivery. At most one row exists
// per (subscription, event, channel), enforced by a unique constraint so a
// re-run never double-enqueues.
type QueueItem struct {
	ID             string
	SubscriptionID string
	EventID        string
	Channel        Channel
	Status         QueueStatus
	ScheduledFor   time.Time
	SentAt         *time.Time
	CreatedAt      time.Time
}

// DueItem is a pending queue item joined with the context needed to send it:
// the owning subscriber and the event being announced.
type DueItem struct {
	Item         QueueItem
	SubscriberID string
	Frequency    Frequency
	Event        ChangeEvent
}

// Outcome is the terminal result of one delivery attempt.
type Outcome string

const (
	OutcomeSent   Outcome = "sent"
	OutcomeFailed Outcome = "failed"
)

// LogEntry is one append-only audit record of a delivery attempt.
// Once an entry with OutcomeSent exists for (subscriber, event, channel),
// the engine must never attempt that send again.
type LogEntry struct {
	ID             string
	SubscriptionID string
	SubscriberID   string
	EventID        string
	Channel        Channel
	Outcome        Outcome
	CreatedAt      time.Time
}
