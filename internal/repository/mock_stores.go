package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/civicnotify/dispatch-engine/internal/domain"
)

// Hand-written, in-memory implementations of the store interfaces used in
// unit tests. No mock-generation library needed. Each mock exposes optional
// error overrides to simulate failure paths.

// MockChangeSource serves a fixed slice of events.
type MockChangeSource struct {
	Events []domain.ChangeEvent
	Err    error
}

func (m *MockChangeSource) ChangedSince(_ context.Context, since, now time.Time) ([]domain.ChangeEvent, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var out []domain.ChangeEvent
	for _, e := range m.Events {
		if e.ModifiedAt.After(since) && e.StartsAt.After(now) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModifiedAt.Before(out[j].ModifiedAt) })
	return out, nil
}

// MockSubscriptionStore serves fixed subscriptions and subscribers.
type MockSubscriptionStore struct {
	Subscriptions []domain.Subscription
	Subscribers   map[string]domain.Subscriber
	Err           error
}

func (m *MockSubscriptionStore) ActiveForCouncils(_ context.Context, councilIDs []string) ([]domain.Subscription, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	wanted := make(map[string]bool, len(councilIDs))
	for _, id := range councilIDs {
		wanted[id] = true
	}
	var out []domain.Subscription
	for _, s := range m.Subscriptions {
		if s.Active && wanted[s.CouncilID] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MockSubscriptionStore) SubscribersByID(_ context.Context, ids []string) (map[string]domain.Subscriber, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[string]domain.Subscriber)
	for _, id := range ids {
		if s, ok := m.Subscribers[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

type queueKey struct {
	subscriptionID string
	eventID        string
	channel        domain.Channel
}

// MockQueueStore emulates the unique (subscription, event, channel) index
// and the joins performed by the Postgres implementation. Populate
// Subscriptions and Events with the same fixtures the test feeds the other
// mocks so the due-item joins resolve.
type MockQueueStore struct {
	mu            sync.Mutex
	items         map[string]*domain.QueueItem
	byKey         map[queueKey]string
	Subscriptions map[string]domain.Subscription
	Events        map[string]domain.ChangeEvent
	EnqueueErr    error
}

func NewMockQueueStore() *MockQueueStore {
	return &MockQueueStore{
		items:         make(map[string]*domain.QueueItem),
		byKey:         make(map[queueKey]string),
		Subscriptions: make(map[string]domain.Subscription),
		Events:        make(map[string]domain.ChangeEvent),
	}
}

func (m *MockQueueStore) Enqueue(_ context.Context, item domain.QueueItem) (bool, error) {
	if m.EnqueueErr != nil {
		return false, m.EnqueueErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := queueKey{item.SubscriptionID, item.EventID, item.Channel}
	if _, exists := m.byKey[key]; exists {
		return false, nil
	}
	clone := item
	m.items[item.ID] = &clone
	m.byKey[key] = item.ID
	return true, nil
}

func (m *MockQueueStore) DueDeferred(_ context.Context, now time.Time) ([]domain.DueItem, error) {
	return m.due(now, domain.FrequencyImmediate)
}

func (m *MockQueueStore) DueDigest(_ context.Context, freq domain.Frequency, now time.Time) ([]domain.DueItem, error) {
	return m.due(now, freq)
}

func (m *MockQueueStore) due(now time.Time, freq domain.Frequency) ([]domain.DueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.DueItem
	for _, item := range m.items {
		if item.Status != domain.QueuePending || item.ScheduledFor.After(now) {
			continue
		}
		sub, ok := m.Subscriptions[item.SubscriptionID]
		if !ok || sub.Frequency != freq {
			continue
		}
		out = append(out, domain.DueItem{
			Item:         *item,
			SubscriberID: sub.SubscriberID,
			Frequency:    sub.Frequency,
			Event:        m.Events[item.EventID],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SubscriberID != b.SubscriberID {
			return a.SubscriberID < b.SubscriberID
		}
		if a.Item.Channel != b.Item.Channel {
			return a.Item.Channel < b.Item.Channel
		}
		return a.Event.StartsAt.Before(b.Event.StartsAt)
	})
	return out, nil
}

func (m *MockQueueStore) MarkSent(_ context.Context, ids []string, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if item, ok := m.items[id]; ok && item.Status == domain.QueuePending {
			item.Status = domain.QueueSent
			t := sentAt
			item.SentAt = &t
		}
	}
	return nil
}

func (m *MockQueueStore) MarkFailed(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if item, ok := m.items[id]; ok && item.Status == domain.QueuePending {
			item.Status = domain.QueueFailed
		}
	}
	return nil
}

// Items returns a snapshot of all queue rows, for test assertions.
func (m *MockQueueStore) Items() []domain.QueueItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.QueueItem, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, *item)
	}
	return out
}

// MockNotificationLog is an append-only in-memory log.
type MockNotificationLog struct {
	mu      sync.Mutex
	entries []domain.LogEntry
	Err     error
}

func NewMockNotificationLog() *MockNotificationLog {
	return &MockNotificationLog{}
}

func (m *MockNotificationLog) Append(_ context.Context, e domain.LogEntry) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *MockNotificationLog) SentChannels(_ context.Context, subscriberID, eventID string) (map[domain.Channel]bool, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sent := make(map[domain.Channel]bool)
	for _, e := range m.entries {
		if e.SubscriberID == subscriberID && e.EventID == eventID && e.Outcome == domain.OutcomeSent {
			sent[e.Channel] = true
		}
	}
	return sent, nil
}

// Entries returns a snapshot of the log, for test assertions.
func (m *MockNotificationLog) Entries() []domain.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.LogEntry(nil), m.entries...)
}

// MockRunLedger keeps watermarks in memory.
type MockRunLedger struct {
	mu         sync.Mutex
	watermarks map[string]domain.Watermark
	RecordErr  error
}

func NewMockRunLedger() *MockRunLedger {
	return &MockRunLedger{watermarks: make(map[string]domain.Watermark)}
}

func (m *MockRunLedger) Watermark(_ context.Context, job string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.watermarks[job]
	if !ok {
		return time.Time{}, false, nil
	}
	return w.LastRunAt, true, nil
}

func (m *MockRunLedger) RecordRun(_ context.Context, job string, ranAt time.Time, stats domain.RunStats) error {
	if m.RecordErr != nil {
		return m.RecordErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.watermarks[job]
	if ranAt.After(w.LastRunAt) {
		w.LastRunAt = ranAt
	}
	w.JobName = job
	w.Stats = stats
	w.UpdatedAt = time.Now().UTC()
	m.watermarks[job] = w
	return nil
}
