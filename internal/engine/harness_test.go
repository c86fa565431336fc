package engine_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/civicnotify/dispatch-engine/internal/domain"
	"github.com/civicnotify/dispatch-engine/internal/engine"
	"github.com/civicnotify/dispatch-engine/internal/ratelimiter"
	"github.com/civicnotify/dispatch-engine/internal/repository"
	"github.com/civicnotify/dispatch-engine/internal/schedule"
	"github.com/civicnotify/dispatch-engine/internal/transport"
)

// Fixtures run on Wednesday 2026-03-04 UTC with quiet hours 21:00–08:00,
// daily digest 08:00, weekly digest Monday 08:00.
func at(day, hour, minute int) time.Time {
	return time.Date(2026, 3, day, hour, minute, 0, 0, time.UTC)
}

// fakeTransport records every send and can be told to fail per channel.
type fakeTransport struct {
	mu          sync.Mutex
	emails      []string
	emailBodies []transport.Payload
	messages    []string
	failEmail   bool
	failMessage bool
}

func (f *fakeTransport) SendEmail(_ context.Context, address string, p transport.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEmail {
		return errors.New("email transport down")
	}
	f.emails = append(f.emails, address)
	f.emailBodies = append(f.emailBodies, p)
	return nil
}

func (f *fakeTransport) SendMessage(_ context.Context, address string, p transport.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMessage {
		return errors.New("message transport down")
	}
	f.messages = append(f.messages, address)
	return nil
}

func (f *fakeTransport) emailCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.emails)
}

func (f *fakeTransport) messageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

// env bundles the in-memory stores behind one engine instance.
type env struct {
	ledger  *repository.MockRunLedger
	changes *repository.MockChangeSource
	subs    *repository.MockSubscriptionStore
	queue   *repository.MockQueueStore
	logs    *repository.MockNotificationLog
	tr      *fakeTransport
	sched   *schedule.Schedule
	eng     *engine.Engine
}

func newEnv(now time.Time, opts ...engine.Option) *env {
	e := &env{
		ledger:  repository.NewMockRunLedger(),
		changes: &repository.MockChangeSource{},
		subs:    &repository.MockSubscriptionStore{Subscribers: map[string]domain.Subscriber{}},
		queue:   repository.NewMockQueueStore(),
		logs:    repository.NewMockNotificationLog(),
		tr:      &fakeTransport{},
		sched: schedule.New(time.UTC,
			schedule.Clock{Hour: 21}, schedule.Clock{Hour: 8},
			schedule.Clock{Hour: 8},
			time.Monday, schedule.Clock{Hour: 8}),
	}
	e.eng = e.build(now, opts...)
	return e
}

// build wires an engine over the env's stores; tests use it a second time
// to simulate an overlapping invocation with its own (stale) ledger.
func (e *env) build(now time.Time, opts ...engine.Option) *engine.Engine {
	all := append([]engine.Option{
		engine.WithClock(func() time.Time { return now }),
	}, opts...)
	return engine.New(engine.Deps{
		Ledger:        e.ledger,
		Changes:       e.changes,
		Subscriptions: e.subs,
		Queue:         e.queue,
		Log:           e.logs,
		Email:         e.tr,
		Message:       e.tr,
		Limiter:       ratelimiter.New(1000),
		Schedule:      e.sched,
	}, 15*time.Minute, zap.NewNop(), all...)
}

func (e *env) addSubscription(sub domain.Subscription, subscriber domain.Subscriber) {
	e.subs.Subscriptions = append(e.subs.Subscriptions, sub)
	e.subs.Subscribers[subscriber.ID] = subscriber
	e.queue.Subscriptions[sub.ID] = sub
}

func (e *env) addEvent(ev domain.ChangeEvent) {
	e.changes.Events = append(e.changes.Events, ev)
	e.queue.Events[ev.ID] = ev
}

// pendingItems counts queue rows still in the pending state.
func (e *env) pendingItems() int {
	n := 0
	for _, item := range e.queue.Items() {
		if item.Status == domain.QueuePending {
			n++
		}
	}
	return n
}
