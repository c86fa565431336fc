// Package engine implements the dispatch and digest batch runs: change
// detection against the run ledger's watermark, subscriber resolution,
// per-channel dispatch policy, and delivery execution with idempotent
// bookkeeping. Each run is a single pass; re-invocation after a crash is
// safe because enqueue is unique-keyed and the notification log is checked
// before every send.
package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/civicnotify/dispatch-engine/internal/domain"
	"github.com/civicnotify/dispatch-engine/internal/ratelimiter"
	"github.com/civicnotify/dispatch-engine/internal/repository"
	"github.com/civicnotify/dispatch-engine/internal/schedule"
	"github.com/civicnotify/dispatch-engine/internal/transport"
)

// Hooks carries metric callbacks injected by main so the engine stays
// metrics-agnostic. Any field may be nil.
type Hooks struct {
	OnSent   func(channel domain.Channel)
	OnFailed func(channel domain.Channel)
	OnRun    func(job string, duration time.Duration, stats domain.RunStats)
}

func (h Hooks) normalized() Hooks {
	if h.OnSent == nil {
		h.OnSent = func(domain.Channel) {}
	}
	if h.OnFailed == nil {
		h.OnFailed = func(domain.Channel) {}
	}
	if h.OnRun == nil {
		h.OnRun = func(string, time.Duration, domain.RunStats) {}
	}
	return h
}

// Deps groups the collaborators the engine coordinates.
type Deps struct {
	Ledger        repository.RunLedger
	Changes       repository.ChangeSource
	Subscriptions repository.SubscriptionStore
	Queue         repository.QueueStore
	Log           repository.NotificationLog
	Email         transport.EmailSender
	Message       transport.MessageSender
	Limiter       *ratelimiter.ChannelLimiters
	Schedule      *schedule.Schedule
}

// Engine runs the dispatch and digest jobs.
type Engine struct {
	ledger       repository.RunLedger
	changes      repository.ChangeSource
	subs         repository.SubscriptionStore
	queue        repository.QueueStore
	log          repository.NotificationLog
	email        transport.EmailSender
	message      transport.MessageSender
	limiter      *ratelimiter.ChannelLimiters
	sched        *schedule.Schedule
	pollInterval time.Duration
	logger       *zap.Logger
	hooks        Hooks
	now          func() time.Time
	dryRun       bool
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock, making runs testable with fixed time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithDryRun suppresses transport calls and persistent writes; intended
// actions are logged instead and the watermark is left untouched.
func WithDryRun(dryRun bool) Option {
	return func(e *Engine) { e.dryRun = dryRun }
}

// WithHooks installs metric callbacks.
func WithHooks(h Hooks) Option {
	return func(e *Engine) { e.hooks = h.normalized() }
}

// New wires an Engine. pollInterval is the watermark fallback window used
// when a job has no prior successful run.
func New(deps Deps, pollInterval time.Duration, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		ledger:       deps.Ledger,
		changes:      deps.Changes,
		subs:         deps.Subscriptions,
		queue:        deps.Queue,
		log:          deps.Log,
		email:        deps.Email,
		message:      deps.Message,
		limiter:      deps.Limiter,
		sched:        deps.Schedule,
		pollInterval: pollInterval,
		logger:       logger,
		hooks:        Hooks{}.normalized(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
