package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/civicnotify/dispatch-engine/internal/domain"
)

// ChannelLimiters holds one token bucket limiter per delivery channel.
// Burst is set equal to the rate so no extra burst capacity is allowed
// beyond the configured per-second maximum.
type ChannelLimiters struct {
	limiters map[domain.Channel]*rate.Limiter
}

// New creates a ChannelLimiters with ratePerSec tokens per second per channel.
func New(ratePerSec int) *ChannelLimiters {
	r := rate.Limit(ratePerSec)
	burst := ratePerSec

	return &ChannelLimiters{
		limiters: map[domain.Channel]*rate.Limiter{
			domain.ChannelEmail:   rate.NewLimiter(r, burst),
			domain.ChannelMessage: rate.NewLimiter(r, burst),
		},
	}
}

// Wait blocks until the channel's limiter grants a token. Called by the
// delivery executor immediately before each transport call. Returns a
// non-nil error only if ctx is cancelled while waiting.
func (cl *ChannelLimiters) Wait(ctx context.Context, ch domain.Channel) error {
	return cl.limiters[ch].Wait(ctx)
}
