package engine

import (
	"time"

	"github.com/civicnotify/dispatch-engine/internal/domain"
)

// action is the dispatch policy's verdict for one (subscription, event,
// channel) triple.
type action int

const (
	actionSendNow action = iota
	actionDefer          // quiet-hours deferral, deliver at decision.at
	actionDigest         // fold into the next daily/weekly digest at decision.at
)

type decision struct {
	action action
	at     time.Time
}

// decide applies the dispatch policy. Email has no quiet-hours restriction;
// message-channel immediate sends inside the quiet window are deferred to
// the window's end. Daily and weekly cadences always queue for the next
// fixed delivery time, regardless of channel.
func (e *Engine) decide(freq domain.Frequency, ch domain.Channel, now time.Time) decision {
	switch freq {
	case domain.FrequencyDaily:
		return decision{action: actionDigest, at: e.sched.NextDaily(now)}
	case domain.FrequencyWeekly:
		return decision{action: actionDigest, at: e.sched.NextWeekly(now)}
	}

	// Immediate.
	if ch == domain.ChannelMessage && e.sched.InQuietHours(now) {
		return decision{action: actionDefer, at: e.sched.NextAllowed(now)}
	}
	return decision{action: actionSendNow, at: now}
}
