package transport

import (
	"fmt"
	"strings"
	"time"

	"github.com/civicnotify/dispatch-engine/internal/domain"
)

const eventTimeLayout = "Mon 02 Jan 2006 15:04"

// SinglePayload renders the notification for one changed meeting.
func SinglePayload(e domain.ChangeEvent, loc *time.Location) Payload {
	return Payload{
		Subject: fmt.Sprintf("Meeting update: %s", e.Title),
		Body: fmt.Sprintf("%s on %s was added or updated.",
			e.Title, e.StartsAt.In(loc).Format(eventTimeLayout)),
	}
}

// DigestPayload renders one batched notification for a set of pending
// events, with a count and a per-event summary line.
func DigestPayload(events []domain.ChangeEvent, loc *time.Location) Payload {
	var b strings.Builder
	fmt.Fprintf(&b, "%d meeting update(s):\n", len(events))
	for _, e := range events {
		fmt.Fprintf(&b, "- %s on %s\n", e.Title, e.StartsAt.In(loc).Format(eventTimeLayout))
	}
	return Payload{
		Subject: fmt.Sprintf("Meeting digest: %d update(s)", len(events)),
		Body:    b.String(),
	}
}
