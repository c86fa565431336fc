package transport_test

import (
	"strings"
	"testing"
	"time"

	"github.com/civicnotify/dispatch-engine/internal/domain"
	"github.com/civicnotify/dispatch-engine/internal/transport"
)

func TestSinglePayload(t *testing.T) {
	p := transport.SinglePayload(domain.ChangeEvent{
		Title:    "Transport Committee",
		StartsAt: time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC),
	}, time.UTC)

	if p.Subject != "Meeting update: Transport Committee" {
		t.Fatalf("subject: %q", p.Subject)
	}
	if !strings.Contains(p.Body, "Tue 10 Mar 2026 18:00") {
		t.Fatalf("body missing meeting time: %q", p.Body)
	}
}

func TestDigestPayload(t *testing.T) {
	events := []domain.ChangeEvent{
		{Title: "Budget Session", StartsAt: time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)},
		{Title: "Planning Board", StartsAt: time.Date(2026, 3, 11, 19, 30, 0, 0, time.UTC)},
	}
	p := transport.DigestPayload(events, time.UTC)

	if p.Subject != "Meeting digest: 2 update(s)" {
		t.Fatalf("subject: %q", p.Subject)
	}
	if !strings.HasPrefix(p.Body, "2 meeting update(s):") {
		t.Fatalf("body missing count line: %q", p.Body)
	}
	for _, want := range []string{"- Budget Session on Tue 10 Mar 2026 18:00", "- Planning Board on Wed 11 Mar 2026 19:30"} {
		if !strings.Contains(p.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, p.Body)
		}
	}
}

func TestDigestPayload_TimezoneRendering(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	p := transport.SinglePayload(domain.ChangeEvent{
		Title:    "Budget Session",
		StartsAt: time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC),
	}, berlin)
	if !strings.Contains(p.Body, "18:00") {
		t.Fatalf("expected local time rendering: %q", p.Body)
	}
}
