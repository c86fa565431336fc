package schedule_test

import (
	"testing"
	"time"

	"github.com/civicnotify/dispatch-engine/internal/schedule"
)

// Quiet window 21:00–08:00 (wraps midnight), daily digest 08:00, weekly
// digest Monday 08:00, all in UTC to keep the assertions fixture-stable.
func newSchedule(t *testing.T) *schedule.Schedule {
	t.Helper()
	return schedule.New(time.UTC,
		schedule.Clock{Hour: 21}, schedule.Clock{Hour: 8},
		schedule.Clock{Hour: 8},
		time.Monday, schedule.Clock{Hour: 8},
	)
}

// date builds a UTC timestamp on Wednesday 2026-03-04.
func date(hour, minute int) time.Time {
	return time.Date(2026, 3, 4, hour, minute, 0, 0, time.UTC)
}

func TestInQuietHours(t *testing.T) {
	s := newSchedule(t)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"midday is allowed", date(12, 0), false},
		{"just before window", date(20, 59), false},
		{"window start", date(21, 0), true},
		{"late evening", date(23, 30), true},
		{"after midnight", date(3, 0), true},
		{"just before window end", date(7, 59), true},
		{"window end is allowed", date(8, 0), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.InQuietHours(tc.now); got != tc.want {
				t.Fatalf("InQuietHours(%v) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestInQuietHours_NonWrappingWindow(t *testing.T) {
	s := schedule.New(time.UTC,
		schedule.Clock{Hour: 12}, schedule.Clock{Hour: 14},
		schedule.Clock{Hour: 8}, time.Monday, schedule.Clock{Hour: 8},
	)
	if !s.InQuietHours(date(13, 0)) {
		t.Fatal("13:00 should be inside a 12:00-14:00 window")
	}
	if s.InQuietHours(date(15, 0)) {
		t.Fatal("15:00 should be outside a 12:00-14:00 window")
	}
}

func TestNextAllowed(t *testing.T) {
	s := newSchedule(t)

	// Outside the window: unchanged.
	now := date(12, 0)
	if got := s.NextAllowed(now); !got.Equal(now) {
		t.Fatalf("expected now unchanged, got %v", got)
	}

	// Evening: defer to tomorrow 08:00.
	got := s.NextAllowed(date(22, 0))
	want := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("NextAllowed(22:00) = %v, want %v", got, want)
	}

	// Early morning: defer to today 08:00.
	got = s.NextAllowed(date(6, 30))
	want = date(8, 0)
	if !got.Equal(want) {
		t.Fatalf("NextAllowed(06:30) = %v, want %v", got, want)
	}
}

func TestNextDaily(t *testing.T) {
	s := newSchedule(t)

	// Before today's slot.
	got := s.NextDaily(date(6, 0))
	if want := date(8, 0); !got.Equal(want) {
		t.Fatalf("NextDaily(06:00) = %v, want %v", got, want)
	}

	// Exactly at the slot: strictly after now, so tomorrow.
	got = s.NextDaily(date(8, 0))
	if want := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("NextDaily(08:00) = %v, want %v", got, want)
	}

	// After the slot: tomorrow.
	got = s.NextDaily(date(22, 0))
	if want := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("NextDaily(22:00) = %v, want %v", got, want)
	}
}

func TestNextWeekly(t *testing.T) {
	s := newSchedule(t)

	// Wednesday → next Monday.
	got := s.NextWeekly(date(12, 0))
	if want := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("NextWeekly(Wed) = %v, want %v", got, want)
	}

	// Monday before the slot → same day.
	monday := time.Date(2026, 3, 9, 6, 0, 0, 0, time.UTC)
	got = s.NextWeekly(monday)
	if want := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("NextWeekly(Mon 06:00) = %v, want %v", got, want)
	}

	// Monday after the slot → next week.
	monday = time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	got = s.NextWeekly(monday)
	if want := time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("NextWeekly(Mon 09:00) = %v, want %v", got, want)
	}
}

func TestParseClock(t *testing.T) {
	c, err := schedule.ParseClock("21:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Hour != 21 || c.Minute != 30 {
		t.Fatalf("got %+v", c)
	}

	if _, err := schedule.ParseClock("25:00"); err == nil {
		t.Fatal("expected error for out-of-range hour")
	}
	if _, err := schedule.ParseClock("not-a-clock"); err == nil {
		t.Fatal("expected error for garbage input")
	}
}

func TestParseWeekday(t *testing.T) {
	d, err := schedule.ParseWeekday("monday")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != time.Monday {
		t.Fatalf("got %v", d)
	}
	if _, err := schedule.ParseWeekday("funday"); err == nil {
		t.Fatal("expected error for unknown weekday")
	}
}
