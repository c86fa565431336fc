// Package schedule holds the pure time policy: the quiet-hours window for
// the message channel and the fixed daily/weekly digest delivery times.
// Every function takes the current time as an explicit parameter so the
// policy is testable with fixed values; there is no hidden clock read.
package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Clock is a wall-clock time of day (hour and minute) in the engine's
// configured timezone.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" into a Clock.
func ParseClock(s string) (Clock, error) {
	var c Clock
	if _, err := fmt.Sscanf(s, "%d:%d", &c.Hour, &c.Minute); err != nil {
		return Clock{}, fmt.Errorf("parse clock %q: %w", s, err)
	}
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return Clock{}, fmt.Errorf("clock %q out of range", s)
	}
	return c, nil
}

// ParseWeekday parses an English weekday name ("Monday").
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), s) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

func (c Clock) minutes() int { return c.Hour*60 + c.Minute }

// Schedule evaluates the quiet-hours window and digest delivery times
// against one fixed timezone, independent of subscriber location.
type Schedule struct {
	loc        *time.Location
	quietStart Clock
	quietEnd   Clock
	dailyAt    Clock
	weeklyDay  time.Weekday
	weeklyAt   Clock
}

func New(loc *time.Location, quietStart, quietEnd, dailyAt Clock, weeklyDay time.Weekday, weeklyAt Clock) *Schedule {
	return &Schedule{
		loc:        loc,
		quietStart: quietStart,
		quietEnd:   quietEnd,
		dailyAt:    dailyAt,
		weeklyDay:  weeklyDay,
		weeklyAt:   weeklyAt,
	}
}

// Location returns the fixed timezone all clocks are evaluated in.
func (s *Schedule) Location() *time.Location { return s.loc }

// InQuietHours reports whether now falls inside the disallowed window for
// message-channel sends. The window may wrap midnight (e.g. 21:00–08:00).
func (s *Schedule) InQuietHours(now time.Time) bool {
	t := now.In(s.loc)
	m := t.Hour()*60 + t.Minute()
	start, end := s.quietStart.minutes(), s.quietEnd.minutes()
	if start <= end {
		return m >= start && m < end
	}
	return m >= start || m < end
}

// NextAllowed returns the earliest timestamp at or after now that is outside
// the quiet-hours window. If now is already allowed it is returned unchanged.
func (s *Schedule) NextAllowed(now time.Time) time.Time {
	if !s.InQuietHours(now) {
		return now
	}
	t := now.In(s.loc)
	end := s.at(t, s.quietEnd)
	if !end.After(t) {
		end = s.at(t.AddDate(0, 0, 1), s.quietEnd)
	}
	return end
}

// NextDaily returns the next occurrence of the daily digest delivery time
// strictly after now.
func (s *Schedule) NextDaily(now time.Time) time.Time {
	t := now.In(s.loc)
	next := s.at(t, s.dailyAt)
	if !next.After(t) {
		next = s.at(t.AddDate(0, 0, 1), s.dailyAt)
	}
	return next
}

// NextWeekly returns the next occurrence of the weekly digest weekday and
// delivery time strictly after now.
func (s *Schedule) NextWeekly(now time.Time) time.Time {
	t := now.In(s.loc)
	ahead := (int(s.weeklyDay) - int(t.Weekday()) + 7) % 7
	next := s.at(t.AddDate(0, 0, ahead), s.weeklyAt)
	if !next.After(t) {
		next = s.at(next.AddDate(0, 0, 7), s.weeklyAt)
	}
	return next
}

// at pins a clock time onto the date of day in the schedule's timezone.
// Going through time.Date keeps DST transitions correct.
func (s *Schedule) at(day time.Time, c Clock) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, s.loc)
}
