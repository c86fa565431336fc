package domain

import "time"

// Channel is the delivery channel for a notification.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelMessage Channel = "message"
)

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelMessage:
		return true
	}
	return false
}

// Frequency is the delivery cadence chosen by a subscriber.
type Frequency string

const (
	FrequencyImmediate Frequency = "immediate"
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
)

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyImmediate, FrequencyDaily, FrequencyWeekly:
		return true
	}
	return false
}

// ChangeEvent is a meeting record that was created or modified after the
// last watermark. Produced by the external change source; immutable here.
type ChangeEvent struct {
	ID         string
	CouncilID  string
	Title      string
	StartsAt   time.Time
	ModifiedAt time.Time
}

// Subscription links a subscriber to a council (the interest key) with a
// channel set and cadence. Owned by the subscriber-management subsystem;
// this engine only reads active rows.
type Subscription struct {
	ID           string
	SubscriberID string
	CouncilID    string
	Channels     []Channel
	Frequency    Frequency
	Active       bool
}

func (s Subscription) HasChannel(ch Channel) bool {
	for _, c := range s.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// Subscriber holds per-channel contact addresses and confirmation flags.
// Read-only from this engine's perspective.
type Subscriber struct {
	ID               string
	Email            string
	Phone            string
	EmailConfirmed   bool
	MessageConfirmed bool
}

// Confirmed reports whether the subscriber has confirmed the given channel.
func (s Subscriber) Confirmed(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return s.EmailConfirmed
	case ChannelMessage:
		return s.MessageConfirmed
	}
	return false
}

// Address returns the contact address for the given channel.
func (s Subscriber) Address(ch Channel) string {
	switch ch {
	case ChannelEmail:
		return s.Email
	case ChannelMessage:
		return s.Phone
	}
	return ""
}

// AnyConfirmed reports whether at least one channel is usable.
func (s Subscriber) AnyConfirmed() bool {
	return s.EmailConfirmed || s.MessageConfirmed
}
