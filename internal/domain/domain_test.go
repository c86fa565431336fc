package domain_test

import (
	"testing"

	"github.com/civicnotify/dispatch-engine/internal/domain"
)

func TestChannelIsValid(t *testing.T) {
	for _, ch := range []domain.Channel{domain.ChannelEmail, domain.ChannelMessage} {
		if !ch.IsValid() {
			t.Fatalf("channel %q: expected valid", ch)
		}
	}
	if domain.Channel("fax").IsValid() {
		t.Fatal("expected fax to be invalid")
	}
}

func TestFrequencyIsValid(t *testing.T) {
	for _, f := range []domain.Frequency{domain.FrequencyImmediate, domain.FrequencyDaily, domain.FrequencyWeekly} {
		if !f.IsValid() {
			t.Fatalf("frequency %q: expected valid", f)
		}
	}
	if domain.Frequency("hourly").IsValid() {
		t.Fatal("expected hourly to be invalid")
	}
}

func TestSubscriberConfirmedAndAddress(t *testing.T) {
	s := domain.Subscriber{
		ID:               "sub-1",
		Email:            "a@example.org",
		Phone:            "+4915112345678",
		EmailConfirmed:   true,
		MessageConfirmed: false,
	}

	if !s.Confirmed(domain.ChannelEmail) {
		t.Fatal("expected email confirmed")
	}
	if s.Confirmed(domain.ChannelMessage) {
		t.Fatal("expected message unconfirmed")
	}
	if got := s.Address(domain.ChannelEmail); got != "a@example.org" {
		t.Fatalf("email address: got %q", got)
	}
	if got := s.Address(domain.ChannelMessage); got != "+4915112345678" {
		t.Fatalf("message address: got %q", got)
	}
	if !s.AnyConfirmed() {
		t.Fatal("expected at least one confirmed channel")
	}
}

func TestSubscriptionHasChannel(t *testing.T) {
	s := domain.Subscription{Channels: []domain.Channel{domain.ChannelEmail}}
	if !s.HasChannel(domain.ChannelEmail) {
		t.Fatal("expected email in channel set")
	}
	if s.HasChannel(domain.ChannelMessage) {
		t.Fatal("did not expect message in channel set")
	}
}
