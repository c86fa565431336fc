package transport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/civicnotify/dispatch-engine/internal/transport"
)

func TestEmailHTTPSender_PostsJSON(t *testing.T) {
	var got struct {
		To      string `json:"to"`
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type: got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := transport.NewEmailHTTPSender(srv.URL, time.Second)
	err := s.SendEmail(context.Background(), "a@example.org", transport.Payload{
		Subject: "Meeting update: Transport Committee",
		Body:    "Transport Committee on Tue 10 Mar 2026 18:00 was added or updated.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.To != "a@example.org" {
		t.Fatalf("to: got %q", got.To)
	}
	if got.Subject == "" || got.Body == "" {
		t.Fatalf("payload not forwarded: %+v", got)
	}
}

func TestMessageHTTPSender_RejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := transport.NewMessageHTTPSender(srv.URL, time.Second)
	err := s.SendMessage(context.Background(), "+4915100000001", transport.Payload{Body: "hello"})
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestHTTPSender_TimeoutIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := transport.NewEmailHTTPSender(srv.URL, 20*time.Millisecond)
	err := s.SendEmail(context.Background(), "a@example.org", transport.Payload{Body: "hello"})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}
