package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// sendRequest is the JSON body posted to a channel service.
type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

// httpSender POSTs payloads to an external delivery service and expects a
// 2xx response. The base URL is injected from config so tests can point to
// a local mock. The client timeout is the mandatory per-call timeout: a
// slow transport surfaces as a failed send, never a hung run.
type httpSender struct {
	baseURL    string
	httpClient *http.Client
}

func newHTTPSender(baseURL string, timeout time.Duration) httpSender {
	return httpSender{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s httpSender) send(ctx context.Context, address string, p Payload) error {
	body, err := json.Marshal(sendRequest{To: address, Subject: p.Subject, Body: p.Body})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected transport status: %d", resp.StatusCode)
	}
	return nil
}

// EmailHTTPSender delivers via the external email service.
type EmailHTTPSender struct {
	httpSender
}

func NewEmailHTTPSender(baseURL string, timeout time.Duration) *EmailHTTPSender {
	return &EmailHTTPSender{newHTTPSender(baseURL, timeout)}
}

func (s *EmailHTTPSender) SendEmail(ctx context.Context, address string, p Payload) error {
	return s.send(ctx, address, p)
}

// MessageHTTPSender delivers via the external message service.
type MessageHTTPSender struct {
	httpSender
}

func NewMessageHTTPSender(baseURL string, timeout time.Duration) *MessageHTTPSender {
	return &MessageHTTPSender{newHTTPSender(baseURL, timeout)}
}

func (s *MessageHTTPSender) SendMessage(ctx context.Context, address string, p Payload) error {
	return s.send(ctx, address, p)
}

var (
	_ EmailSender   = (*EmailHTTPSender)(nil)
	_ MessageSender = (*MessageHTTPSender)(nil)
)
