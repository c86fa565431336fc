package ops_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/civicnotify/dispatch-engine/internal/domain"
	"github.com/civicnotify/dispatch-engine/internal/ops"
)

func newTestRouter(board *ops.StatusBoard) http.Handler {
	return ops.NewRouter(board, prometheus.NewRegistry(), zap.NewNop())
}

func TestHealthEndpoint(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(ops.NewStatusBoard()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body: %v", body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	board := ops.NewStatusBoard()
	ranAt := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	board.Record(domain.JobDispatch, ranAt, 250*time.Millisecond,
		domain.RunStats{EventsProcessed: 3, SendsSucceeded: 2}, nil)
	board.Record(domain.JobDigestDaily, ranAt, time.Second,
		domain.RunStats{}, errors.New("job already running"))

	srv := httptest.NewServer(newTestRouter(board))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]ops.RunSummary
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	dispatch, ok := body[domain.JobDispatch]
	if !ok {
		t.Fatalf("dispatch summary missing: %v", body)
	}
	if dispatch.Stats.SendsSucceeded != 2 || !dispatch.RanAt.Equal(ranAt) {
		t.Fatalf("dispatch summary: %+v", dispatch)
	}
	if body[domain.JobDigestDaily].Error != "job already running" {
		t.Fatalf("digest summary: %+v", body[domain.JobDigestDaily])
	}
}
