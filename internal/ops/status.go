package ops

import (
	"sync"
	"time"

	"github.com/civicnotify/dispatch-engine/internal/domain"
)

// RunSummary is the last observed outcome of one job, served on /status.
type RunSummary struct {
	Job      string          `json:"job"`
	RanAt    time.Time       `json:"ran_at"`
	Duration string          `json:"duration"`
	Stats    domain.RunStats `json:"stats"`
	Error    string          `json:"error,omitempty"`
}

// StatusBoard keeps the most recent RunSummary per job in memory for the
// ops endpoint. Serve mode updates it after every cron-triggered run.
type StatusBoard struct {
	mu   sync.RWMutex
	runs map[string]RunSummary
}

func NewStatusBoard() *StatusBoard {
	return &StatusBoard{runs: make(map[string]RunSummary)}
}

// Record stores the outcome of one run.
func (b *StatusBoard) Record(job string, ranAt time.Time, duration time.Duration, stats domain.RunStats, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := RunSummary{
		Job:      job,
		RanAt:    ranAt,
		Duration: duration.String(),
		Stats:    stats,
	}
	if err != nil {
		s.Error = err.Error()
	}
	b.runs[job] = s
}

// Snapshot returns a copy of all run summaries.
func (b *StatusBoard) Snapshot() map[string]RunSummary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]RunSummary, len(b.runs))
	for job, s := range b.runs {
		out[job] = s
	}
	return out
}
