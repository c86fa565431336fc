package domain

import "time"

// Job names used as keys in the run ledger and for the advisory lock.
const (
	JobDispatch     = "dispatch"
	JobDigestDaily  = "digest-daily"
	JobDigestWeekly = "digest-weekly"
)

// RunStats are the per-invocation counters surfaced to operators and
// persisted alongside the watermark.
type RunStats struct {
	EventsProcessed int `json:"events_processed"`
	PairsResolved   int `json:"pairs_resolved"`
	ItemsQueued     int `json:"items_queued"`
	SendsSucceeded  int `json:"sends_succeeded"`
	SendsFailed     int `json:"sends_failed"`
	Skipped         int `json:"skipped"`
}

// Watermark is the durable record of the last successful run of one job.
type Watermark struct {
	JobName   string
	LastRunAt time.Time
	Stats     RunStats
	UpdatedAt time.Time
}
