package domain

import "errors"

// Sentinel errors used throughout the engine.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidChannel   = errors.New("invalid channel: must be email or message")
	ErrInvalidFrequency = errors.New("invalid frequency: must be immediate, daily, or weekly")
	ErrJobLocked        = errors.New("job is already running (advisory lock held)")
)
