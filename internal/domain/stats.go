package domain

import "time"

// ProcessStats holds the outcome of one digest run.
type ProcessStats struct {
	Username   string
	CacheHit   bool
	Fetched    int
	Filtered   int
	Summarized int
	Dropped    int
	Notified   bool
	Duration   time.Duration
}
