package domain

import "errors"

// Request-fatal error classes. Everything else (per-article summarization
// failures, notification delivery errors) is absorbed inside the pipeline
// and surfaced only through logs and stats.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrFetchFailed  = errors.New("news fetch failed")
)
