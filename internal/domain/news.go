package domain

import "time"

// NewsRequest is the inbound queue message that triggers one digest run.
// Preferences may be empty, in which case the pipeline resolves them from
// the user store.
type NewsRequest struct {
	Username    string   `json:"username"`
	Preferences []string `json:"preferences"`
}

type Article struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

// HasDescription reports whether the article carries text worth summarizing.
func (a Article) HasDescription() bool {
	return a.Description != nil && *a.Description != ""
}

// Summary is one summarized article. Order within a digest follows the
// source article order.
type Summary struct {
	Article Article `json:"article"`
	Text    string  `json:"text"`
}

// Digest is the ordered collection of summaries produced for one request.
type Digest []Summary

// CachedNews is the raw fetch result stored per username. Expiry is owned
// by the cache backend TTL.
type CachedNews struct {
	Username string    `json:"username"`
	Articles []Article `json:"articles"`
	CachedAt time.Time `json:"cached_at"`
}

// UserProfile is the slice of the users table the pipeline reads.
type UserProfile struct {
	Username    string   `db:"username"`
	Email       string   `db:"email"`
	Preferences []string `db:"preferences"`
}
