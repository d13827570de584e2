package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"news_digest/internal/domain"
)

type PreferenceStore struct {
	db *sqlx.DB
}

func NewPreferenceStore(db *sqlx.DB) *PreferenceStore {
	return &PreferenceStore{db: db}
}

// GetProfile returns the user's delivery address and topic preferences.
// Returns domain.ErrUserNotFound for an unknown username.
func (s *PreferenceStore) GetProfile(ctx context.Context, username string) (*domain.UserProfile, error) {
	query := `SELECT username, email, preferences FROM users WHERE username = $1`

	var profile domain.UserProfile
	var prefs pq.StringArray
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&profile.Username,
		&profile.Email,
		&prefs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, username)
	}
	if err != nil {
		return nil, err
	}

	profile.Preferences = prefs
	return &profile, nil
}

// UpsertPreferences replaces the user's topic list.
func (s *PreferenceStore) UpsertPreferences(ctx context.Context, username string, preferences []string) error {
	query := `
		UPDATE users SET preferences = $2
		WHERE username = $1`

	res, err := s.db.ExecContext(ctx, query, username, pq.Array(preferences))
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrUserNotFound, username)
	}

	return nil
}
