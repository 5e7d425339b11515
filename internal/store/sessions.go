package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tasktrack/internal/models"
)

// Session is one browser session row.
type Session struct {
	TokenHash  string
	UserID     int64
	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastSeenAt time.Time
}

// Sessions is the session repository.
type Sessions struct{}

// Create stores a session bound to one user and token hash.
func (Sessions) Create(ctx context.Context, q Querier, userID int64, tokenHash string, expiresAt, createdAt time.Time) error {
	tokenHash = strings.TrimSpace(tokenHash)
	if userID <= 0 {
		return fmt.Errorf("user id is required")
	}
	if tokenHash == "" {
		return fmt.Errorf("token hash is required")
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO sessions (token_hash, user_id, created_at, expires_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?)
	`, tokenHash, userID, formatTime(createdAt), formatTime(expiresAt), formatTime(createdAt))
	return err
}

// Lookup returns the session and its user for an unexpired token hash.
func (Sessions) Lookup(ctx context.Context, q Querier, tokenHash string, now time.Time) (*Session, *models.User, error) {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return nil, nil, nil
	}

	var (
		session   Session
		createdAt string
		expiresAt string
		lastSeen  string
	)
	err := q.QueryRowContext(ctx, `
		SELECT token_hash, user_id, created_at, expires_at, last_seen_at
		FROM sessions
		WHERE token_hash = ? AND expires_at > ?
	`, tokenHash, formatTime(now)).Scan(&session.TokenHash, &session.UserID, &createdAt, &expiresAt, &lastSeen)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, nil, err
	}
	if session.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, nil, err
	}
	if session.LastSeenAt, err = parseTime(lastSeen); err != nil {
		return nil, nil, err
	}

	user, err := Users{}.Get(ctx, q, session.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, nil
	}
	return &session, user, nil
}

// Extend moves a session's expiry forward.
func (Sessions) Extend(ctx context.Context, q Querier, tokenHash string, expiresAt, seenAt time.Time) error {
	_, err := q.ExecContext(ctx, `
		UPDATE sessions SET expires_at = ?, last_seen_at = ? WHERE token_hash = ?
	`, formatTime(expiresAt), formatTime(seenAt), tokenHash)
	return err
}

// Revoke deletes one session by token hash.
func (Sessions) Revoke(ctx context.Context, q Querier, tokenHash string) error {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return nil
	}
	_, err := q.ExecContext(ctx, "DELETE FROM sessions WHERE token_hash = ?", tokenHash)
	return err
}

// RevokeForUser deletes every session of one user.
func (Sessions) RevokeForUser(ctx context.Context, q Querier, userID int64) error {
	_, err := q.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", userID)
	return err
}

// PurgeExpired deletes sessions that expired before now.
func (Sessions) PurgeExpired(ctx context.Context, q Querier, now time.Time) (int64, error) {
	result, err := q.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", formatTime(now))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
