package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rakapradana/toko-api/internal/models"
)

// SessionRepository persists refresh-token session records.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a session row with an empty token value and returns its
// id. The token is attached separately because its claims must embed the
// row's own id.
func (r *SessionRepository) Create(ctx context.Context, ownerID string, expiresAt time.Time) (string, error) {
	id := uuid.NewString()
	const query = `INSERT INTO sessions (id, owner_id, token, expires_at, created_at) VALUES ($1, $2, '', $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, id, ownerID, expiresAt, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// AttachToken stores the signed refresh token's literal value on the row.
func (r *SessionRepository) AttachToken(ctx context.Context, id, token string) error {
	const query = `UPDATE sessions SET token = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, token); err != nil {
		return fmt.Errorf("attach session token: %w", err)
	}
	return nil
}

// FindByID returns a session record by identifier.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.SessionRecord, error) {
	const query = `SELECT id, owner_id, token, expires_at, created_at FROM sessions WHERE id = $1 LIMIT 1`
	var record models.SessionRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session by id: %w", err)
	}
	return &record, nil
}

// DeleteByID removes a session row. Deleting a nonexistent id is not an
// error.
func (r *SessionRepository) DeleteByID(ctx context.Context, id string) error {
	const query = `DELETE FROM sessions WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete session by id: %w", err)
	}
	return nil
}

// DeleteByToken removes any session row holding the given token value.
func (r *SessionRepository) DeleteByToken(ctx context.Context, token string) error {
	const query = `DELETE FROM sessions WHERE token = $1`
	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("delete session by token: %w", err)
	}
	return nil
}

// ListByOwner returns the owner's session records ordered oldest first.
func (r *SessionRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.SessionRecord, error) {
	const query = `SELECT id, owner_id, token, expires_at, created_at FROM sessions WHERE owner_id = $1 ORDER BY created_at ASC`
	var records []models.SessionRecord
	if err := r.db.SelectContext(ctx, &records, query, ownerID); err != nil {
		return nil, fmt.Errorf("list sessions by owner: %w", err)
	}
	return records, nil
}

// DeleteExpiredBefore garbage-collects rows whose expiry has passed.
func (r *SessionRepository) DeleteExpiredBefore(ctx context.Context, now time.Time) error {
	const query = `DELETE FROM sessions WHERE expires_at < $1`
	if _, err := r.db.ExecContext(ctx, query, now); err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	return nil
}
