package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apocalipssi/docanalyzer/internal/models"
)

// SessionRepository persists session payloads keyed by session id.
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save upserts the full payload for a session and stamps last_updated.
// Concurrent saves to the same session id are last-write-wins; there is
// no optimistic concurrency token.
func (r *SessionRepository) Save(ctx context.Context, sessionID string, payload *models.SessionPayload) error {
	if !r.db.Connected() {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal session payload: %w", err)
	}

	query := `
		INSERT INTO sessions (session_id, data, last_updated)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE
		SET data = EXCLUDED.data,
		    last_updated = EXCLUDED.last_updated
	`

	if _, err := r.db.ExecContext(ctx, query, sessionID, data, time.Now()); err != nil {
		return fmt.Errorf("failed to save session %s: %w", sessionID, err)
	}

	return nil
}

// Load returns the last-saved payload for a session, or nil when the
// session id has never been saved (a first visit, not an error).
func (r *SessionRepository) Load(ctx context.Context, sessionID string) (*models.SessionPayload, error) {
	if !r.db.Connected() {
		return nil, nil
	}

	query := `SELECT data FROM sessions WHERE session_id = $1`

	var data []byte
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	payload := models.NewSessionPayload()
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session payload: %w", err)
	}
	if payload.FileTexts == nil {
		payload.FileTexts = make(map[string]models.FileText)
	}

	return payload, nil
}

// List returns the stored session records, most recently updated first.
// Used by the admin CLI; request handlers only ever load by id.
func (r *SessionRepository) List(ctx context.Context, limit int) ([]*models.SessionRecord, error) {
	if !r.db.Connected() {
		return nil, nil
	}

	query := `
		SELECT session_id, data, last_updated
		FROM sessions
		ORDER BY last_updated DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			_ = err
		}
	}()

	var records []*models.SessionRecord
	for rows.Next() {
		rec := &models.SessionRecord{Data: models.NewSessionPayload()}
		var data []byte
		if err := rows.Scan(&rec.SessionID, &data, &rec.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if err := json.Unmarshal(data, rec.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session payload: %w", err)
		}
		if rec.Data.FileTexts == nil {
			rec.Data.FileTexts = make(map[string]models.FileText)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return records, nil
}

// Delete removes the stored record for a session id.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	if !r.db.Connected() {
		return nil
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}

	return nil
}
