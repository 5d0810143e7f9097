package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apocalipssi/docanalyzer/internal/models"
	"github.com/google/uuid"
)

// ActivityLogRepository handles the append-only activity log.
type ActivityLogRepository struct {
	db *DB
}

// NewActivityLogRepository creates a new activity log repository
func NewActivityLogRepository(db *DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

// Append inserts one entry. Entries are never updated afterwards.
func (r *ActivityLogRepository) Append(ctx context.Context, entry *models.ActivityEntry) error {
	if !r.db.Connected() {
		return nil
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.UserID == "" {
		entry.UserID = models.AnonymousUserID
	}

	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal log details: %w", err)
	}

	query := `
		INSERT INTO activity_logs (id, timestamp, activity_type, user_id, details)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Timestamp,
		entry.ActivityType,
		entry.UserID,
		details,
	); err != nil {
		return fmt.Errorf("failed to append activity log: %w", err)
	}

	return nil
}

// Recent returns at most limit entries ordered newest-first. An empty
// userID returns entries across all users.
func (r *ActivityLogRepository) Recent(ctx context.Context, limit int, userID string) ([]*models.ActivityEntry, error) {
	if !r.db.Connected() {
		return nil, nil
	}

	query := `
		SELECT id, timestamp, activity_type, user_id, details
		FROM activity_logs
	`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += fmt.Sprintf(` ORDER BY timestamp DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity logs: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			// Rows may already be closed
			_ = err
		}
	}()

	var entries []*models.ActivityEntry
	for rows.Next() {
		entry := &models.ActivityEntry{}
		var details []byte
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.ActivityType, &entry.UserID, &details); err != nil {
			return nil, fmt.Errorf("failed to scan activity log: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal log details: %w", err)
			}
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity logs: %w", err)
	}

	return entries, nil
}

// Prune deletes all but the newest keep entries. This is the explicit
// retention policy: the log never grows without bound.
func (r *ActivityLogRepository) Prune(ctx context.Context, keep int) (int64, error) {
	if !r.db.Connected() || keep <= 0 {
		return 0, nil
	}

	query := `
		DELETE FROM activity_logs
		WHERE id NOT IN (
			SELECT id FROM activity_logs
			ORDER BY timestamp DESC
			LIMIT $1
		)
	`

	result, err := r.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune activity logs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}
