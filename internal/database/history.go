package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apocalipssi/docanalyzer/internal/models"
	"github.com/google/uuid"
)

// HistoryRepository persists the cross-session document, summary and
// conversation history records.
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// SaveDocument upserts the history record for an uploaded file, keyed by
// filename: re-uploading the same file overwrites the previous record.
func (r *HistoryRepository) SaveDocument(ctx context.Context, doc *models.DocumentRecord) error {
	if !r.db.Connected() {
		return nil
	}

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}

	query := `
		INSERT INTO documents (id, filename, content, num_pages, num_words, file_size, upload_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (filename) DO UPDATE
		SET content = EXCLUDED.content,
		    num_pages = EXCLUDED.num_pages,
		    num_words = EXCLUDED.num_words,
		    file_size = EXCLUDED.file_size,
		    upload_date = EXCLUDED.upload_date
	`

	if _, err := r.db.ExecContext(ctx, query,
		doc.ID,
		doc.Filename,
		doc.Content,
		doc.NumPages,
		doc.NumWords,
		doc.FileSize,
		time.Now(),
	); err != nil {
		return fmt.Errorf("failed to save document %s: %w", doc.Filename, err)
	}

	return nil
}

// GetDocumentByFilename returns the stored document record, or nil when
// no document with that filename exists.
func (r *HistoryRepository) GetDocumentByFilename(ctx context.Context, filename string) (*models.DocumentRecord, error) {
	if !r.db.Connected() {
		return nil, nil
	}

	doc := &models.DocumentRecord{}
	query := `
		SELECT id, filename, content, num_pages, num_words, file_size, upload_date
		FROM documents
		WHERE filename = $1
	`

	err := r.db.QueryRowContext(ctx, query, filename).Scan(
		&doc.ID,
		&doc.Filename,
		&doc.Content,
		&doc.NumPages,
		&doc.NumWords,
		&doc.FileSize,
		&doc.UploadDate,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", filename, err)
	}

	return doc, nil
}

// SaveSummary records one summarization run.
func (r *HistoryRepository) SaveSummary(ctx context.Context, rec *models.SummaryRecord) error {
	if !r.db.Connected() {
		return nil
	}

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	summaries, err := json.Marshal(rec.Summaries)
	if err != nil {
		return fmt.Errorf("failed to marshal summaries: %w", err)
	}
	files, err := json.Marshal(rec.FilesAnalyzed)
	if err != nil {
		return fmt.Errorf("failed to marshal files analyzed: %w", err)
	}

	query := `
		INSERT INTO summaries (id, timestamp, summaries, files_analyzed, total_files)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := r.db.ExecContext(ctx, query,
		rec.ID,
		time.Now(),
		summaries,
		files,
		len(rec.FilesAnalyzed),
	); err != nil {
		return fmt.Errorf("failed to save summary record: %w", err)
	}

	return nil
}

// SaveConversation records one question/answer exchange.
func (r *HistoryRepository) SaveConversation(ctx context.Context, rec *models.ConversationRecord) error {
	if !r.db.Connected() {
		return nil
	}

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	files, err := json.Marshal(rec.FilesReferenced)
	if err != nil {
		return fmt.Errorf("failed to marshal files referenced: %w", err)
	}

	query := `
		INSERT INTO conversations (id, timestamp, question, answer, files_referenced, session_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := r.db.ExecContext(ctx, query,
		rec.ID,
		time.Now(),
		rec.Question,
		rec.Answer,
		files,
		rec.SessionID,
	); err != nil {
		return fmt.Errorf("failed to save conversation record: %w", err)
	}

	return nil
}

// Counts returns the totals shown on the history panel.
func (r *HistoryRepository) Counts(ctx context.Context) (documents, summaries, conversations int, err error) {
	if !r.db.Connected() {
		return 0, 0, 0, nil
	}

	for _, c := range []struct {
		table string
		dst   *int
	}{
		{"documents", &documents},
		{"summaries", &summaries},
		{"conversations", &conversations},
	} {
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, c.table)
		if err = r.db.QueryRowContext(ctx, query).Scan(c.dst); err != nil {
			return 0, 0, 0, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}

	return documents, summaries, conversations, nil
}

// RecentDocuments returns the newest document records, newest-first.
func (r *HistoryRepository) RecentDocuments(ctx context.Context, limit int) ([]*models.DocumentRecord, error) {
	if !r.db.Connected() {
		return nil, nil
	}

	query := `
		SELECT id, filename, content, num_pages, num_words, file_size, upload_date
		FROM documents
		ORDER BY upload_date DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent documents: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			_ = err
		}
	}()

	var docs []*models.DocumentRecord
	for rows.Next() {
		doc := &models.DocumentRecord{}
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.Content, &doc.NumPages,
			&doc.NumWords, &doc.FileSize, &doc.UploadDate); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return docs, nil
}
