package database

import (
	"context"

	"github.com/apocalipssi/docanalyzer/internal/models"
	"github.com/google/uuid"
)

// UserRepositoryInterface defines the interface for user repository operations
// This interface enables better testability by allowing mock implementations
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
}

// SessionRepositoryInterface defines the interface for session persistence
type SessionRepositoryInterface interface {
	Save(ctx context.Context, sessionID string, payload *models.SessionPayload) error
	Load(ctx context.Context, sessionID string) (*models.SessionPayload, error)
	Delete(ctx context.Context, sessionID string) error
}

// ActivityLogRepositoryInterface defines the interface for activity log operations
type ActivityLogRepositoryInterface interface {
	Append(ctx context.Context, entry *models.ActivityEntry) error
	Recent(ctx context.Context, limit int, userID string) ([]*models.ActivityEntry, error)
	Prune(ctx context.Context, keep int) (int64, error)
}

// HistoryRepositoryInterface defines the interface for history records
type HistoryRepositoryInterface interface {
	SaveDocument(ctx context.Context, doc *models.DocumentRecord) error
	SaveSummary(ctx context.Context, rec *models.SummaryRecord) error
	SaveConversation(ctx context.Context, rec *models.ConversationRecord) error
}

// HistoryQueryInterface defines the read side of the history records,
// consumed by the history panel endpoints.
type HistoryQueryInterface interface {
	RecentDocuments(ctx context.Context, limit int) ([]*models.DocumentRecord, error)
	GetDocumentByFilename(ctx context.Context, filename string) (*models.DocumentRecord, error)
	Counts(ctx context.Context) (documents, summaries, conversations int, err error)
}

// Ensure concrete types implement the interfaces
var (
	_ UserRepositoryInterface        = (*UserRepository)(nil)
	_ SessionRepositoryInterface     = (*SessionRepository)(nil)
	_ ActivityLogRepositoryInterface = (*ActivityLogRepository)(nil)
	_ HistoryRepositoryInterface     = (*HistoryRepository)(nil)
	_ HistoryQueryInterface          = (*HistoryRepository)(nil)
)
