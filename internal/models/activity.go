package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType names a logged user action. It is an open string enum:
// unknown values are stored as-is.
type ActivityType string

const (
	ActivityFileUploaded       ActivityType = "file_uploaded"
	ActivitySummariesGenerated ActivityType = "summaries_generated"
	ActivityQuestionAsked      ActivityType = "question_asked"
	ActivitySessionRestored    ActivityType = "session_restored"
	ActivityManualSave         ActivityType = "manual_save"
	ActivitySessionCleared     ActivityType = "session_cleared"
	ActivityErrorOccurred      ActivityType = "error_occurred"
	ActivityUserRegistered     ActivityType = "user_registered"
	ActivityUserLogin          ActivityType = "user_login"
)

// AnonymousUserID is the attribution sentinel for entries recorded
// without an authenticated user.
const AnonymousUserID = "anonymous"

// ActivityEntry is one append-only audit record. Entries are never
// mutated or deleted except by explicit retention pruning.
type ActivityEntry struct {
	ID           uuid.UUID      `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	ActivityType ActivityType   `json:"activity_type"`
	UserID       string         `json:"user_id"`
	Details      map[string]any `json:"details"`
}
