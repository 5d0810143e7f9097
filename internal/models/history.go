package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentRecord is the cross-session history entry for an uploaded file.
// Uploading the same filename again overwrites the previous record.
type DocumentRecord struct {
	ID         uuid.UUID `json:"id"`
	Filename   string    `json:"filename"`
	Content    string    `json:"content"`
	NumPages   int       `json:"num_pages"`
	NumWords   int       `json:"num_words"`
	FileSize   int64     `json:"file_size"`
	UploadDate time.Time `json:"upload_date"`
}

// SummaryRecord captures one summarization run over a set of files.
type SummaryRecord struct {
	ID            uuid.UUID `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Summaries     []string  `json:"summaries"`
	FilesAnalyzed []string  `json:"files_analyzed"`
	TotalFiles    int       `json:"total_files"`
}

// ConversationRecord captures one question/answer exchange.
type ConversationRecord struct {
	ID              uuid.UUID `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	Question        string    `json:"question"`
	Answer          string    `json:"answer"`
	FilesReferenced []string  `json:"files_referenced"`
	SessionID       string    `json:"session_id"`
}
