package models

import "time"

// FileText is the extracted content of one uploaded file.
type FileText struct {
	Text     string `json:"text"`
	NumPages int    `json:"numPages"`
	NumWords int    `json:"numWords"`
}

// ChatMessage is one turn of the session's chat transcript.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SessionPayload is the full mutable session data blob. It is always
// persisted as one unit; there are no partial updates.
type SessionPayload struct {
	FileTexts        map[string]FileText `json:"fileTexts"`
	Summaries        []string            `json:"summaries"`
	CurrentSummaries string              `json:"currentSummaries"`
	Messages         []ChatMessage       `json:"messages"`
}

// NewSessionPayload returns an empty payload with initialized containers.
func NewSessionPayload() *SessionPayload {
	return &SessionPayload{
		FileTexts: make(map[string]FileText),
		Summaries: []string{},
		Messages:  []ChatMessage{},
	}
}

// IsEmpty reports whether the payload holds no files, summaries or messages.
func (p *SessionPayload) IsEmpty() bool {
	return len(p.FileTexts) == 0 && len(p.Summaries) == 0 &&
		p.CurrentSummaries == "" && len(p.Messages) == 0
}

// SessionRecord is the durable copy of a session payload.
type SessionRecord struct {
	SessionID   string          `json:"session_id"`
	Data        *SessionPayload `json:"data"`
	LastUpdated time.Time       `json:"last_updated"`
}
