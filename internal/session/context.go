package session

import (
	"sort"

	"github.com/apocalipssi/docanalyzer/internal/models"
)

// Context is the in-memory working state of one document-chat session.
// It is passed explicitly to every orchestrator call; nothing about a
// session lives in package-level state.
type Context struct {
	SessionID string
	UserID    string
	Payload   *models.SessionPayload
	Loaded    bool
}

// NewContext creates an unloaded session context. Call Manager.Restore
// to hydrate it before use.
func NewContext(sessionID, userID string) *Context {
	return &Context{
		SessionID: sessionID,
		UserID:    userID,
		Payload:   models.NewSessionPayload(),
	}
}

// attribution returns the user id to stamp on activity entries.
func (sc *Context) attribution() string {
	if sc.UserID == "" {
		return models.AnonymousUserID
	}
	return sc.UserID
}

// filenames returns the session's uploaded filenames in stable order.
func (sc *Context) filenames() []string {
	names := make([]string, 0, len(sc.Payload.FileTexts))
	for name := range sc.Payload.FileTexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
