package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/apocalipssi/docanalyzer/internal/request"
	"github.com/apocalipssi/docanalyzer/internal/session"
	"github.com/apocalipssi/docanalyzer/internal/validation"
	"github.com/gorilla/mux"
)

const (
	// MaxUploadSize bounds one uploaded document (10MB)
	MaxUploadSize int64 = 10 << 20
)

// SessionHandler handles document-chat session requests
type SessionHandler struct {
	manager     *session.Manager
	maxQuestion int
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(manager *session.Manager, maxQuestion int) *SessionHandler {
	return &SessionHandler{manager: manager, maxQuestion: maxQuestion}
}

// RegisterRoutes registers session routes on the given router
// The router should already have the /api/v1/sessions prefix
func (h *SessionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{id}", h.GetSession).Methods("GET")
	r.HandleFunc("/{id}/files", h.UploadFile).Methods("POST")
	r.HandleFunc("/{id}/summarize", h.Summarize).Methods("POST")
	r.HandleFunc("/{id}/ask", h.Ask).Methods("POST")
	r.HandleFunc("/{id}/save", h.Save).Methods("POST")
	r.HandleFunc("/{id}", h.ClearSession).Methods("DELETE")
}

// AskRequest represents a question request
type AskRequest struct {
	Question string `json:"question" validate:"required,min=1"`
}

// sessionContext validates the session id and builds the request's
// session context without touching storage.
func (h *SessionHandler) sessionContext(w http.ResponseWriter, r *http.Request) (*session.Context, bool) {
	sessionID := mux.Vars(r)["id"]
	if err := validation.ValidateSessionID(sessionID); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return nil, false
	}

	userID := ""
	if user := request.UserFromContext(r); user != nil {
		userID = user.ID.String()
	}

	return session.NewContext(sessionID, userID), true
}

// restore hydrates the session context silently, so that each mutating
// operation records exactly one activity entry of its own.
func (h *SessionHandler) restore(w http.ResponseWriter, r *http.Request) (*session.Context, bool) {
	sc, ok := h.sessionContext(w, r)
	if !ok {
		return nil, false
	}

	if _, err := h.manager.Hydrate(r.Context(), sc); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to restore session")
		return nil, false
	}

	return sc, true
}

// GetSession restores and returns the session payload. This is the one
// route that records session_restored.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.sessionContext(w, r)
	if !ok {
		return
	}

	if err := h.manager.Restore(r.Context(), sc); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to restore session")
		return
	}

	respondJSON(w, http.StatusOK, sc.Payload)
}

// UploadFile accepts a multipart document upload and extracts its text
func (h *SessionHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.restore(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Missing file field")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Missing filename")
		return
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Only PDF files are supported")
		return
	}

	// Extraction needs random access; buffer the upload
	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Failed to read upload")
		return
	}
	if int64(len(data)) > MaxUploadSize {
		respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", "File exceeds the upload limit")
		return
	}

	result, err := h.manager.UploadFile(r.Context(), sc, filename, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		respondJSONError(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "Could not extract text from the document")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"filename":   filename,
		"num_pages":  result.NumPages,
		"num_words":  result.NumWords,
		"file_count": len(sc.Payload.FileTexts),
	})
}

// Summarize generates summaries for every uploaded file
func (h *SessionHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.restore(w, r)
	if !ok {
		return
	}

	summaries, err := h.manager.Summarize(r.Context(), sc)
	if err != nil {
		if errors.Is(err, session.ErrNoFiles) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to generate summaries")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"summaries": summaries})
}

// Ask answers a question against the session's documents
func (h *SessionHandler) Ask(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.restore(w, r)
	if !ok {
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	req.Question = validation.SanitizeText(req.Question)
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if len([]rune(req.Question)) > h.maxQuestion {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Question exceeds the length limit")
		return
	}

	answer, err := h.manager.Ask(r.Context(), sc, req.Question)
	if err != nil {
		if errors.Is(err, session.ErrNoFiles) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to answer the question")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"answer":   answer,
		"messages": sc.Payload.Messages,
	})
}

// Save persists the session payload on explicit request
func (h *SessionHandler) Save(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.restore(w, r)
	if !ok {
		return
	}

	if err := h.manager.SaveNow(r.Context(), sc); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"saved": true})
}

// ClearSession resets the session payload
func (h *SessionHandler) ClearSession(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.restore(w, r)
	if !ok {
		return
	}

	if err := h.manager.Clear(r.Context(), sc); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to clear session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"cleared": true})
}
