package handlers

import (
	"net/http"

	"github.com/apocalipssi/docanalyzer/internal/database"
	"github.com/apocalipssi/docanalyzer/internal/models"
	"github.com/gorilla/mux"
)

// HistoryHandler serves the cross-session history panel: recent
// documents, per-kind totals, and single-document lookup.
type HistoryHandler struct {
	history      database.HistoryQueryInterface
	displayLimit int
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(history database.HistoryQueryInterface, displayLimit int) *HistoryHandler {
	if displayLimit <= 0 {
		displayLimit = 20
	}
	return &HistoryHandler{history: history, displayLimit: displayLimit}
}

// RegisterRoutes registers history routes on the given router
// The router should already have the /api/v1/history prefix
func (h *HistoryHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.Overview).Methods("GET")
	r.HandleFunc("/documents/{filename}", h.GetDocument).Methods("GET")
}

// HistoryCounts carries the per-kind record totals
type HistoryCounts struct {
	Documents     int `json:"documents"`
	Summaries     int `json:"summaries"`
	Conversations int `json:"conversations"`
}

// OverviewResponse represents the history overview response
type OverviewResponse struct {
	Documents []*models.DocumentRecord `json:"documents"`
	Counts    HistoryCounts            `json:"counts"`
}

// Overview returns the newest document records and the record totals
func (h *HistoryHandler) Overview(w http.ResponseWriter, r *http.Request) {
	docs, err := h.history.RecentDocuments(r.Context(), h.displayLimit)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve document history")
		return
	}
	if docs == nil {
		docs = []*models.DocumentRecord{}
	}

	documents, summaries, conversations, err := h.history.Counts(r.Context())
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve history counts")
		return
	}

	respondJSON(w, http.StatusOK, OverviewResponse{
		Documents: docs,
		Counts: HistoryCounts{
			Documents:     documents,
			Summaries:     summaries,
			Conversations: conversations,
		},
	})
}

// GetDocument returns the stored record for one uploaded document
func (h *HistoryHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]

	doc, err := h.history.GetDocumentByFilename(r.Context(), filename)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve document")
		return
	}
	if doc == nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "No document with that filename")
		return
	}

	respondJSON(w, http.StatusOK, doc)
}
