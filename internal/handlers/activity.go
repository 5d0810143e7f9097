package handlers

import (
	"net/http"
	"strconv"

	"github.com/apocalipssi/docanalyzer/internal/database"
	"github.com/apocalipssi/docanalyzer/internal/models"
	"github.com/apocalipssi/docanalyzer/internal/request"
	"github.com/gorilla/mux"
)

// ActivityHandler serves the activity log read side
type ActivityHandler struct {
	logs         database.ActivityLogRepositoryInterface
	displayLimit int
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(logs database.ActivityLogRepositoryInterface, displayLimit int) *ActivityHandler {
	if displayLimit <= 0 {
		displayLimit = 20
	}
	return &ActivityHandler{logs: logs, displayLimit: displayLimit}
}

// RegisterRoutes registers activity routes on the given router
func (h *ActivityHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.Recent).Methods("GET")
}

// RecentResponse represents the recent activity response
type RecentResponse struct {
	Entries []*models.ActivityEntry `json:"entries"`
	Limit   int                     `json:"limit"`
}

// Recent returns the caller's newest activity entries, newest first.
// The limit query parameter is capped by the display limit. Entries are
// always scoped to the authenticated user; cross-user reads go through
// the admin CLI.
func (h *ActivityHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := h.displayLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "limit must be a positive integer")
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}

	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	entries, err := h.logs.Recent(r.Context(), limit, user.ID.String())
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve activity log")
		return
	}

	if entries == nil {
		entries = []*models.ActivityEntry{}
	}

	respondJSON(w, http.StatusOK, RecentResponse{Entries: entries, Limit: limit})
}
