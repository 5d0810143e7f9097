package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/apocalipssi/docanalyzer/internal/activity"
	"github.com/apocalipssi/docanalyzer/internal/auth"
	"github.com/apocalipssi/docanalyzer/internal/models"
	"github.com/apocalipssi/docanalyzer/internal/request"
	"github.com/apocalipssi/docanalyzer/internal/validation"
	"github.com/gorilla/mux"
)

// genericAuthFailure is the single message for every login failure so
// that responses do not reveal whether an account exists.
const genericAuthFailure = "Incorrect email or password"

// AuthHandler handles registration and login requests
type AuthHandler struct {
	credentials *auth.CredentialService
	tokens      *auth.TokenManager
	recorder    activity.Recorder
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(credentials *auth.CredentialService, tokens *auth.TokenManager, recorder activity.Recorder) *AuthHandler {
	return &AuthHandler{credentials: credentials, tokens: tokens, recorder: recorder}
}

// RegisterRoutes registers auth routes on the given router
// The router should already have the /api/v1/auth prefix
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
}

// RegisterProtectedRoutes registers auth routes that require a valid token
func (h *AuthHandler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.GetMe).Methods("GET")
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,max=254"`
	Password    string `json:"password" validate:"required,max=256"`
	DisplayName string `json:"display_name" validate:"max=100"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=256"`
}

// LoginResponse carries the session token and its owner
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates a new user account
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	userID, err := h.credentials.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		case errors.Is(err, auth.ErrDuplicateEmail):
			respondJSONError(w, http.StatusConflict, "Conflict", err.Error())
		default:
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to register user")
		}
		return
	}

	h.recorder.Record(models.ActivityUserRegistered, userID.String(), map[string]any{
		"email": req.Email,
	})

	respondJSON(w, http.StatusCreated, map[string]any{"user_id": userID})
}

// Login verifies credentials and returns a session token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	user, err := h.credentials.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		// One generic message for every failure mode
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", genericAuthFailure)
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to issue token")
		return
	}

	h.recorder.Record(models.ActivityUserLogin, user.ID.String(), map[string]any{
		"email": user.Email,
	})

	respondJSON(w, http.StatusOK, LoginResponse{Token: token, User: user})
}

// GetMe returns current user information
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	respondJSON(w, http.StatusOK, user)
}
