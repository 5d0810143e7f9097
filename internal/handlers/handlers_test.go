package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/apocalipssi/docanalyzer/internal/auth"
	"github.com/apocalipssi/docanalyzer/internal/models"
	"github.com/apocalipssi/docanalyzer/internal/request"
	"github.com/apocalipssi/docanalyzer/internal/services/extract"
	"github.com/apocalipssi/docanalyzer/internal/session"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ---- fakes ----

type fakeUserRepo struct {
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	copied := *user
	f.users[user.Email] = &copied
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user not found")
}

func (f *fakeUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID) error { return nil }

type fakeSessionRepo struct {
	payloads map[string]*models.SessionPayload
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{payloads: make(map[string]*models.SessionPayload)}
}

func (f *fakeSessionRepo) Save(ctx context.Context, sessionID string, payload *models.SessionPayload) error {
	copied := *payload
	f.payloads[sessionID] = &copied
	return nil
}

func (f *fakeSessionRepo) Load(ctx context.Context, sessionID string) (*models.SessionPayload, error) {
	payload, ok := f.payloads[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *payload
	return &copied, nil
}

func (f *fakeSessionRepo) Delete(ctx context.Context, sessionID string) error {
	delete(f.payloads, sessionID)
	return nil
}

type fakeHistoryRepo struct{}

func (f *fakeHistoryRepo) SaveDocument(ctx context.Context, doc *models.DocumentRecord) error {
	return nil
}
func (f *fakeHistoryRepo) SaveSummary(ctx context.Context, rec *models.SummaryRecord) error {
	return nil
}
func (f *fakeHistoryRepo) SaveConversation(ctx context.Context, rec *models.ConversationRecord) error {
	return nil
}

type fakeActivityRepo struct {
	entries []*models.ActivityEntry
}

func (f *fakeActivityRepo) Append(ctx context.Context, entry *models.ActivityEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeActivityRepo) Recent(ctx context.Context, limit int, userID string) ([]*models.ActivityEntry, error) {
	var out []*models.ActivityEntry
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if userID != "" && f.entries[i].UserID != userID {
			continue
		}
		out = append(out, f.entries[i])
	}
	return out, nil
}

func (f *fakeActivityRepo) Prune(ctx context.Context, keep int) (int64, error) { return 0, nil }

type fakeRecorder struct {
	types []models.ActivityType
}

func (f *fakeRecorder) Record(activityType models.ActivityType, userID string, details map[string]any) {
	f.types = append(f.types, activityType)
}

type fakeExtractor struct {
	result *extract.Result
	err    error
}

func (f *fakeExtractor) Extract(r io.ReaderAt, size int64) (*extract.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeProvider struct {
	summary string
	answer  string
}

func (f *fakeProvider) Summarize(ctx context.Context, filename, text string) (string, error) {
	return f.summary, nil
}

func (f *fakeProvider) Answer(ctx context.Context, question, docContext string) (string, error) {
	return f.answer, nil
}

// ---- helpers ----

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return env
}

func newSessionRouter(t *testing.T, sessions *fakeSessionRepo, provider *fakeProvider, extractor *fakeExtractor) *mux.Router {
	t.Helper()
	manager := session.NewManager(
		sessions, &fakeHistoryRepo{}, extractor, provider, &fakeRecorder{},
		3000, 100, zap.NewNop(),
		session.WithWarmupDelay(time.Millisecond),
	)
	handler := NewSessionHandler(manager, 100)
	r := mux.NewRouter()
	handler.RegisterRoutes(r.PathPrefix("/api/v1/sessions").Subrouter())
	return r
}

// ---- auth handler ----

func newAuthRouter(t *testing.T) (*mux.Router, *fakeUserRepo) {
	t.Helper()
	repo := newFakeUserRepo()
	credentials := auth.NewCredentialService(repo, 8, zap.NewNop())
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	handler := NewAuthHandler(credentials, tokens, &fakeRecorder{})
	r := mux.NewRouter()
	handler.RegisterRoutes(r.PathPrefix("/api/v1/auth").Subrouter())
	return r, repo
}

func TestRegisterEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid", `{"email":"a@b.co","password":"Passw0rd","display_name":"A"}`, http.StatusCreated},
		{"weak password", `{"email":"a@b.co","password":"password"}`, http.StatusBadRequest},
		{"invalid email", `{"email":"a@b","password":"Passw0rd"}`, http.StatusBadRequest},
		{"missing fields", `{}`, http.StatusBadRequest},
		{"invalid json", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, _ := newAuthRouter(t)
			req := httptest.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestRegisterDuplicateConflict(t *testing.T) {
	t.Parallel()

	r, _ := newAuthRouter(t)
	body := `{"email":"a@b.co","password":"Passw0rd"}`

	first := httptest.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(body))
	first.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, first)
	if w.Code != http.StatusCreated {
		t.Fatalf("first register status = %d", w.Code)
	}

	second := httptest.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(body))
	second.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, second)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", w.Code)
	}
}

func TestLoginEndpoint(t *testing.T) {
	t.Parallel()

	r, _ := newAuthRouter(t)
	register := httptest.NewRequest("POST", "/api/v1/auth/register",
		strings.NewReader(`{"email":"a@b.co","password":"Passw0rd"}`))
	register.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, register)
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d", w.Code)
	}

	login := httptest.NewRequest("POST", "/api/v1/auth/login",
		strings.NewReader(`{"email":"a@b.co","password":"Passw0rd"}`))
	login.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, login)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d (body %s)", w.Code, w.Body.String())
	}

	env := decodeEnvelope(t, w.Result())
	var data LoginResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode login data: %v", err)
	}
	if data.Token == "" {
		t.Error("login response missing token")
	}
	if data.User == nil || data.User.Email != "a@b.co" {
		t.Errorf("login user = %+v", data.User)
	}
}

func TestLoginGenericFailureMessage(t *testing.T) {
	t.Parallel()

	r, _ := newAuthRouter(t)
	register := httptest.NewRequest("POST", "/api/v1/auth/register",
		strings.NewReader(`{"email":"a@b.co","password":"Passw0rd"}`))
	register.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, register)

	// Unknown account and wrong password must be indistinguishable
	var messages []string
	for _, body := range []string{
		`{"email":"nobody@b.co","password":"Passw0rd"}`,
		`{"email":"a@b.co","password":"WrongPw1"}`,
	} {
		login := httptest.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(body))
		login.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, login)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("login status = %d, want 401", w.Code)
		}
		env := decodeEnvelope(t, w.Result())
		messages = append(messages, env.Message)
	}

	if messages[0] != messages[1] {
		t.Errorf("failure messages differ: %q vs %q", messages[0], messages[1])
	}
}

// ---- session handler ----

func TestGetSessionReturnsEmptyPayload(t *testing.T) {
	t.Parallel()

	r := newSessionRouter(t, newFakeSessionRepo(), &fakeProvider{}, &fakeExtractor{})
	req := httptest.NewRequest("GET", "/api/v1/sessions/s1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}

	env := decodeEnvelope(t, w.Result())
	var payload models.SessionPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if len(payload.FileTexts) != 0 || len(payload.Messages) != 0 {
		t.Errorf("payload = %+v, want empty", payload)
	}
}

func TestUploadEndpoint(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{result: &extract.Result{Text: "hello world", NumPages: 3, NumWords: 2}}
	sessions := newFakeSessionRepo()
	r := newSessionRouter(t, sessions, &fakeProvider{}, extractor)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "doc.pdf")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte("%PDF-1.4 fake")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/api/v1/sessions/s1/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}

	saved := sessions.payloads["s1"]
	if saved == nil || len(saved.FileTexts) != 1 {
		t.Fatal("payload was not persisted with the uploaded file")
	}
	if saved.FileTexts["doc.pdf"].NumPages != 3 {
		t.Errorf("stored pages = %d, want 3", saved.FileTexts["doc.pdf"].NumPages)
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	t.Parallel()

	r := newSessionRouter(t, newFakeSessionRepo(), &fakeProvider{}, &fakeExtractor{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "doc.txt")
	part.Write([]byte("plain text"))
	mw.Close()

	req := httptest.NewRequest("POST", "/api/v1/sessions/s1/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAskEndpoint(t *testing.T) {
	t.Parallel()

	sessions := newFakeSessionRepo()
	stored := models.NewSessionPayload()
	stored.FileTexts["doc.pdf"] = models.FileText{Text: "the answer is 42"}
	sessions.payloads["s1"] = stored

	r := newSessionRouter(t, sessions, &fakeProvider{answer: "42"}, &fakeExtractor{})

	req := httptest.NewRequest("POST", "/api/v1/sessions/s1/ask",
		strings.NewReader(`{"question":"what is the answer?"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
}

func TestAskValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"no files in session", `{"question":"hi there"}`, http.StatusBadRequest},
		{"empty question", `{"question":""}`, http.StatusBadRequest},
		{"too long question", `{"question":"` + strings.Repeat("q", 150) + `"}`, http.StatusBadRequest},
		{"invalid json", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newSessionRouter(t, newFakeSessionRepo(), &fakeProvider{answer: "ok"}, &fakeExtractor{})
			req := httptest.NewRequest("POST", "/api/v1/sessions/s1/ask", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestMutatingRoutesRecordOneEntryEach(t *testing.T) {
	t.Parallel()

	sessions := newFakeSessionRepo()
	stored := models.NewSessionPayload()
	stored.FileTexts["doc.pdf"] = models.FileText{Text: "the answer is 42"}
	sessions.payloads["s1"] = stored

	recorder := &fakeRecorder{}
	manager := session.NewManager(
		sessions, &fakeHistoryRepo{}, &fakeExtractor{}, &fakeProvider{answer: "42"}, recorder,
		3000, 100, zap.NewNop(),
	)
	handler := NewSessionHandler(manager, 100)
	r := mux.NewRouter()
	handler.RegisterRoutes(r.PathPrefix("/api/v1/sessions").Subrouter())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/api/v1/sessions/s1/ask",
			strings.NewReader(`{"question":"what is the answer?"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("ask %d status = %d (body %s)", i, w.Code, w.Body.String())
		}
	}

	if len(recorder.types) != 3 {
		t.Fatalf("recorded %d entries for 3 asks, want 3: %v", len(recorder.types), recorder.types)
	}
	for _, at := range recorder.types {
		if at != models.ActivityQuestionAsked {
			t.Errorf("recorded %v, want question_asked only", recorder.types)
			break
		}
	}

	// The explicit restore route is the one that logs session_restored
	req := httptest.NewRequest("GET", "/api/v1/sessions/s1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get session status = %d", w.Code)
	}
	if got := recorder.types[len(recorder.types)-1]; got != models.ActivitySessionRestored {
		t.Errorf("last entry = %v, want session_restored", got)
	}
}

func TestClearEndpoint(t *testing.T) {
	t.Parallel()

	sessions := newFakeSessionRepo()
	stored := models.NewSessionPayload()
	stored.FileTexts["doc.pdf"] = models.FileText{Text: "text"}
	sessions.payloads["s1"] = stored

	r := newSessionRouter(t, sessions, &fakeProvider{}, &fakeExtractor{})

	req := httptest.NewRequest("DELETE", "/api/v1/sessions/s1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	if saved := sessions.payloads["s1"]; saved == nil || !saved.IsEmpty() {
		t.Error("clear should persist an empty payload")
	}
}

// ---- activity handler ----

func newActivityRouter(repo *fakeActivityRepo, user *models.User) (*mux.Router, func(path string) *http.Request) {
	handler := NewActivityHandler(repo, 20)
	r := mux.NewRouter()
	handler.RegisterRoutes(r.PathPrefix("/api/v1/activity").Subrouter())

	newReq := func(path string) *http.Request {
		req := httptest.NewRequest("GET", path, nil)
		if user != nil {
			req = req.WithContext(request.WithUser(req.Context(), user))
		}
		return req
	}
	return r, newReq
}

func TestActivityRecent(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New(), Email: "a@b.co"}
	repo := &fakeActivityRepo{}
	for i := 0; i < 5; i++ {
		repo.entries = append(repo.entries, &models.ActivityEntry{
			ID:           uuid.New(),
			Timestamp:    time.Now().Add(time.Duration(i) * time.Second),
			ActivityType: models.ActivityManualSave,
			UserID:       user.ID.String(),
		})
	}

	r, newReq := newActivityRouter(repo, user)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, newReq("/api/v1/activity?limit=2"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}

	env := decodeEnvelope(t, w.Result())
	var data RecentResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	if len(data.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(data.Entries))
	}
	// Newest first
	if !data.Entries[0].Timestamp.After(data.Entries[1].Timestamp) {
		t.Error("entries are not newest-first")
	}
}

func TestActivityScopedToCaller(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New(), Email: "a@b.co"}
	other := uuid.New().String()
	repo := &fakeActivityRepo{}
	repo.entries = append(repo.entries,
		&models.ActivityEntry{ID: uuid.New(), Timestamp: time.Now(), ActivityType: models.ActivityManualSave, UserID: user.ID.String()},
		&models.ActivityEntry{ID: uuid.New(), Timestamp: time.Now(), ActivityType: models.ActivityManualSave, UserID: other},
	)

	r, newReq := newActivityRouter(repo, user)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, newReq("/api/v1/activity"))

	env := decodeEnvelope(t, w.Result())
	var data RecentResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	if len(data.Entries) != 1 {
		t.Fatalf("entries = %d, want only the caller's", len(data.Entries))
	}
	if data.Entries[0].UserID != user.ID.String() {
		t.Errorf("entry user = %s, want %s", data.Entries[0].UserID, user.ID)
	}

	// Without an authenticated user there is nothing to scope to
	noUserRouter, newAnonReq := newActivityRouter(repo, nil)
	w = httptest.NewRecorder()
	noUserRouter.ServeHTTP(w, newAnonReq("/api/v1/activity"))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", w.Code)
	}
}

func TestActivityLimitCapped(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New(), Email: "a@b.co"}
	repo := &fakeActivityRepo{}
	for i := 0; i < 30; i++ {
		repo.entries = append(repo.entries, &models.ActivityEntry{
			ID:           uuid.New(),
			Timestamp:    time.Now(),
			ActivityType: models.ActivityManualSave,
			UserID:       user.ID.String(),
		})
	}

	r, newReq := newActivityRouter(repo, user)

	// Requests beyond the display limit are capped, not honored
	w := httptest.NewRecorder()
	r.ServeHTTP(w, newReq("/api/v1/activity?limit=500"))

	env := decodeEnvelope(t, w.Result())
	var data RecentResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	if len(data.Entries) != 20 {
		t.Errorf("entries = %d, want capped at 20", len(data.Entries))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, newReq("/api/v1/activity?limit=abc"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", w.Code)
	}
}

// ---- history handler ----

type fakeHistoryQuery struct {
	documents []*models.DocumentRecord
	summaries int
	convos    int
}

func (f *fakeHistoryQuery) RecentDocuments(ctx context.Context, limit int) ([]*models.DocumentRecord, error) {
	if limit > len(f.documents) {
		limit = len(f.documents)
	}
	return f.documents[:limit], nil
}

func (f *fakeHistoryQuery) GetDocumentByFilename(ctx context.Context, filename string) (*models.DocumentRecord, error) {
	for _, doc := range f.documents {
		if doc.Filename == filename {
			return doc, nil
		}
	}
	return nil, nil
}

func (f *fakeHistoryQuery) Counts(ctx context.Context) (int, int, int, error) {
	return len(f.documents), f.summaries, f.convos, nil
}

func TestHistoryOverview(t *testing.T) {
	t.Parallel()

	repo := &fakeHistoryQuery{
		documents: []*models.DocumentRecord{
			{ID: uuid.New(), Filename: "a.pdf", NumPages: 2, UploadDate: time.Now()},
			{ID: uuid.New(), Filename: "b.pdf", NumPages: 5, UploadDate: time.Now()},
		},
		summaries: 3,
		convos:    7,
	}

	handler := NewHistoryHandler(repo, 20)
	r := mux.NewRouter()
	handler.RegisterRoutes(r.PathPrefix("/api/v1/history").Subrouter())

	req := httptest.NewRequest("GET", "/api/v1/history", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}

	env := decodeEnvelope(t, w.Result())
	var data OverviewResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	if len(data.Documents) != 2 {
		t.Errorf("documents = %d, want 2", len(data.Documents))
	}
	if data.Counts.Documents != 2 || data.Counts.Summaries != 3 || data.Counts.Conversations != 7 {
		t.Errorf("counts = %+v", data.Counts)
	}
}

func TestHistoryGetDocument(t *testing.T) {
	t.Parallel()

	repo := &fakeHistoryQuery{
		documents: []*models.DocumentRecord{
			{ID: uuid.New(), Filename: "a.pdf", Content: "hello", NumPages: 2},
		},
	}

	handler := NewHistoryHandler(repo, 20)
	r := mux.NewRouter()
	handler.RegisterRoutes(r.PathPrefix("/api/v1/history").Subrouter())

	req := httptest.NewRequest("GET", "/api/v1/history/documents/a.pdf", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}

	env := decodeEnvelope(t, w.Result())
	var doc models.DocumentRecord
	if err := json.Unmarshal(env.Data, &doc); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	if doc.Filename != "a.pdf" || doc.Content != "hello" {
		t.Errorf("doc = %+v", doc)
	}

	req = httptest.NewRequest("GET", "/api/v1/history/documents/missing.pdf", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing document status = %d, want 404", w.Code)
	}
}

// ---- request context plumbing ----

func TestUploadAttributesAuthenticatedUser(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{result: &extract.Result{Text: "x", NumPages: 1, NumWords: 1}}
	sessions := newFakeSessionRepo()

	recorder := &captureRecorder{}
	manager := session.NewManager(
		sessions, &fakeHistoryRepo{}, extractor, &fakeProvider{}, recorder,
		3000, 100, zap.NewNop(),
	)
	handler := NewSessionHandler(manager, 100)
	r := mux.NewRouter()
	handler.RegisterRoutes(r.PathPrefix("/api/v1/sessions").Subrouter())

	user := &models.User{ID: uuid.New(), Email: "a@b.co"}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "doc.pdf")
	part.Write([]byte("%PDF"))
	mw.Close()

	req := httptest.NewRequest("POST", "/api/v1/sessions/s1/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = req.WithContext(request.WithUser(req.Context(), user))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	if recorder.lastUserID != user.ID.String() {
		t.Errorf("recorded user = %q, want %q", recorder.lastUserID, user.ID)
	}
}

type captureRecorder struct {
	lastUserID string
}

func (c *captureRecorder) Record(activityType models.ActivityType, userID string, details map[string]any) {
	c.lastUserID = userID
}
