// Package session orchestrates the document-chat workflow: upload,
// summarize, ask, save, clear. Every operation mutates the in-memory
// payload first, persists the whole payload, then records an activity
// entry. Collaborator failures are converted to user-visible messages
// rather than transport errors.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/apocalipssi/docanalyzer/internal/activity"
	"github.com/apocalipssi/docanalyzer/internal/database"
	"github.com/apocalipssi/docanalyzer/internal/models"
	"github.com/apocalipssi/docanalyzer/internal/services/ai"
	"github.com/apocalipssi/docanalyzer/internal/services/extract"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PerFileContextLength bounds each file's contribution to the QA context
	PerFileContextLength = 1000
	// MaxContextLength bounds the combined QA context
	MaxContextLength = 2000
	// DefaultModelWarmupDelay is how long to wait before retrying a
	// still-loading model
	DefaultModelWarmupDelay = 10 * time.Second

	// ModelWakingUpMessage is returned while the hosted model warms up
	ModelWakingUpMessage = "The model is waking up, please try again in a moment."
)

// ErrNoFiles is returned by Summarize and Ask when nothing was uploaded
var ErrNoFiles = errors.New("no files uploaded in this session")

// ErrAIDisabled is returned when no inference provider is configured
var ErrAIDisabled = errors.New("AI features are not configured")

// Manager coordinates the session collaborators.
type Manager struct {
	sessions    database.SessionRepositoryInterface
	history     database.HistoryRepositoryInterface
	extractor   extract.Extractor
	provider    ai.Provider
	recorder    activity.Recorder
	logger      *zap.Logger
	maxText     int
	maxQuestion int
	warmupDelay time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithWarmupDelay overrides the model warmup retry delay.
func WithWarmupDelay(d time.Duration) Option {
	return func(m *Manager) { m.warmupDelay = d }
}

// NewManager creates a session orchestrator.
func NewManager(
	sessions database.SessionRepositoryInterface,
	history database.HistoryRepositoryInterface,
	extractor extract.Extractor,
	provider ai.Provider,
	recorder activity.Recorder,
	maxText, maxQuestion int,
	logger *zap.Logger,
	opts ...Option,
) *Manager {
	m := &Manager{
		sessions:    sessions,
		history:     history,
		extractor:   extractor,
		provider:    provider,
		recorder:    recorder,
		logger:      logger,
		maxText:     maxText,
		maxQuestion: maxQuestion,
		warmupDelay: DefaultModelWarmupDelay,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Hydrate loads the stored payload into the context without recording
// activity; a never-saved id initializes an empty payload. It reports
// whether a stored payload existed. Either way the context becomes
// loaded.
func (m *Manager) Hydrate(ctx context.Context, sc *Context) (bool, error) {
	payload, err := m.sessions.Load(ctx, sc.SessionID)
	if err != nil {
		return false, fmt.Errorf("failed to restore session: %w", err)
	}

	if payload == nil {
		sc.Payload = models.NewSessionPayload()
		sc.Loaded = true
		return false, nil
	}

	sc.Payload = payload
	sc.Loaded = true
	return true, nil
}

// Restore hydrates the context and, when a stored session exists, logs
// session_restored. Only the explicit restore operation goes through
// here; other operations hydrate silently so that each of them yields
// exactly one activity entry.
func (m *Manager) Restore(ctx context.Context, sc *Context) error {
	found, err := m.Hydrate(ctx, sc)
	if err != nil || !found {
		return err
	}

	m.recorder.Record(models.ActivitySessionRestored, sc.attribution(), map[string]any{
		"session_id": sc.SessionID,
		"file_count": len(sc.Payload.FileTexts),
	})

	return nil
}

// UploadFile extracts a document's text into the session and persists
// the updated payload.
func (m *Manager) UploadFile(ctx context.Context, sc *Context, filename string, r io.ReaderAt, size int64) (*extract.Result, error) {
	result, err := m.extractor.Extract(r, size)
	if err != nil {
		m.recordError(sc, "upload", err)
		return nil, fmt.Errorf("failed to extract text from %s: %w", filename, err)
	}

	sc.Payload.FileTexts[filename] = models.FileText{
		Text:     result.Text,
		NumPages: result.NumPages,
		NumWords: result.NumWords,
	}

	if err := m.save(ctx, sc); err != nil {
		return nil, err
	}

	// Cross-session history; best-effort like the activity log
	if err := m.history.SaveDocument(ctx, &models.DocumentRecord{
		ID:         uuid.New(),
		Filename:   filename,
		Content:    result.Text,
		NumPages:   result.NumPages,
		NumWords:   result.NumWords,
		FileSize:   size,
		UploadDate: time.Now(),
	}); err != nil {
		m.logger.Warn("failed_to_save_document_history",
			zap.String("filename", filename),
			zap.Error(err),
		)
	}

	m.recorder.Record(models.ActivityFileUploaded, sc.attribution(), map[string]any{
		"session_id": sc.SessionID,
		"filename":   filename,
		"pages":      result.NumPages,
		"file_count": len(sc.Payload.FileTexts),
	})

	return result, nil
}

// Summarize runs the summarization collaborator over every uploaded file
// and stores the combined result. A transient model-loading condition is
// retried once after the warmup delay; if still loading, the waking-up
// message is returned without an error_occurred entry.
func (m *Manager) Summarize(ctx context.Context, sc *Context) (string, error) {
	if len(sc.Payload.FileTexts) == 0 {
		return "", ErrNoFiles
	}

	var blocks []string
	for _, name := range sc.filenames() {
		ft := sc.Payload.FileTexts[name]
		text := truncateRunes(ft.Text, m.maxText)

		summary, err := m.summarizeWithRetry(ctx, name, text)
		if err != nil {
			if ai.IsModelLoading(err) {
				return ModelWakingUpMessage, nil
			}
			m.recordError(sc, "summarize", err)
			return fmt.Sprintf("Could not generate summaries: %v", err), nil
		}

		blocks = append(blocks, fmt.Sprintf("**%s** : %s", name, summary))
	}

	combined := strings.Join(blocks, "\n\n")
	sc.Payload.CurrentSummaries = combined
	sc.Payload.Summaries = append(sc.Payload.Summaries, combined)

	if err := m.save(ctx, sc); err != nil {
		return "", err
	}

	if err := m.history.SaveSummary(ctx, &models.SummaryRecord{
		ID:            uuid.New(),
		Timestamp:     time.Now(),
		Summaries:     blocks,
		FilesAnalyzed: sc.filenames(),
		TotalFiles:    len(sc.Payload.FileTexts),
	}); err != nil {
		m.logger.Warn("failed_to_save_summary_history", zap.Error(err))
	}

	m.recorder.Record(models.ActivitySummariesGenerated, sc.attribution(), map[string]any{
		"session_id": sc.SessionID,
		"file_count": len(sc.Payload.FileTexts),
	})

	return combined, nil
}

// Ask answers a question against the session's documents and appends the
// exchange to the chat transcript.
func (m *Manager) Ask(ctx context.Context, sc *Context, question string) (string, error) {
	if len(sc.Payload.FileTexts) == 0 {
		return "", ErrNoFiles
	}

	docContext := m.buildContext(sc)

	answer, err := m.answerWithRetry(ctx, question, docContext)
	if err != nil {
		if ai.IsModelLoading(err) {
			return ModelWakingUpMessage, nil
		}
		m.recordError(sc, "ask", err)
		return fmt.Sprintf("Could not answer the question: %v", err), nil
	}

	sc.Payload.Messages = append(sc.Payload.Messages,
		models.ChatMessage{Role: "user", Content: question},
		models.ChatMessage{Role: "assistant", Content: answer},
	)

	if err := m.save(ctx, sc); err != nil {
		return "", err
	}

	if err := m.history.SaveConversation(ctx, &models.ConversationRecord{
		ID:              uuid.New(),
		Timestamp:       time.Now(),
		Question:        question,
		Answer:          answer,
		FilesReferenced: sc.filenames(),
		SessionID:       sc.SessionID,
	}); err != nil {
		m.logger.Warn("failed_to_save_conversation_history", zap.Error(err))
	}

	m.recorder.Record(models.ActivityQuestionAsked, sc.attribution(), map[string]any{
		"session_id": sc.SessionID,
		"question":   truncateRunes(question, m.maxQuestion),
	})

	return answer, nil
}

// SaveNow persists the payload on explicit user request.
func (m *Manager) SaveNow(ctx context.Context, sc *Context) error {
	if err := m.save(ctx, sc); err != nil {
		return err
	}

	m.recorder.Record(models.ActivityManualSave, sc.attribution(), map[string]any{
		"session_id": sc.SessionID,
		"file_count": len(sc.Payload.FileTexts),
	})

	return nil
}

// Clear resets the session to an empty payload and persists it.
func (m *Manager) Clear(ctx context.Context, sc *Context) error {
	sc.Payload = models.NewSessionPayload()

	if err := m.save(ctx, sc); err != nil {
		return err
	}

	m.recorder.Record(models.ActivitySessionCleared, sc.attribution(), map[string]any{
		"session_id": sc.SessionID,
	})

	return nil
}

// save persists the whole payload. Last write wins; there is no
// concurrency token.
func (m *Manager) save(ctx context.Context, sc *Context) error {
	if err := m.sessions.Save(ctx, sc.SessionID, sc.Payload); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// buildContext assembles the QA context from every file's text, each
// bounded per file and overall.
func (m *Manager) buildContext(sc *Context) string {
	var builder strings.Builder
	for _, name := range sc.filenames() {
		ft := sc.Payload.FileTexts[name]
		builder.WriteString(fmt.Sprintf("Document %s: %s\n", name, truncateRunes(ft.Text, PerFileContextLength)))
	}
	return truncateRunes(builder.String(), MaxContextLength)
}

func (m *Manager) summarizeWithRetry(ctx context.Context, name, text string) (string, error) {
	if m.provider == nil {
		return "", ErrAIDisabled
	}
	summary, err := m.provider.Summarize(ctx, name, text)
	if ai.IsModelLoading(err) {
		m.logger.Info("model_loading_waiting_for_warmup",
			zap.Duration("delay", m.warmupDelay),
		)
		if waitErr := sleepCtx(ctx, m.warmupDelay); waitErr != nil {
			return "", err
		}
		return m.provider.Summarize(ctx, name, text)
	}
	return summary, err
}

func (m *Manager) answerWithRetry(ctx context.Context, question, docContext string) (string, error) {
	if m.provider == nil {
		return "", ErrAIDisabled
	}
	answer, err := m.provider.Answer(ctx, question, docContext)
	if ai.IsModelLoading(err) {
		m.logger.Info("model_loading_waiting_for_warmup",
			zap.Duration("delay", m.warmupDelay),
		)
		if waitErr := sleepCtx(ctx, m.warmupDelay); waitErr != nil {
			return "", err
		}
		return m.provider.Answer(ctx, question, docContext)
	}
	return answer, err
}

// recordError logs an error_occurred entry for a collaborator failure.
func (m *Manager) recordError(sc *Context, operation string, err error) {
	m.logger.Error("session_operation_failed",
		zap.String("operation", operation),
		zap.String("session_id", sc.SessionID),
		zap.Error(err),
	)
	m.recorder.Record(models.ActivityErrorOccurred, sc.attribution(), map[string]any{
		"session_id": sc.SessionID,
		"operation":  operation,
		"error":      err.Error(),
	})
}

// truncateRunes bounds a string by rune count, not bytes.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
