package activity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/apocalipssi/docanalyzer/internal/models"
	"go.uber.org/zap"
)

// collectSink gathers written entries
type collectSink struct {
	mu      sync.Mutex
	entries []*models.ActivityEntry
	block   chan struct{}
}

func (s *collectSink) Write(ctx context.Context, entry *models.ActivityEntry) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *collectSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func TestAsyncRecorderDrains(t *testing.T) {
	t.Parallel()

	sink := &collectSink{}
	recorder := NewAsyncRecorder(sink, 10, zap.NewNop())

	recorder.Record(models.ActivityManualSave, "u1", map[string]any{"session_id": "s1"})
	recorder.Record(models.ActivityQuestionAsked, "", nil)
	recorder.Close()

	if got := sink.count(); got != 2 {
		t.Fatalf("drained entries = %d, want 2", got)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	first := sink.entries[0]
	if first.ActivityType != models.ActivityManualSave {
		t.Errorf("first entry type = %s", first.ActivityType)
	}
	if first.UserID != "u1" {
		t.Errorf("first entry user = %s", first.UserID)
	}
	if first.Timestamp.IsZero() {
		t.Error("timestamp should be stamped at record time")
	}
	if sink.entries[1].UserID != models.AnonymousUserID {
		t.Errorf("empty user id should become %q, got %q", models.AnonymousUserID, sink.entries[1].UserID)
	}
}

func TestAsyncRecorderDropsWhenFull(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	sink := &collectSink{block: block}
	recorder := NewAsyncRecorder(sink, 1, zap.NewNop())

	// The drain goroutine is stuck on the first entry; the queue holds
	// one more; everything beyond that is dropped, never blocking Record.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			recorder.Record(models.ActivityManualSave, "u1", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	close(block)
	recorder.Close()

	if got := sink.count(); got > 2 {
		t.Errorf("drained entries = %d, want at most 2", got)
	}
}
