package ai

import (
	"context"
)

// Provider is the inference collaborator: summarization and question
// answering over extracted document text. Implementations are remote
// services; the orchestrator treats them as opaque.
type Provider interface {
	// Summarize returns a summary of one document's text. The caller is
	// responsible for truncating the text to its submission limit.
	Summarize(ctx context.Context, filename, text string) (string, error)

	// Answer answers a question against the combined document context.
	Answer(ctx context.Context, question, docContext string) (string, error)
}
