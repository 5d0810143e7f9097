package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
)

// ErrModelLoading indicates the hosted model is still warming up
// (HTTP 503 from the inference service). This is a transient, expected
// condition, not an error to report through the activity log.
var ErrModelLoading = errors.New("model is still loading")

// APIError represents a non-success response from the inference service
type APIError struct {
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("inference API error (status %d): %s", e.StatusCode, e.Message)
}

// IsModelLoading checks whether an error is the transient loading state
func IsModelLoading(err error) bool {
	return errors.Is(err, ErrModelLoading)
}

// wrapAPIError maps SDK errors to the package taxonomy: 503 becomes
// ErrModelLoading, other non-success statuses become *APIError.
func wrapAPIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusServiceUnavailable {
			return ErrModelLoading
		}
		return &APIError{
			Message:    apiErr.Message,
			StatusCode: apiErr.StatusCode,
		}
	}

	// Some transports surface the status only in the message text
	if strings.Contains(err.Error(), "503") {
		return ErrModelLoading
	}

	return err
}
