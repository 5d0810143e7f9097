package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/apocalipssi/docanalyzer/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("activity_type", validateActivityType); err != nil {
		panic(fmt.Sprintf("failed to register activity_type validator: %v", err))
	}
	if err := Validate.RegisterValidation("chat_role", validateChatRole); err != nil {
		panic(fmt.Sprintf("failed to register chat_role validator: %v", err))
	}
}

// validateActivityType validates that a string is a known ActivityType value
func validateActivityType(fl validator.FieldLevel) bool {
	return ValidateActivityType(fl.Field().String()) == nil
}

// validateChatRole validates that a string is a valid chat role
func validateChatRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "user" || value == "assistant"
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateActivityType validates an ActivityType string value
func ValidateActivityType(value string) error {
	switch models.ActivityType(value) {
	case models.ActivityFileUploaded, models.ActivitySummariesGenerated,
		models.ActivityQuestionAsked, models.ActivitySessionRestored,
		models.ActivityManualSave, models.ActivitySessionCleared,
		models.ActivityErrorOccurred, models.ActivityUserRegistered,
		models.ActivityUserLogin:
		return nil
	default:
		return fmt.Errorf("invalid activity_type: %s", value)
	}
}

// ValidateSessionID validates a session identifier: non-empty, bounded,
// printable characters only.
func ValidateSessionID(value string) error {
	if value == "" {
		return fmt.Errorf("session id is required")
	}
	if len(value) > 128 {
		return fmt.Errorf("session id too long (max 128 characters)")
	}
	for _, r := range value {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return fmt.Errorf("session id contains invalid characters")
		}
	}
	return nil
}
