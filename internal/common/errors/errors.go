// internal/common/errors/errors.go

// Package errors provides standardized error handling for the dialogue
// engine and its transport bindings.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Evidence failures are isolated per unit and never fail a turn; the
	// codes exist for logging and metrics.
	ErrCodeVisionAnalysisFailed ErrorCode = "VISION_ANALYSIS_FAILED"
	ErrCodeVisionTimeout        ErrorCode = "VISION_API_TIMEOUT"
	ErrCodeSpeechFailed         ErrorCode = "SPEECH_TRANSCRIPTION_FAILED"
	ErrCodeSpeechTimeout        ErrorCode = "SPEECH_API_TIMEOUT"

	// Turn-level failures surfaced to the caller.
	ErrCodeStateNotFound    ErrorCode = "STATE_NOT_FOUND"
	ErrCodeConversationBusy ErrorCode = "CONVERSATION_BUSY"
	ErrCodeStateLoadFailed  ErrorCode = "STATE_LOAD_FAILED"
	ErrCodeStateSaveFailed  ErrorCode = "STATE_SAVE_FAILED"
	ErrCodeCardSaveFailed   ErrorCode = "CARD_SAVE_FAILED"
	ErrCodeCardNotFound     ErrorCode = "CARD_NOT_FOUND"

	// Event emission.
	ErrCodeEventPayloadInvalid ErrorCode = "EVENT_PAYLOAD_INVALID"
	ErrCodeUnknownTopic        ErrorCode = "UNKNOWN_TOPIC"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewStateNotFoundError creates a non-retryable error for a turn that
// references a conversation which was never started.
func NewStateNotFoundError(userID, projectID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStateNotFound,
		Message:   "No conversation state for this user/project pair",
		Details:   fmt.Sprintf("userId: %s, projectId: %s", userID, projectID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConversationBusyError creates a retryable error for a turn that could
// not acquire the per-conversation lock promptly.
func NewConversationBusyError(userID, projectID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConversationBusy,
		Message:   "Another turn is in flight for this conversation",
		Details:   fmt.Sprintf("userId: %s, projectId: %s", userID, projectID),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStateLoadFailedError creates a retryable store read error.
func NewStateLoadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStateLoadFailed,
		Message:   "Conversation state read failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStateSaveFailedError creates a retryable store write error.
func NewStateSaveFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStateSaveFailed,
		Message:   "Conversation state write failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCardSaveFailedError creates a retryable persistence error for a
// finalized bid card.
func NewCardSaveFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCardSaveFailed,
		Message:   "Bid card persistence failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCardNotFoundError creates a non-retryable lookup error.
func NewCardNotFoundError(projectID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCardNotFound,
		Message:   "Bid card not found",
		Details:   fmt.Sprintf("projectId: %s", projectID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEventPayloadInvalidError creates a non-retryable schema violation.
func NewEventPayloadInvalidError(topic, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEventPayloadInvalid,
		Message:   "Event payload failed schema validation",
		Details:   fmt.Sprintf("topic: %s, %s", topic, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownTopicError creates a non-retryable error for a publish on a
// topic with no registered schema.
func NewUnknownTopicError(topic string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownTopic,
		Message:   "No schema registered for topic",
		Details:   fmt.Sprintf("topic: %s", topic),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// GetRetryCount returns the recommended transport retry count per code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeConversationBusy:
		return 3
	case ErrCodeStateLoadFailed, ErrCodeStateSaveFailed, ErrCodeCardSaveFailed:
		return 2
	default:
		return 0 // Business errors: no retry
	}
}

// IsCode reports whether err is a StandardError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code == code
	}
	return false
}

// IsRetryable reports whether err is a retryable StandardError.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}
