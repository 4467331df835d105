package apperr

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode categorizes errors
type ErrorCode string

const (
	ErrCodeInput      ErrorCode = "INPUT_ERROR"
	ErrCodeConfig     ErrorCode = "CONFIG_ERROR"
	ErrCodeProcessing ErrorCode = "PROCESSING_ERROR"
	ErrCodeConflict   ErrorCode = "CONFLICT_ERROR"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeTimeout    ErrorCode = "TIMEOUT_ERROR"
)

var (
	// ErrEmptyAudio is returned for sources without any samples
	ErrEmptyAudio = &AppError{Code: ErrCodeInput, Message: "audio source is empty"}
	// ErrNotFound is returned when a source or result does not exist
	ErrNotFound = &AppError{Code: ErrCodeNotFound, Message: "not found"}
	// ErrJobActive is returned when a source already has a processing job
	ErrJobActive = &AppError{Code: ErrCodeConflict, Message: "analysis already in progress"}
	// ErrAlreadyCompleted is returned when a source was already analyzed
	ErrAlreadyCompleted = &AppError{Code: ErrCodeConflict, Message: "analysis already completed"}
)

// AppError is the base structured error
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Fields  map[string]any
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Wrap attaches a cause to a sentinel while keeping errors.Is working
func Wrap(sentinel *AppError, cause error) error {
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// ValidationError represents an out-of-range configuration value
type ValidationError struct {
	AppError
	Field string
	Value any
}

// NewValidationError creates a configuration error for one field
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{
		AppError: AppError{
			Code:    ErrCodeConfig,
			Message: message,
		},
		Field: field,
		Value: value,
	}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] field=%s value=%v: %s", e.Code, e.Field, e.Value, e.Message)
}

// ProcessingError represents a failure inside one pipeline stage
type ProcessingError struct {
	AppError
	Stage   string
	Episode int // -1 when the failure is not tied to an episode
}

// NewProcessingError creates a stage failure
func NewProcessingError(stage string, episode int, cause error) *ProcessingError {
	return &ProcessingError{
		AppError: AppError{
			Code:    ErrCodeProcessing,
			Message: stage + " failed",
			Cause:   cause,
		},
		Stage:   stage,
		Episode: episode,
	}
}

func (e *ProcessingError) Error() string {
	if e.Episode >= 0 {
		return fmt.Sprintf("%s (stage=%s, episode=%d)", e.AppError.Error(), e.Stage, e.Episode)
	}
	return fmt.Sprintf("%s (stage=%s)", e.AppError.Error(), e.Stage)
}

// CodeOf returns the code of the first structured error in the chain
func CodeOf(err error) ErrorCode {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCodeTimeout
	}
	if v, ok := As[*ValidationError](err); ok {
		return v.Code
	}
	if p, ok := As[*ProcessingError](err); ok {
		return p.Code
	}
	if e, ok := As[*AppError](err); ok {
		return e.Code
	}
	return ""
}

// As enables errors.As checks
func As[T error](err error) (T, bool) {
	var target T
	ok := errors.As(err, &target)
	return target, ok
}
