package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for the seeding pipeline.
var (
	ErrNotFound               = errors.New("resource not found")
	ErrInvalidInput           = errors.New("invalid input")
	ErrConstraintViolation    = errors.New("constraint violation")
	ErrAssetGeneration        = errors.New("asset generation failed")
	ErrInsufficientCandidates = errors.New("insufficient relation candidates")
)

// AppError represents a structured application error.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates an error for a missing entity.
func NotFound(resource, key string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with key %s not found", resource, key),
		Err:     ErrNotFound,
	}
}

// InvalidInput creates an error for rejected attributes or arguments.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Err:     ErrInvalidInput,
	}
}

// ConstraintViolation creates an error for a uniqueness, foreign-key, not-null
// or check constraint rejected by the store. cause may be nil.
func ConstraintViolation(entity, constraint string, cause error) *AppError {
	msg := fmt.Sprintf("%s violates %s", entity, constraint)
	if cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, cause)
	}
	return &AppError{
		Code:    "CONSTRAINT_VIOLATION",
		Message: msg,
		Err:     ErrConstraintViolation,
	}
}

// AssetGenerationFailure creates an error for an image generator call that
// did not produce a file.
func AssetGenerationFailure(name string, cause error) *AppError {
	msg := fmt.Sprintf("generate %s", name)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &AppError{
		Code:    "ASSET_GENERATION_FAILED",
		Message: msg,
		Err:     ErrAssetGeneration,
	}
}

// InsufficientCandidates creates the warning-level error reported when a
// relation has fewer candidates than its configured minimum.
func InsufficientCandidates(relation string, have, min int) *AppError {
	return &AppError{
		Code:    "INSUFFICIENT_CANDIDATES",
		Message: fmt.Sprintf("%s has %d candidates, minimum is %d", relation, have, min),
		Err:     ErrInsufficientCandidates,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// IsConstraintViolation reports whether err is, or wraps, a constraint violation.
func IsConstraintViolation(err error) bool {
	return errors.Is(err, ErrConstraintViolation)
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Code returns the AppError code carried by err, or "UNKNOWN".
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}
