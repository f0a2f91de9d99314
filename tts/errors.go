package tts

import (
	"errors"
	"fmt"
	"time"
)

// Common errors for the playback engine.
var (
	// Environment errors
	ErrUnsupportedEnvironment = errors.New("speech synthesis is not available")
	ErrEngineClosed           = errors.New("engine has been closed")

	// Content errors
	ErrNoSpeakableText = errors.New("no speakable text after preprocessing")
	ErrNothingLoaded   = errors.New("no document loaded")

	// Synthesis errors
	ErrTransientCancellation = errors.New("utterance was canceled")
	ErrSynthesisFailure      = errors.New("speech synthesis failed")
	ErrSynthesisStalled      = errors.New("speech synthesis stalled")

	// Control errors
	ErrInvalidState       = errors.New("invalid state for operation")
	ErrUnknownPersonality = errors.New("unknown voice personality")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

// IsTransientCode reports whether a synthesizer error code only signals
// that an utterance was cut short by a cancel.
func IsTransientCode(code string) bool {
	return code == CodeCanceled || code == CodeInterrupted
}

// IsRecoverableError checks if an error is recoverable.
func IsRecoverableError(err error) bool {
	if err == nil {
		return true
	}

	switch {
	case errors.Is(err, ErrUnsupportedEnvironment),
		errors.Is(err, ErrEngineClosed),
		errors.Is(err, ErrSynthesisFailure),
		errors.Is(err, ErrSynthesisStalled),
		errors.Is(err, ErrInvalidConfig):
		return false
	}

	return true
}

// SynthesisError carries the code reported by the synthesizer for a
// failed utterance.
type SynthesisError struct {
	UtteranceID string
	Code        string
}

// Error implements the error interface.
func (e *SynthesisError) Error() string {
	if e.Code == "" {
		return ErrSynthesisFailure.Error()
	}
	return fmt.Sprintf("%s: %s", ErrSynthesisFailure, e.Code)
}

// Is matches ErrSynthesisFailure, or ErrTransientCancellation for the
// cancel codes.
func (e *SynthesisError) Is(target error) bool {
	if target == ErrTransientCancellation {
		return IsTransientCode(e.Code)
	}
	return target == ErrSynthesisFailure
}

// ErrorSeverity represents the severity of an error.
type ErrorSeverity int

const (
	// SeverityInfo is for informational messages.
	SeverityInfo ErrorSeverity = iota
	// SeverityWarning is for warnings that don't prevent operation.
	SeverityWarning
	// SeverityError is for errors that prevent normal operation.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity.
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// TTSError provides detailed error information.
type TTSError struct {
	Err       error                  // The underlying error
	Component string                 // Component that generated the error
	Action    string                 // Action being performed when error occurred
	Severity  ErrorSeverity          // Severity of the error
	Timestamp int64                  // Unix timestamp when error occurred
	Context   map[string]interface{} // Additional context
}

// Error implements the error interface.
func (e *TTSError) Error() string {
	if e.Err == nil {
		return "unknown TTS error"
	}
	if e.Component == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s: %v", e.Component, e.Action, e.Err)
}

// Unwrap returns the underlying error.
func (e *TTSError) Unwrap() error {
	return e.Err
}

// IsRecoverable checks if the error is recoverable.
func (e *TTSError) IsRecoverable() bool {
	return IsRecoverableError(e.Err)
}

// NewTTSError creates a new TTS error with context.
func NewTTSError(err error, component, action string) *TTSError {
	return &TTSError{
		Err:       err,
		Component: component,
		Action:    action,
		Severity:  SeverityError,
		Timestamp: time.Now().Unix(),
		Context:   make(map[string]interface{}),
	}
}

// WithSeverity sets the error severity.
func (e *TTSError) WithSeverity(severity ErrorSeverity) *TTSError {
	e.Severity = severity
	return e
}

// WithContext adds context to the error.
func (e *TTSError) WithContext(key string, value interface{}) *TTSError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}
