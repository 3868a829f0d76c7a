package domain

import (
	"errors"
	"fmt"
)

// PipelineError represents a classified pipeline failure
type PipelineError struct {
	Kind    string
	Stage   string
	Message string
	Err     error
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Kind)
	if e.Stage != "" {
		prefix = fmt.Sprintf("[%s] %s", e.Kind, e.Stage)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a new PipelineError
func NewPipelineError(kind, stage, message string) *PipelineError {
	return &PipelineError{
		Kind:    kind,
		Stage:   stage,
		Message: message,
	}
}

// NewPipelineErrorWithCause creates a new PipelineError with an underlying cause
func NewPipelineErrorWithCause(kind, stage, message string, err error) *PipelineError {
	return &PipelineError{
		Kind:    kind,
		Stage:   stage,
		Message: message,
		Err:     err,
	}
}

// Error kinds
const (
	ErrKindConfig   = "CONFIG_ERROR"
	ErrKindIO       = "IO_ERROR"
	ErrKindExternal = "EXTERNAL_ERROR"
	ErrKindData     = "DATA_ERROR"
)

// Stage names, also used as span names and log prefixes.
const (
	StageLoad     = "load"
	StageTokenize = "tokenize"
	StageSplit    = "split"
	StageEmbed    = "embed"
	StagePersist  = "persist"
)

// ConfigError wraps err as a configuration error.
func ConfigError(message string, err error) error {
	return NewPipelineErrorWithCause(ErrKindConfig, "", message, err)
}

// IOError wraps err as an I/O error raised in stage.
func IOError(stage, message string, err error) error {
	return NewPipelineErrorWithCause(ErrKindIO, stage, message, err)
}

// ExternalError wraps err as an external service error raised in stage.
func ExternalError(stage, message string, err error) error {
	return NewPipelineErrorWithCause(ErrKindExternal, stage, message, err)
}

// KindOf reports the kind of the first PipelineError in err's chain, or "".
func KindOf(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err carries a PipelineError of the given kind.
func IsKind(err error, kind string) bool {
	return KindOf(err) == kind
}
