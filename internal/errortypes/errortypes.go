// Package errortypes defines the error taxonomy shared by the RAG core.
//
// Every component surfaces one of these kinds to its caller; the core never
// retries and never swallows an error. The transport layer (outside this
// module) maps kinds onto client/server signaling.
package errortypes

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that dispatch on failure class
// rather than message text.
type Kind string

const (
	// KindConfiguration marks missing or invalid server-side configuration,
	// e.g. absent vector-store credentials. Detected before any network call.
	KindConfiguration Kind = "configuration"
	// KindConnection marks an unreachable remote collection.
	KindConnection Kind = "connection"
	// KindEmbeddingService marks a failure of the remote embedding service.
	KindEmbeddingService Kind = "embedding_service"
	// KindGenerationService marks a failure of the remote generation service.
	KindGenerationService Kind = "generation_service"
	// KindInvalidArgument marks malformed caller input, rejected before any
	// remote call (non-positive top_k, dimension mismatch, ...).
	KindInvalidArgument Kind = "invalid_argument"
)

// Error carries a Kind alongside the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Kind)
}

// Unwrap supports errors.Is and errors.As on the cause chain.
func (e *Error) Unwrap() error { return e.Err }

// New builds a typed error with a formatted message and no cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an existing error. If err already
// carries a kind, the outer kind wins for classification but the chain is
// preserved.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Configuration reports missing or invalid configuration.
func Configuration(format string, args ...any) *Error {
	return New(KindConfiguration, format, args...)
}

// Connection wraps a failure to reach the remote collection store.
func Connection(err error, message string) *Error {
	return Wrap(KindConnection, err, message)
}

// EmbeddingService wraps a remote embedding failure.
func EmbeddingService(err error, message string) *Error {
	return Wrap(KindEmbeddingService, err, message)
}

// GenerationService wraps a remote generation failure.
func GenerationService(err error, message string) *Error {
	return Wrap(KindGenerationService, err, message)
}

// InvalidArgument reports malformed caller input.
func InvalidArgument(format string, args ...any) *Error {
	return New(KindInvalidArgument, format, args...)
}

// KindOf returns the kind of the outermost typed error in err's chain,
// or "" when the chain carries none.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return ""
}

// IsKind reports whether err's chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
