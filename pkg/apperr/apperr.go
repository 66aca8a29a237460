// Package apperr implements the error taxonomy from spec §7 as
// sentinel-wrapped errors built on github.com/rotisserie/eris, so every
// layer classifies failures by tag instead of string-matching messages.
package apperr

import (
	"errors"

	"github.com/rotisserie/eris"
)

// Tag is one of the seven error classes from spec §7.
type Tag string

const (
	// TransientExternal covers network errors, 5xx, and rate limiting.
	// Retried by the Provider Adapter up to max_retries.
	TransientExternal Tag = "transient_external"
	// ClientBadRequest covers input validation and invalid state
	// transitions. Returned immediately, never retried.
	ClientBadRequest Tag = "client_bad_request"
	// CategoryFailed means one category's pipeline could not complete;
	// the request continues.
	CategoryFailed Tag = "category_failed"
	// Phase2UnmetDependency means a Phase-2 category's required Phase-1
	// category did not complete; the Phase-2 category is skipped.
	Phase2UnmetDependency Tag = "phase2_unmet_dependency"
	// FatalInternal is an invariant violation or corrupted state. Aborts
	// the request; never retried by the engine.
	FatalInternal Tag = "fatal_internal"
	// AuditWriteFailure is treated as FatalInternal for any mutation that
	// requires an audit record.
	AuditWriteFailure Tag = "audit_write_failure"
	// InvalidTransition is a status-tracker transition outside the table
	// in spec §4.10.
	InvalidTransition Tag = "invalid_transition"
)

type tagged struct {
	tag Tag
	err error
}

func (t *tagged) Error() string { return t.err.Error() }
func (t *tagged) Unwrap() error { return t.err }

// Wrap attaches tag to err, preserving err's stack trace via eris.
func Wrap(tag Tag, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &tagged{tag: tag, err: eris.Wrap(err, msg)}
}

// New creates a new tagged error with a stack trace from the call site.
func New(tag Tag, msg string) error {
	return &tagged{tag: tag, err: eris.New(msg)}
}

// Newf creates a new tagged error with a formatted message.
func Newf(tag Tag, format string, args ...any) error {
	return &tagged{tag: tag, err: eris.Errorf(format, args...)}
}

// TagOf returns the tag attached to err, or "" if err was never tagged.
func TagOf(err error) Tag {
	var t *tagged
	if errors.As(err, &t) {
		return t.tag
	}
	return ""
}

// Is reports whether err (or anything it wraps) carries tag.
func Is(err error, tag Tag) bool {
	return TagOf(err) == tag
}

// Retryable reports whether err's tag is one the Provider Adapter should
// retry (spec §7: transient_external only).
func Retryable(err error) bool {
	return Is(err, TransientExternal)
}
