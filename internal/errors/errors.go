// Package errors defines the coded errors returned by the analysis engine and
// its outer surfaces. Rude edits are never errors; they are diagnostics.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// InvariantViolation indicates the declaration model broke an engine
	// invariant, e.g. a partial group without members
	InvariantViolation ErrorCode = "INVARIANT_VIOLATION"
	// Canceled indicates the analysis was cancelled; partial results are discarded
	Canceled ErrorCode = "CANCELED"
	// ParseFailed indicates a document could not be turned into declarations
	ParseFailed ErrorCode = "PARSE_FAILED"
	// InvalidInput indicates a malformed request or configuration value
	InvalidInput ErrorCode = "INVALID_INPUT"
	// StoreUnavailable indicates the session store could not be opened
	StoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// SessionNotFound indicates the session id is unknown
	SessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	// PatchRejected indicates a unified diff does not apply to the baseline
	PatchRejected ErrorCode = "PATCH_REJECTED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// HotError represents an engine error with code, message, and suggestions
type HotError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a HotError with the default suggestions for its code
func New(code ErrorCode, message string, cause error) *HotError {
	return &HotError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf creates a HotError without cause from a format string
func Newf(code ErrorCode, format string, args ...interface{}) *HotError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *HotError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *HotError) Unwrap() error {
	return e.cause
}

// Is matches any HotError carrying the same code, so callers can write
// errors.Is(err, errors.New(errors.Canceled, "", nil)).
func (e *HotError) Is(target error) bool {
	t, ok := target.(*HotError)
	return ok && t.Code == e.Code
}

// WithDetails adds details to the error
func (e *HotError) WithDetails(details interface{}) *HotError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first HotError in the chain, or
// InternalError for foreign errors. A nil error has no code.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var he *HotError
	if stderrors.As(err, &he) {
		return he.Code
	}
	return InternalError
}

// HasCode reports whether err carries the code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	StoreUnavailable: {
		{
			Type:        RunCommand,
			Command:     "hotdelta session start .",
			Safe:        true,
			Description: "Create the session store and record a baseline",
		},
	},
	SessionNotFound: {
		{
			Type:        RunCommand,
			Command:     "hotdelta session list",
			Safe:        true,
			Description: "List known sessions",
		},
	},
	PatchRejected: {
		{
			Type:        RunCommand,
			Command:     "hotdelta session show ${session_id}",
			Safe:        true,
			Description: "Inspect the baseline the patch was applied to",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
