package models

import (
	"errors"
	"fmt"
)

// Error codes surfaced in API responses
const (
	CodeConfiguration      = "configuration_error"
	CodeFetch              = "fetch_error"
	CodeSectionUnavailable = "section_unavailable"
	CodeCollaborator       = "collaborator_error"
	CodeAmbiguousEdit      = "ambiguous_edit"
	CodeNeedsDecision      = "needs_decision"
	CodeNotFound           = "not_found"
	CodeUnauthorized       = "unauthorized"
	CodeValidation         = "validation_error"
	CodeConflict           = "conflict"
	CodeInternal           = "internal_error"
)

// ErrReportNotFound indicates no report exists for the identity
var ErrReportNotFound = errors.New("report not found")

// ErrUserExists indicates a registration conflict
var ErrUserExists = errors.New("username already registered")

// ErrInvalidCredentials indicates a failed username/password check
var ErrInvalidCredentials = errors.New("incorrect username or password")

// ErrNoOutcome indicates save was called with no reprocess result pending
var ErrNoOutcome = errors.New("no reprocessed content to save")

// ConfigurationError indicates missing or inconsistent provider settings
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// FetchError indicates a source link could not be retrieved or parsed
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// CollaboratorError wraps a failed LLM provider call
type CollaboratorError struct {
	Provider string
	Err      error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s call failed: %v", e.Provider, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// AmbiguousEditError indicates the edit command could not be mapped to a
// section or action. The message is safe to return to the caller.
type AmbiguousEditError struct {
	Message string
}

func (e *AmbiguousEditError) Error() string { return e.Message }

// SectionNotFoundError indicates the edit named a section the report lacks
type SectionNotFoundError struct {
	Section string
}

func (e *SectionNotFoundError) Error() string {
	return fmt.Sprintf("report has no section named %q", e.Section)
}

// NeedsDecisionError suspends a reprocess run until the caller picks
// between re-fetching sources and rewriting existing text.
type NeedsDecisionError struct {
	Pending PendingDecision
}

func (e *NeedsDecisionError) Error() string {
	return fmt.Sprintf("cannot determine whether section %q needs new sources; a decision is required", e.Pending.Section)
}
