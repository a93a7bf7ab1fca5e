package models

import (
	"strings"
	"time"
)

// JobStatus tracks the lifecycle of an asynchronous generation run
type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusFailed  JobStatus = "failed"
)

// SectionUnavailableText is placed in a section when every source link
// for it failed to yield usable content.
const SectionUnavailableText = "no relevant content could be retrieved for this section"

// OverallSummaryTitle is the reserved section title for the report-level summary
const OverallSummaryTitle = "overall_summary"

// RewriteRefusalPrefix marks a rewrite response where the model could not
// honor the requested edit and returned the original text instead.
const RewriteRefusalPrefix = "could not comply with the requested edit"

// ModelConfig carries per-request LLM credentials and selection.
// Credentials travel with the request; the process environment is only
// consulted at config load time.
type ModelConfig struct {
	Provider     string  `json:"provider,omitempty"` // "openai", "azure", "claude", "gemini"
	Model        string  `json:"model,omitempty"`
	OpenAIKey    string  `json:"openai_key,omitempty"`
	AzureKey     string  `json:"azure_key,omitempty"`
	AzureBase    string  `json:"azure_base,omitempty"`
	AnthropicKey string  `json:"anthropic_key,omitempty"`
	GeminiKey    string  `json:"gemini_key,omitempty"`
	Temperature  float32 `json:"temperature,omitempty"`
}

// IsZero reports whether no provider settings were supplied
func (m ModelConfig) IsZero() bool {
	return m.Provider == "" && m.Model == "" && m.OpenAIKey == "" &&
		m.AzureKey == "" && m.AnthropicKey == "" && m.GeminiKey == ""
}

// SectionSpec names a report section and its subsection hints.
// Order is significant and preserved through generation.
type SectionSpec struct {
	Title       string   `json:"title" validate:"required"`
	Subsections []string `json:"subsections,omitempty"`
}

// ReportRequest is the payload for report generation
type ReportRequest struct {
	Theme    string        `json:"theme" validate:"required"`
	Sections []SectionSpec `json:"sections" validate:"required,min=1,dive"`
	Links    []string      `json:"links" validate:"required,min=1,dive,url"`
	// Summary controls whether an overall summary section is appended.
	// Omitted means yes.
	Summary *bool       `json:"summary,omitempty"`
	Model   ModelConfig `json:"model,omitempty"`
}

// WantsSummary reports whether the overall summary section should be generated
func (r ReportRequest) WantsSummary() bool {
	return r.Summary == nil || *r.Summary
}

// Section is a generated report section
type Section struct {
	Title       string   `json:"title"`
	Subsections []string `json:"subsections,omitempty"`
	Content     string   `json:"content"`
}

// Report is the persisted result of a generation run. One report is kept
// per identity; a new generation replaces the previous one.
type Report struct {
	Identity  string    `json:"-" badgerhold:"key"`
	Theme     string    `json:"theme"`
	Sections  []Section `json:"sections"`
	Links     []string  `json:"links"`
	TotalTime float64   `json:"total_time"` // Wall-clock seconds for the full run
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SectionIndex returns the position of the section with the given title,
// or -1 when absent. Matching ignores surrounding whitespace.
func (r *Report) SectionIndex(title string) int {
	want := strings.TrimSpace(title)
	for i, s := range r.Sections {
		if strings.TrimSpace(s.Title) == want {
			return i
		}
	}
	return -1
}

// GenerationJob tracks an in-flight or completed generation run
type GenerationJob struct {
	Identity   string    `json:"-" badgerhold:"key"`
	Status     JobStatus `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// ReprocessRequest asks for a natural-language edit of an existing report
type ReprocessRequest struct {
	Command string   `json:"command" validate:"required"`
	Links   []string `json:"links,omitempty" validate:"omitempty,dive,url"`
	// Decision resolves a previously returned pending decision: true means
	// re-fetch sources for the section, false means rewrite existing text.
	Decision *bool       `json:"decision,omitempty"`
	Model    ModelConfig `json:"model,omitempty"`
}

// PendingDecision is returned when the edit intent could not be resolved
// to a fetch-or-rewrite action without user input.
type PendingDecision struct {
	Section     string `json:"section"`
	Instruction string `json:"instruction"`
}

// PendingDecisionKey is the KV key holding an identity's unresolved
// edit decision.
func PendingDecisionKey(identity string) string {
	return "pending:" + identity
}

// SaveReprocessedRequest commits an edit into the report. An empty body
// commits the staged outcome from the last reprocess run; a section with
// new content commits the caller's own text instead.
type SaveReprocessedRequest struct {
	Section    string `json:"section,omitempty"`
	NewContent string `json:"new_content,omitempty"`
}

// ReprocessOutcome is the proposed edit, held until the caller saves it
type ReprocessOutcome struct {
	Identity     string    `json:"-" badgerhold:"key"`
	Section      string    `json:"section"`
	OriginalText string    `json:"original_text"`
	ModifiedText string    `json:"modified_text"`
	CreatedAt    time.Time `json:"created_at"`
}

// RecommendRequest asks for a proposed section outline for a theme
type RecommendRequest struct {
	Theme string      `json:"theme" validate:"required"`
	Model ModelConfig `json:"model,omitempty"`
}

// RecommendResponse carries the proposed outline
type RecommendResponse struct {
	Theme    string        `json:"theme"`
	Sections []SectionSpec `json:"sections"`
}
