package interfaces

import (
	"context"

	"github.com/referolabs/refero/internal/models"
)

// FetchResult is the outcome of retrieving one source link
type FetchResult struct {
	URL     string
	Content string // Extracted text, empty on failure
	Err     error  // Non-nil when the fetch or extraction failed
}

// OK reports whether the fetch produced usable text
func (r FetchResult) OK() bool {
	return r.Err == nil && r.Content != ""
}

// Fetcher retrieves and extracts text from source links
type Fetcher interface {
	// Fetch retrieves one URL and extracts its text content.
	// Never panics; all failures are reported in the result.
	Fetch(ctx context.Context, url string) FetchResult
}

// Summarizer produces focused summaries from source text
type Summarizer interface {
	// Summarize condenses text with respect to a theme, section and
	// subsection hints. Empty or irrelevant text yields an empty summary.
	Summarize(ctx context.Context, client LLMClient, theme string, section models.SectionSpec, text string) (string, error)

	// Fuse merges per-link summaries into one coherent section text
	Fuse(ctx context.Context, client LLMClient, theme string, section models.SectionSpec, summaries []string) (string, error)

	// Overall writes the report-level summary from the section texts
	Overall(ctx context.Context, client LLMClient, theme string, sections []models.Section, targetLen int) (string, error)
}

// Assembler orchestrates the full report generation pipeline
type Assembler interface {
	// Generate builds a report from the request. Section order in the
	// result matches the request.
	Generate(ctx context.Context, identity string, req *models.ReportRequest) (*models.Report, error)

	// GenerateSection rebuilds a single section from the given links
	GenerateSection(ctx context.Context, client LLMClient, theme string, section models.SectionSpec, links []string) (models.Section, error)

	// RecommendSections proposes an outline for a theme
	RecommendSections(ctx context.Context, req *models.RecommendRequest) ([]models.SectionSpec, error)
}

// Reprocessor applies natural-language edits to an existing report
type Reprocessor interface {
	// Reprocess interprets the edit command and produces a proposed
	// outcome. Returns *models.NeedsDecisionError when the caller must
	// choose between re-fetching and rewriting.
	Reprocess(ctx context.Context, identity string, req *models.ReprocessRequest) (*models.ReprocessOutcome, error)

	// SaveOutcome commits an edit into the report: the caller's own
	// section text when the request carries one, otherwise the staged
	// outcome from the last Reprocess run
	SaveOutcome(ctx context.Context, identity string, req *models.SaveReprocessedRequest) (*models.Report, error)
}
