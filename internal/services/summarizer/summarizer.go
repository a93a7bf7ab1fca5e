package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/referolabs/refero/internal/interfaces"
	"github.com/referolabs/refero/internal/models"
)

// Service composes the prompts for per-link summaries, section fusion
// and the report-level summary.
type Service struct {
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.Summarizer = (*Service)(nil)

// NewService creates a summarizer service
func NewService(logger arbor.ILogger) *Service {
	return &Service{logger: logger}
}

// Summarize condenses one source text for a section. Returns an empty
// summary when the model reports the source is irrelevant.
func (s *Service) Summarize(ctx context.Context, client interfaces.LLMClient, theme string, section models.SectionSpec, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	resp, err := client.Complete(ctx, &interfaces.CompletionRequest{
		System: systemPrompt,
		Prompt: summarizePrompt(theme, section, text),
	})
	if err != nil {
		return "", &models.CollaboratorError{Provider: client.Name(), Err: err}
	}

	summary := strings.TrimSpace(resp.Text)
	if summary == "" || strings.Contains(summary, noRelevantContentMarker) {
		s.logger.Debug().
			Str("section", section.Title).
			Msg("Source text had no relevant content")
		return "", nil
	}

	return summary, nil
}

// Fuse merges per-link summaries into one section text
func (s *Service) Fuse(ctx context.Context, client interfaces.LLMClient, theme string, section models.SectionSpec, summaries []string) (string, error) {
	if len(summaries) == 0 {
		return "", fmt.Errorf("no summaries to fuse")
	}
	if len(summaries) == 1 {
		return summaries[0], nil
	}

	resp, err := client.Complete(ctx, &interfaces.CompletionRequest{
		System: systemPrompt,
		Prompt: fusePrompt(theme, section, summaries),
	})
	if err != nil {
		return "", &models.CollaboratorError{Provider: client.Name(), Err: err}
	}

	fused := strings.TrimSpace(resp.Text)
	if fused == "" {
		return "", fmt.Errorf("fusion produced empty text for section %q", section.Title)
	}

	return fused, nil
}

// Overall writes the report-level summary from the section texts
func (s *Service) Overall(ctx context.Context, client interfaces.LLMClient, theme string, sections []models.Section, targetLen int) (string, error) {
	usable := make([]models.Section, 0, len(sections))
	for _, section := range sections {
		if section.Content != "" && section.Content != models.SectionUnavailableText {
			usable = append(usable, section)
		}
	}
	if len(usable) == 0 {
		return models.SectionUnavailableText, nil
	}

	resp, err := client.Complete(ctx, &interfaces.CompletionRequest{
		System: systemPrompt,
		Prompt: overallPrompt(theme, usable, targetLen),
	})
	if err != nil {
		return "", &models.CollaboratorError{Provider: client.Name(), Err: err}
	}

	summary := strings.TrimSpace(resp.Text)
	if summary == "" {
		return "", fmt.Errorf("overall summary came back empty")
	}

	return summary, nil
}
