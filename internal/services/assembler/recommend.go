package assembler

import (
	"context"
	"fmt"
	"strings"

	"github.com/referolabs/refero/internal/interfaces"
	"github.com/referolabs/refero/internal/models"
	"github.com/referolabs/refero/internal/services/llm"
)

// recommendSchema shapes the outline proposal as structured output
func recommendSchema(min, max int) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"sections": map[string]interface{}{
				"type":        "array",
				"description": fmt.Sprintf("Between %d and %d report sections in reading order", min, max),
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"title": map[string]interface{}{"type": "string"},
						"subsections": map[string]interface{}{
							"type":        "array",
							"description": "2 to 4 aspects the section should cover",
							"items":       map[string]interface{}{"type": "string"},
						},
					},
					"required": []interface{}{"title", "subsections"},
				},
			},
		},
		"required": []interface{}{"sections"},
	}
}

// RecommendSections proposes a section outline for a theme
func (s *Service) RecommendSections(ctx context.Context, req *models.RecommendRequest) ([]models.SectionSpec, error) {
	client, err := s.clients.ClientFor(ctx, req.Model)
	if err != nil {
		return nil, err
	}

	min, max := s.config.SectionCountMin, s.config.SectionCountMax
	prompt := fmt.Sprintf(
		"Propose a section outline for a research report on the theme %q. "+
			"Choose between %d and %d main sections that together give a complete picture of the theme, "+
			"each with 2 to 4 subsection hints. Use the language of the theme.",
		req.Theme, min, max,
	)

	resp, err := client.Complete(ctx, &interfaces.CompletionRequest{
		Prompt: prompt,
		Schema: recommendSchema(min, max),
	})
	if err != nil {
		return nil, &models.CollaboratorError{Provider: client.Name(), Err: err}
	}

	var decoded struct {
		Sections []models.SectionSpec `json:"sections"`
	}
	if err := llm.DecodeJSON(resp.Text, &decoded); err != nil {
		return nil, &models.CollaboratorError{Provider: client.Name(), Err: fmt.Errorf("unparseable outline: %w", err)}
	}

	sections := make([]models.SectionSpec, 0, len(decoded.Sections))
	for _, section := range decoded.Sections {
		if strings.TrimSpace(section.Title) == "" {
			continue
		}
		sections = append(sections, section)
	}
	if len(sections) == 0 {
		return nil, &models.CollaboratorError{Provider: client.Name(), Err: fmt.Errorf("outline contained no sections")}
	}

	return sections, nil
}
