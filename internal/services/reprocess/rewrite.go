package reprocess

import (
	"context"
	"fmt"
	"strings"

	"github.com/referolabs/refero/internal/interfaces"
	"github.com/referolabs/refero/internal/models"
)

// rewriteRefusalToken is what the model emits when it cannot honor the
// requested edit. The caller then keeps the original text and the
// outcome carries the refusal marker for the user.
const rewriteRefusalToken = "CANNOT_COMPLY"

// rewriteSection rewrites the section's existing text per the
// instruction without consulting any sources.
func (s *Service) rewriteSection(ctx context.Context, client interfaces.LLMClient, theme string, section models.Section, instruction string) (string, error) {
	prompt := fmt.Sprintf(
		"A report on the theme %q contains this section %q:\n\n%s\n\n"+
			"Rewrite the section so that it satisfies this request: %q\n"+
			"Preserve all facts; do not add information that is not in the text. "+
			"Respond with the rewritten section text only. "+
			"If the request cannot be satisfied by rewriting this text, respond with exactly %s and nothing else.",
		theme, section.Title, section.Content, instruction, rewriteRefusalToken,
	)

	resp, err := client.Complete(ctx, &interfaces.CompletionRequest{
		Prompt: prompt,
	})
	if err != nil {
		return "", &models.CollaboratorError{Provider: client.Name(), Err: err}
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" || strings.Contains(text, rewriteRefusalToken) {
		s.logger.Warn().
			Str("section", section.Title).
			Msg("Model declined the rewrite, keeping original text")
		return fmt.Sprintf("%s; original text kept:\n\n%s", models.RewriteRefusalPrefix, section.Content), nil
	}

	return text, nil
}
