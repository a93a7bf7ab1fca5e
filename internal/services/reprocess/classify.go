package reprocess

import (
	"context"
	"fmt"
	"strings"

	"github.com/referolabs/refero/internal/interfaces"
	"github.com/referolabs/refero/internal/models"
	"github.com/referolabs/refero/internal/services/llm"
)

// editTarget is the resolved subject of an edit command
type editTarget struct {
	Section     string
	Instruction string
}

var targetSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"section": map[string]interface{}{
			"type":        "string",
			"description": "The section the user wants changed, exactly as listed",
		},
		"instruction": map[string]interface{}{
			"type":        "string",
			"description": "What should change, in the user's words",
		},
		"status": map[string]interface{}{
			"type": "string",
			"enum": []interface{}{"ok", "no_such_section", "ambiguous_section", "unclear"},
		},
	},
	"required": []interface{}{"section", "instruction", "status"},
}

var actionSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"fetch": map[string]interface{}{
			"type":        "string",
			"enum":        []interface{}{"y", "n", "unknown"},
			"description": "y if the edit needs fresh source material, n if rewriting the existing text suffices, unknown if the command does not say",
		},
	},
	"required": []interface{}{"fetch"},
}

// classifyTarget resolves which section the command addresses and what
// it asks for.
func (s *Service) classifyTarget(ctx context.Context, client interfaces.LLMClient, report *models.Report, command string) (editTarget, error) {
	titles := make([]string, 0, len(report.Sections))
	for _, section := range report.Sections {
		titles = append(titles, section.Title)
	}

	prompt := fmt.Sprintf(
		"A report on the theme %q has these sections:\n- %s\n\n"+
			"The user asks: %q\n\n"+
			"Identify the single section the user wants changed and what the change is. "+
			"Use status \"no_such_section\" when the user names a section the report does not have, "+
			"\"ambiguous_section\" when the request could apply to several sections, "+
			"and \"unclear\" when you cannot tell what should change.",
		report.Theme, strings.Join(titles, "\n- "), command,
	)

	resp, err := client.Complete(ctx, &interfaces.CompletionRequest{
		Prompt: prompt,
		Schema: targetSchema,
	})
	if err != nil {
		return editTarget{}, &models.CollaboratorError{Provider: client.Name(), Err: err}
	}

	var decoded struct {
		Section     string `json:"section"`
		Instruction string `json:"instruction"`
		Status      string `json:"status"`
	}
	if err := llm.DecodeJSON(resp.Text, &decoded); err != nil {
		return editTarget{}, &models.AmbiguousEditError{Message: "could not interpret the edit command; please rephrase it"}
	}

	switch decoded.Status {
	case "ok":
		if strings.TrimSpace(decoded.Section) == "" {
			return editTarget{}, &models.AmbiguousEditError{Message: "could not tell which section to change; please name the section"}
		}
		return editTarget{Section: decoded.Section, Instruction: decoded.Instruction}, nil
	case "no_such_section":
		return editTarget{}, &models.SectionNotFoundError{Section: decoded.Section}
	case "ambiguous_section":
		return editTarget{}, &models.AmbiguousEditError{Message: "the request could apply to more than one section; please name the section to change"}
	default:
		return editTarget{}, &models.AmbiguousEditError{Message: "could not tell what should change; please clarify the instruction"}
	}
}

// classifyAction decides between re-fetching sources and rewriting the
// existing text. An undecidable command surfaces as NeedsDecisionError.
func (s *Service) classifyAction(ctx context.Context, client interfaces.LLMClient, target editTarget) (bool, error) {
	prompt := fmt.Sprintf(
		"The user wants this change to the report section %q: %q\n\n"+
			"Decide whether satisfying it requires fetching fresh source material (for example: add recent developments, "+
			"cover new events, bring in more sources) or whether rewriting the existing text suffices "+
			"(for example: shorten, change tone, restructure, fix wording).",
		target.Section, target.Instruction,
	)

	resp, err := client.Complete(ctx, &interfaces.CompletionRequest{
		Prompt: prompt,
		Schema: actionSchema,
	})
	if err != nil {
		return false, &models.CollaboratorError{Provider: client.Name(), Err: err}
	}

	var decoded struct {
		Fetch string `json:"fetch"`
	}
	if err := llm.DecodeJSON(resp.Text, &decoded); err != nil {
		return false, &models.AmbiguousEditError{Message: "could not interpret the edit command; please rephrase it"}
	}

	switch strings.ToLower(strings.TrimSpace(decoded.Fetch)) {
	case "y":
		return true, nil
	case "n":
		return false, nil
	default:
		return false, &models.NeedsDecisionError{
			Pending: models.PendingDecision{
				Section:     target.Section,
				Instruction: target.Instruction,
			},
		}
	}
}
