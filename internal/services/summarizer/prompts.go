package summarizer

import (
	"fmt"
	"strings"

	"github.com/referolabs/refero/internal/models"
)

// noRelevantContentMarker is the token the model emits when the source
// text has nothing to say about the section.
const noRelevantContentMarker = "NO_RELEVANT_CONTENT"

// maxSourceChars caps how much source text travels in one prompt.
// Longer sources are truncated rather than split; link content beyond
// this point is almost always boilerplate.
const maxSourceChars = 24000

const systemPrompt = "You are a research assistant that writes precise, well-sourced report content. Write in the same language as the report theme."

func summarizePrompt(theme string, section models.SectionSpec, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The report theme is %q.\n", theme)
	fmt.Fprintf(&b, "Summarize the source text below with respect to the section %q.\n", section.Title)
	if len(section.Subsections) > 0 {
		fmt.Fprintf(&b, "Pay particular attention to these aspects: %s.\n", strings.Join(section.Subsections, ", "))
	}
	fmt.Fprintf(&b, "Keep only material relevant to the section. If the source contains nothing relevant, respond with exactly %s and nothing else.\n", noRelevantContentMarker)
	b.WriteString("\nSource text:\n")
	b.WriteString(truncate(text, maxSourceChars))
	return b.String()
}

func fusePrompt(theme string, section models.SectionSpec, summaries []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The report theme is %q.\n", theme)
	fmt.Fprintf(&b, "Merge the source summaries below into one coherent text for the section %q.\n", section.Title)
	if len(section.Subsections) > 0 {
		fmt.Fprintf(&b, "Cover these aspects where the sources support them: %s.\n", strings.Join(section.Subsections, ", "))
	}
	b.WriteString("Resolve contradictions in favor of the majority of sources. Do not invent facts absent from the summaries. Respond with the section text only, no headings.\n")
	for i, summary := range summaries {
		fmt.Fprintf(&b, "\nSource summary %d:\n%s\n", i+1, summary)
	}
	return b.String()
}

func overallPrompt(theme string, sections []models.Section, targetLen int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The report theme is %q.\n", theme)
	fmt.Fprintf(&b, "Write an overall summary of the report below in roughly %d characters. Respond with the summary text only.\n", targetLen)
	for _, section := range sections {
		fmt.Fprintf(&b, "\n## %s\n%s\n", section.Title, section.Content)
	}
	return b.String()
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	// Cut on a rune boundary
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
