package reprocess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/referolabs/refero/internal/interfaces"
	"github.com/referolabs/refero/internal/models"
	"github.com/referolabs/refero/internal/services/assembler"
	"github.com/referolabs/refero/internal/services/reports"
)

// Service interprets natural-language edit commands against an existing
// report. An edit either re-fetches sources for one section or rewrites
// the section's current text; when the command does not make the choice
// clear, the run suspends until the caller decides.
type Service struct {
	clients   assembler.ClientProvider
	reports   *reports.Service
	assembler interfaces.Assembler
	storage   interfaces.StorageManager
	logger    arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.Reprocessor = (*Service)(nil)

// NewService creates a reprocess service
func NewService(clients assembler.ClientProvider, reportService *reports.Service, asm interfaces.Assembler, storage interfaces.StorageManager, logger arbor.ILogger) *Service {
	return &Service{
		clients:   clients,
		reports:   reportService,
		assembler: asm,
		storage:   storage,
		logger:    logger,
	}
}

// Reprocess resolves the edit command and produces a proposed outcome.
// The report itself stays untouched until SaveOutcome.
func (s *Service) Reprocess(ctx context.Context, identity string, req *models.ReprocessRequest) (*models.ReprocessOutcome, error) {
	// One operation per identity at a time: an edit must not read a
	// report that a running generation is about to replace
	release, err := s.reports.BeginEdit(identity)
	if err != nil {
		return nil, err
	}
	defer release()

	// No report means nothing to edit; this must fail before any model call
	report, err := s.reports.Get(ctx, identity)
	if err != nil {
		return nil, err
	}

	client, err := s.clients.ClientFor(ctx, req.Model)
	if err != nil {
		return nil, err
	}

	var target editTarget
	var fetch bool

	if req.Decision != nil {
		pending, err := s.loadPending(ctx, identity)
		if err != nil {
			return nil, err
		}
		target = editTarget{Section: pending.Section, Instruction: pending.Instruction}
		fetch = *req.Decision
	} else {
		target, err = s.classifyTarget(ctx, client, report, req.Command)
		if err != nil {
			return nil, err
		}

		fetch, err = s.classifyAction(ctx, client, target)
		if err != nil {
			var needs *models.NeedsDecisionError
			if errors.As(err, &needs) {
				if storeErr := s.storePending(ctx, identity, needs.Pending); storeErr != nil {
					return nil, storeErr
				}
			}
			return nil, err
		}
	}

	idx := report.SectionIndex(target.Section)
	if idx < 0 {
		return nil, &models.SectionNotFoundError{Section: target.Section}
	}
	original := report.Sections[idx]

	var modified string
	if fetch {
		// The overall summary is derived from the other sections, not from
		// sources, so re-fetching it has nothing to work from.
		if original.Title == models.OverallSummaryTitle {
			return nil, &models.AmbiguousEditError{
				Message: "the overall summary cannot be regenerated from sources; rephrase the command as a rewrite of its text",
			}
		}
		modified, err = s.refetchSection(ctx, client, report, original, target.Instruction, req.Links)
	} else {
		modified, err = s.rewriteSection(ctx, client, report.Theme, original, target.Instruction)
	}
	if err != nil {
		return nil, err
	}

	outcome := &models.ReprocessOutcome{
		Identity:     identity,
		Section:      original.Title,
		OriginalText: original.Content,
		ModifiedText: modified,
		CreatedAt:    time.Now(),
	}
	if err := s.storage.Outcomes().Save(ctx, outcome); err != nil {
		return nil, fmt.Errorf("failed to store proposed edit: %w", err)
	}
	s.storage.KV().Delete(ctx, models.PendingDecisionKey(identity))

	s.logger.Info().
		Str("identity", identity).
		Str("section", outcome.Section).
		Bool("fetched", fetch).
		Msg("Reprocess produced a proposed edit")

	return outcome, nil
}

// SaveOutcome commits an edit into the report. A request naming a
// section carries the text to commit (the caller may have hand-edited
// the proposal); an empty request commits the staged outcome as-is.
func (s *Service) SaveOutcome(ctx context.Context, identity string, req *models.SaveReprocessedRequest) (*models.Report, error) {
	if s.reports.GenerationActive(identity) {
		return nil, reports.ErrGenerationInProgress
	}

	outcome, outcomeErr := s.storage.Outcomes().Get(ctx, identity)
	if outcomeErr != nil && !errors.Is(outcomeErr, interfaces.ErrKeyNotFound) {
		return nil, outcomeErr
	}

	var section, content string
	switch {
	case req == nil || req.Section == "":
		if outcomeErr != nil {
			return nil, models.ErrNoOutcome
		}
		section, content = outcome.Section, outcome.ModifiedText
	case req.NewContent == "" && outcomeErr == nil && outcome.Section == req.Section:
		// The caller named the staged section without supplying text;
		// commit the staged proposal
		section, content = outcome.Section, outcome.ModifiedText
	case req.NewContent == "":
		return nil, &models.AmbiguousEditError{Message: "new_content is required when saving your own text for a section"}
	default:
		section, content = req.Section, req.NewContent
	}

	report, err := s.reports.UpdateSection(ctx, identity, section, content)
	if err != nil {
		return nil, err
	}

	if outcomeErr == nil && outcome.Section == section {
		s.storage.Outcomes().Delete(ctx, identity)
	}
	return report, nil
}

// refetchSection regenerates the section from the report's links plus
// any extra links supplied with the edit.
func (s *Service) refetchSection(ctx context.Context, client interfaces.LLMClient, report *models.Report, original models.Section, instruction string, extraLinks []string) (string, error) {
	links := make([]string, 0, len(report.Links)+len(extraLinks))
	seen := make(map[string]bool, len(report.Links)+len(extraLinks))
	for _, url := range append(append([]string{}, report.Links...), extraLinks...) {
		if seen[url] {
			continue
		}
		seen[url] = true
		links = append(links, url)
	}

	spec := models.SectionSpec{
		Title:       original.Title,
		Subsections: original.Subsections,
	}
	if instruction != "" {
		// The edit instruction narrows what the regenerated section covers
		spec.Subsections = append(append([]string{}, spec.Subsections...), instruction)
	}

	section, err := s.assembler.GenerateSection(ctx, client, report.Theme, spec, links)
	if err != nil {
		return "", err
	}
	return section.Content, nil
}

func (s *Service) loadPending(ctx context.Context, identity string) (*models.PendingDecision, error) {
	raw, err := s.storage.KV().Get(ctx, models.PendingDecisionKey(identity))
	if err != nil {
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			return nil, &models.AmbiguousEditError{Message: "there is no pending decision to resolve; submit the edit command first"}
		}
		return nil, err
	}

	var pending models.PendingDecision
	if err := json.Unmarshal(raw, &pending); err != nil {
		return nil, fmt.Errorf("corrupt pending decision: %w", err)
	}
	return &pending, nil
}

func (s *Service) storePending(ctx context.Context, identity string, pending models.PendingDecision) error {
	raw, err := json.Marshal(pending)
	if err != nil {
		return err
	}
	return s.storage.KV().Set(ctx, models.PendingDecisionKey(identity), raw)
}
