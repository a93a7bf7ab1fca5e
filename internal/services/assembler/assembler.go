package assembler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/referolabs/refero/internal/common"
	"github.com/referolabs/refero/internal/interfaces"
	"github.com/referolabs/refero/internal/models"
)

// ClientProvider builds an LLM client for a request's model settings
type ClientProvider interface {
	ClientFor(ctx context.Context, mc models.ModelConfig) (interfaces.LLMClient, error)
}

// Service orchestrates report generation: per-section source fan-out,
// summarization, fusion and the overall summary.
type Service struct {
	clients    ClientProvider
	fetcher    interfaces.Fetcher
	summarizer interfaces.Summarizer
	config     *common.AssemblerConfig
	logger     arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.Assembler = (*Service)(nil)

// NewService creates an assembler service
func NewService(clients ClientProvider, fetcher interfaces.Fetcher, summarizer interfaces.Summarizer, config *common.AssemblerConfig, logger arbor.ILogger) *Service {
	return &Service{
		clients:    clients,
		fetcher:    fetcher,
		summarizer: summarizer,
		config:     config,
		logger:     logger,
	}
}

// Generate builds a full report. Sections are produced in request
// order; links within a section are processed concurrently.
func (s *Service) Generate(ctx context.Context, identity string, req *models.ReportRequest) (*models.Report, error) {
	client, err := s.clients.ClientFor(ctx, req.Model)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	s.logger.Info().
		Str("identity", identity).
		Str("theme", req.Theme).
		Int("sections", len(req.Sections)).
		Int("links", len(req.Links)).
		Msg("Starting report generation")

	now := time.Now()
	report := &models.Report{
		Identity:  identity,
		Theme:     req.Theme,
		Links:     req.Links,
		Sections:  make([]models.Section, 0, len(req.Sections)+1),
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, spec := range req.Sections {
		section, err := s.GenerateSection(ctx, client, req.Theme, spec, req.Links)
		if err != nil {
			return nil, fmt.Errorf("section %q failed: %w", spec.Title, err)
		}
		report.Sections = append(report.Sections, section)
	}

	if req.WantsSummary() {
		overall, err := s.summarizer.Overall(ctx, client, req.Theme, report.Sections, s.config.SummaryLength)
		if err != nil {
			return nil, fmt.Errorf("overall summary failed: %w", err)
		}
		report.Sections = append(report.Sections, models.Section{
			Title:   models.OverallSummaryTitle,
			Content: overall,
		})
	}

	report.TotalTime = time.Since(startTime).Seconds()

	s.logger.Info().
		Str("identity", identity).
		Float64("total_time", report.TotalTime).
		Msg("Report generation finished")

	return report, nil
}

// GenerateSection fetches and summarizes every link concurrently, then
// fuses the usable summaries into one section text. A section whose
// links all fail gets the unavailable marker instead of an error.
func (s *Service) GenerateSection(ctx context.Context, client interfaces.LLMClient, theme string, spec models.SectionSpec, links []string) (models.Section, error) {
	section := models.Section{
		Title:       spec.Title,
		Subsections: spec.Subsections,
	}

	summaries := s.summarizeLinks(ctx, client, theme, spec, links)
	if len(summaries) == 0 {
		s.logger.Warn().
			Str("section", spec.Title).
			Int("links", len(links)).
			Msg("No link yielded usable content for section")
		section.Content = models.SectionUnavailableText
		return section, nil
	}

	fused, err := s.summarizer.Fuse(ctx, client, theme, spec, summaries)
	if err != nil {
		return models.Section{}, err
	}
	section.Content = fused
	return section, nil
}

// summarizeLinks runs the fetch+summarize pipeline for each link with a
// bounded worker pool. Results keep link order; failed and irrelevant
// links are dropped.
func (s *Service) summarizeLinks(ctx context.Context, client interfaces.LLMClient, theme string, spec models.SectionSpec, links []string) []string {
	workers := s.config.Concurrency
	if workers <= 0 {
		workers = 1
	}
	if workers > len(links) {
		workers = len(links)
	}

	type job struct {
		index int
		url   string
	}

	jobs := make(chan job)
	results := make([]string, len(links))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.index] = s.summarizeLink(ctx, client, theme, spec, j.url)
			}
		}()
	}

	for i, url := range links {
		jobs <- job{index: i, url: url}
	}
	close(jobs)
	wg.Wait()

	summaries := make([]string, 0, len(links))
	for _, summary := range results {
		if summary != "" {
			summaries = append(summaries, summary)
		}
	}
	return summaries
}

// summarizeLink handles one link end to end. Failures are logged and
// reported as an empty summary so one bad link never sinks a section.
func (s *Service) summarizeLink(ctx context.Context, client interfaces.LLMClient, theme string, spec models.SectionSpec, url string) string {
	fetched := s.fetcher.Fetch(ctx, url)
	if !fetched.OK() {
		if fetched.Err != nil {
			s.logger.Warn().
				Str("section", spec.Title).
				Str("url", url).
				Err(fetched.Err).
				Msg("Link fetch failed, skipping")
		}
		return ""
	}

	summary, err := s.summarizer.Summarize(ctx, client, theme, spec, fetched.Content)
	if err != nil {
		s.logger.Warn().
			Str("section", spec.Title).
			Str("url", url).
			Err(err).
			Msg("Link summarization failed, skipping")
		return ""
	}
	return summary
}
