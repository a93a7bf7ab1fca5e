package fetcher

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/referolabs/refero/internal/common"
	"github.com/referolabs/refero/internal/interfaces"
	"github.com/referolabs/refero/internal/models"
)

// Service retrieves source links and extracts their text content.
// HTML pages are reduced to markdown, PDF links are extracted page by
// page. All failures are reported through the result, never by panic.
type Service struct {
	config *common.FetcherConfig
	logger arbor.ILogger
	client *http.Client
}

// Compile-time interface assertion
var _ interfaces.Fetcher = (*Service)(nil)

// NewService creates a fetcher service
func NewService(config *common.FetcherConfig, logger arbor.ILogger) *Service {
	return &Service{
		config: config,
		logger: logger,
		client: &http.Client{
			Timeout: config.RequestTimeout,
		},
	}
}

// Fetch retrieves one URL and extracts its text content
func (s *Service) Fetch(ctx context.Context, url string) (result interfaces.FetchResult) {
	result.URL = url

	// Extraction libraries choke on hostile input; contain any panic
	// to this one link instead of taking down the whole run.
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("url", url).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Fetch panicked, treating link as failed")
			result.Content = ""
			result.Err = &models.FetchError{URL: url, Err: fmt.Errorf("extraction panicked: %v", r)}
		}
	}()

	startTime := time.Now()

	body, contentType, err := s.download(ctx, url)
	if err != nil {
		s.logger.Warn().Str("url", url).Err(err).Msg("Failed to download link")
		result.Err = &models.FetchError{URL: url, Err: err}
		return result
	}

	var text string
	if isPDF(url, contentType, body) {
		text, err = s.extractPDF(body)
	} else {
		text, err = s.extractHTML(body)
	}
	if err != nil {
		s.logger.Warn().Str("url", url).Err(err).Msg("Failed to extract link content")
		result.Err = &models.FetchError{URL: url, Err: err}
		return result
	}

	result.Content = strings.TrimSpace(text)

	s.logger.Debug().
		Str("url", url).
		Int("content_length", len(result.Content)).
		Dur("duration", time.Since(startTime)).
		Msg("Fetched link")

	return result
}

// download performs the HTTP GET with timeout and size limits
func (s *Service) download(ctx context.Context, url string) ([]byte, string, error) {
	if !s.config.AllowTestURLs && isLoopbackURL(url) {
		return nil, "", fmt.Errorf("loopback address refused: %s", url)
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf,*/*")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.config.MaxBodySize))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) == 0 {
		return nil, "", fmt.Errorf("empty response body")
	}

	return body, resp.Header.Get("Content-Type"), nil
}

// isLoopbackURL reports whether the URL points at the local host
func isLoopbackURL(raw string) bool {
	u, err := neturl.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// isPDF detects PDF responses by content type, URL suffix or magic bytes
func isPDF(url, contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "application/pdf") {
		return true
	}
	trimmed := strings.ToLower(url)
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if strings.HasSuffix(trimmed, ".pdf") {
		return true
	}
	return len(body) >= 5 && string(body[:5]) == "%PDF-"
}
