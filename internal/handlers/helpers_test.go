package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/referolabs/refero/internal/models"
	"github.com/referolabs/refero/internal/services/reports"
)

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteDomainErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "needs decision",
			err:        &models.NeedsDecisionError{Pending: models.PendingDecision{Section: "history", Instruction: "shorten it"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   models.CodeNeedsDecision,
		},
		{
			// Asks the caller to rephrase, so plain 400; 422 is reserved
			// for the pending-decision signal
			name:       "ambiguous edit",
			err:        &models.AmbiguousEditError{Message: "could not tell which section you meant"},
			wantStatus: http.StatusBadRequest,
			wantCode:   models.CodeAmbiguousEdit,
		},
		{
			name:       "section not found",
			err:        &models.SectionNotFoundError{Section: "appendix"},
			wantStatus: http.StatusBadRequest,
			wantCode:   models.CodeNotFound,
		},
		{
			name:       "configuration error",
			err:        &models.ConfigurationError{Reason: "no API key configured for provider openai"},
			wantStatus: http.StatusBadRequest,
			wantCode:   models.CodeConfiguration,
		},
		{
			name:       "collaborator error",
			err:        &models.CollaboratorError{Provider: "claude", Err: errors.New("upstream 500")},
			wantStatus: http.StatusBadGateway,
			wantCode:   models.CodeCollaborator,
		},
		{
			name:       "report not found",
			err:        models.ErrReportNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   models.CodeNotFound,
		},
		{
			name:       "no outcome to save",
			err:        models.ErrNoOutcome,
			wantStatus: http.StatusConflict,
			wantCode:   models.CodeConflict,
		},
		{
			name:       "user exists",
			err:        models.ErrUserExists,
			wantStatus: http.StatusConflict,
			wantCode:   models.CodeConflict,
		},
		{
			name:       "invalid credentials",
			err:        models.ErrInvalidCredentials,
			wantStatus: http.StatusUnauthorized,
			wantCode:   models.CodeUnauthorized,
		},
		{
			name:       "generation in progress",
			err:        reports.ErrGenerationInProgress,
			wantStatus: http.StatusConflict,
			wantCode:   models.CodeConflict,
		},
		{
			name:       "unknown error",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   models.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteDomainError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			body := decodeErrorBody(t, rec)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Detail)
		})
	}
}

func TestWriteDomainErrorCarriesPendingDecision(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteDomainError(rec, &models.NeedsDecisionError{
		Pending: models.PendingDecision{Section: "overview", Instruction: "expand the timeline"},
	})

	body := decodeErrorBody(t, rec)
	require.NotNil(t, body.Pending)
	assert.Equal(t, "overview", body.Pending.Section)
	assert.Equal(t, "expand the timeline", body.Pending.Instruction)
}

func TestWriteDomainErrorOmitsPendingForOtherErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteDomainError(rec, models.ErrReportNotFound)

	assert.NotContains(t, rec.Body.String(), "pending")
}

func TestDecodeBodyRejectsMalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/generate_report", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	var body models.ReportRequest
	ok := DecodeBody(rec, req, &body)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, models.CodeValidation, decodeErrorBody(t, rec).Code)
}

func TestDecodeBodyRejectsInvalidFields(t *testing.T) {
	payload := `{"theme": "", "sections": [], "links": []}`
	req := httptest.NewRequest(http.MethodPost, "/api/generate_report", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	var body models.ReportRequest
	ok := DecodeBody(rec, req, &body)

	assert.False(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	errBody := decodeErrorBody(t, rec)
	assert.Equal(t, models.CodeValidation, errBody.Code)
	assert.Contains(t, errBody.Detail, "Theme")
}

func TestDecodeBodyRejectsNonURLLinks(t *testing.T) {
	payload := `{"theme": "solar power", "sections": [{"title": "history"}], "links": ["not a url"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/generate_report", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	var body models.ReportRequest
	ok := DecodeBody(rec, req, &body)

	assert.False(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDecodeBodyAcceptsValidRequest(t *testing.T) {
	payload := `{"theme": "solar power", "sections": [{"title": "history"}], "links": ["https://example.com/solar"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/generate_report", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	var body models.ReportRequest
	ok := DecodeBody(rec, req, &body)

	require.True(t, ok)
	assert.Equal(t, "solar power", body.Theme)
	assert.Len(t, body.Sections, 1)
}

func TestRequireMethod(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/generate_report", nil)
	rec := httptest.NewRecorder()

	assert.False(t, RequireMethod(rec, req, http.MethodPost))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/generate_report", nil)
	rec = httptest.NewRecorder()
	assert.True(t, RequireMethod(rec, req, http.MethodPost))
}
