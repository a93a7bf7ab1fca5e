package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/referolabs/refero/internal/interfaces"
	"github.com/referolabs/refero/internal/models"
	"github.com/referolabs/refero/internal/services/render"
	"github.com/referolabs/refero/internal/services/reports"
)

// ReportHandler serves the report lifecycle: generation, inspection,
// download, natural-language edits and deletion.
type ReportHandler struct {
	reports     *reports.Service
	assembler   interfaces.Assembler
	reprocessor interfaces.Reprocessor
	logger      arbor.ILogger
}

// NewReportHandler creates a report handler
func NewReportHandler(reportService *reports.Service, assembler interfaces.Assembler, reprocessor interfaces.Reprocessor, logger arbor.ILogger) *ReportHandler {
	return &ReportHandler{
		reports:     reportService,
		assembler:   assembler,
		reprocessor: reprocessor,
		logger:      logger,
	}
}

// Generate handles POST /api/generate_report. The run is asynchronous;
// progress is visible through CheckResult.
func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.ReportRequest
	if !DecodeBody(w, r, &req) {
		return
	}

	if err := h.reports.StartGeneration(r.Context(), Identity(r), &req); err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"status": string(models.JobStatusRunning),
	})
}

// RecommendSections handles POST /api/generate_recommend_main_sections
func (h *ReportHandler) RecommendSections(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.RecommendRequest
	if !DecodeBody(w, r, &req) {
		return
	}

	sections, err := h.assembler.RecommendSections(r.Context(), &req)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, models.RecommendResponse{
		Theme:    req.Theme,
		Sections: sections,
	})
}

// CheckResult handles GET /api/check_result. It always succeeds:
// "result" reports whether a finished report is ready, with the job
// state alongside for callers that poll.
func (h *ReportHandler) CheckResult(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	resp := map[string]interface{}{"result": false}

	job, err := h.reports.JobStatus(r.Context(), Identity(r))
	switch {
	case err == nil:
		resp["result"] = job.Status == models.JobStatusDone
		resp["status"] = job.Status
		if job.Error != "" {
			resp["error"] = job.Error
		}
	case errors.Is(err, models.ErrReportNotFound):
		// No run was ever started for this identity
	default:
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}

// GetReport handles GET /api/get_report
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	report, err := h.reports.Get(r.Context(), Identity(r))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// DownloadReport handles GET /api/download_report?format=txt|md|html|pdf
func (h *ReportHandler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), models.CodeValidation)
		return
	}

	report, err := h.reports.Get(r.Context(), Identity(r))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	body, err := render.Render(report, format)
	if err != nil {
		h.logger.Error().Err(err).Str("format", string(format)).Msg("Report rendering failed")
		WriteError(w, http.StatusInternalServerError, "failed to render report", models.CodeInternal)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="report.%s"`, format))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// Reprocess handles POST /api/reprocess_content
func (h *ReportHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.ReprocessRequest
	if !DecodeBody(w, r, &req) {
		return
	}

	outcome, err := h.reprocessor.Reprocess(r.Context(), Identity(r), &req)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, outcome)
}

// SaveReprocessed handles POST /api/save_reprocessed_content. The body
// may name a section with its (possibly hand-edited) text; an empty
// body commits the outcome staged by the last reprocess call.
func (h *ReportHandler) SaveReprocessed(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.SaveReprocessedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), models.CodeValidation)
		return
	}

	report, err := h.reprocessor.SaveOutcome(r.Context(), Identity(r), &req)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// DeleteReport handles DELETE /api/delete_report
func (h *ReportHandler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete && r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "method not allowed", models.CodeValidation)
		return
	}

	if err := h.reports.Delete(r.Context(), Identity(r)); err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
	})
}
