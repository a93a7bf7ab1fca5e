package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/referolabs/refero/internal/models"
	"github.com/referolabs/refero/internal/services/reports"
)

var validate = validator.New()

// ErrorBody is the shape of every error response
type ErrorBody struct {
	Detail  string                  `json:"detail"`
	Code    string                  `json:"code"`
	Pending *models.PendingDecision `json:"pending,omitempty"`
}

// RequireMethod validates that the request uses the given method.
// Returns true on match, false otherwise (after writing the error).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteError(w, http.StatusMethodNotAllowed, "method not allowed", models.CodeValidation)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error response
func WriteError(w http.ResponseWriter, statusCode int, detail, code string) error {
	return WriteJSON(w, statusCode, ErrorBody{Detail: detail, Code: code})
}

// DecodeBody parses and validates a JSON request body.
// Returns false after writing the error response.
func DecodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), models.CodeValidation)
		return false
	}
	if err := validate.Struct(v); err != nil {
		WriteError(w, http.StatusUnprocessableEntity, validationDetail(err), models.CodeValidation)
		return false
	}
	return true
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("field %s failed %s validation", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// WriteDomainError maps a domain error onto the API's error contract
func WriteDomainError(w http.ResponseWriter, err error) {
	var (
		needsDecision *models.NeedsDecisionError
		ambiguous     *models.AmbiguousEditError
		notFound      *models.SectionNotFoundError
		confErr       *models.ConfigurationError
		collabErr     *models.CollaboratorError
	)

	switch {
	case errors.As(err, &needsDecision):
		WriteJSON(w, http.StatusUnprocessableEntity, ErrorBody{
			Detail:  needsDecision.Error(),
			Code:    models.CodeNeedsDecision,
			Pending: &needsDecision.Pending,
		})
	// An ambiguous edit asks the caller to rephrase, not to resubmit a
	// decision, so it is a plain 400; 422 is reserved for needs_decision
	case errors.As(err, &ambiguous):
		WriteError(w, http.StatusBadRequest, ambiguous.Message, models.CodeAmbiguousEdit)
	case errors.As(err, &notFound):
		WriteError(w, http.StatusBadRequest, notFound.Error(), models.CodeNotFound)
	case errors.As(err, &confErr):
		WriteError(w, http.StatusBadRequest, confErr.Error(), models.CodeConfiguration)
	case errors.As(err, &collabErr):
		WriteError(w, http.StatusBadGateway, collabErr.Error(), models.CodeCollaborator)
	case errors.Is(err, models.ErrReportNotFound):
		WriteError(w, http.StatusNotFound, "no report exists for this identity; generate one first", models.CodeNotFound)
	case errors.Is(err, models.ErrNoOutcome):
		WriteError(w, http.StatusConflict, err.Error(), models.CodeConflict)
	case errors.Is(err, models.ErrUserExists):
		WriteError(w, http.StatusConflict, err.Error(), models.CodeConflict)
	case errors.Is(err, models.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, err.Error(), models.CodeUnauthorized)
	case errors.Is(err, reports.ErrGenerationInProgress):
		WriteError(w, http.StatusConflict, err.Error(), models.CodeConflict)
	default:
		WriteError(w, http.StatusInternalServerError, "internal server error", models.CodeInternal)
	}
}
