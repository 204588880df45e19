package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/copilot/internal/contracts"
	"github.com/wonny/copilot/pkg/logger"
)

// Error codes returned in ErrorResponse.ErrorCode
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeMissingParameter  = "MISSING_PARAMETER"
	CodeSnapshotsDisabled = "SNAPSHOTS_DISABLED"
	CodeAnalysis          = "ANALYSIS_ERROR"
	CodeRecommendation    = "RECOMMENDATION_ERROR"
	CodeComparison        = "COMPARISON_ERROR"
	CodeTarget            = "TARGET_ERROR"
	CodeSnapshot          = "SNAPSHOT_ERROR"
	CodeHistory           = "HISTORY_ERROR"
	CodeTickerSectors     = "TICKER_SECTORS_ERROR"
	CodeCatalogRefresh    = "CATALOG_REFRESH_ERROR"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInternal          = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
	Detail    string `json:"detail,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an ErrorResponse (also used by the router middleware)
func RespondError(w http.ResponseWriter, status int, code, message, detail string) {
	respondJSON(w, status, ErrorResponse{
		Error:     message,
		ErrorCode: code,
		Detail:    detail,
	})
}

// failure describes how an operation's unexpected errors are reported
type failure struct {
	code    string
	message string
}

// respondServiceError maps service errors to HTTP status codes.
// ValidationError → 400, missing profile → 400, snapshots disabled → 503, otherwise 500.
func respondServiceError(w http.ResponseWriter, log *logger.Logger, err error, f failure) {
	switch {
	case contracts.IsValidationError(err):
		RespondError(w, http.StatusBadRequest, CodeValidation, "Validation error", err.Error())
	case errors.Is(err, contracts.ErrProfileRequired):
		RespondError(w, http.StatusBadRequest, CodeMissingParameter, "Missing required parameter", "profile is required in the request body")
	case errors.Is(err, contracts.ErrSnapshotsDisabled):
		RespondError(w, http.StatusServiceUnavailable, CodeSnapshotsDisabled, "Portfolio snapshots are disabled", err.Error())
	default:
		log.WithError(err).Error(f.message)
		RespondError(w, http.StatusInternalServerError, f.code, f.message, err.Error())
	}
}

// decodeJSON decodes the request body (최대 1MB)
func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dest); err != nil {
		RespondError(w, http.StatusBadRequest, CodeValidation, "Invalid request body", err.Error())
		return false
	}
	return true
}
