package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fxledger/fxledger/internal/adapter/http/dto"
	"github.com/fxledger/fxledger/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response with the engine's stable error code.
func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := dto.ErrorResponse{Error: message}
	if err != nil {
		resp.Code = domain.ErrorCode(err)
		resp.Message = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// writeDomainError maps the error to an HTTP status and writes it.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFromError(err), message, err)
}

// statusFromError maps engine errors to HTTP status codes.
func statusFromError(err error) int {
	switch domain.ErrorCode(err) {
	case domain.CodeNotFound, domain.CodeRateNotFound:
		return http.StatusNotFound
	case domain.CodeAlreadyExists:
		return http.StatusConflict
	case domain.CodeInvalidParams:
		return http.StatusBadRequest
	case domain.CodeOverdraft, domain.CodeOverlimit:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// parseTimeQuery parses an RFC 3339 query parameter, nil when absent.
func parseTimeQuery(r *http.Request, key string) (*time.Time, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseBoolQuery parses a boolean query parameter, false when absent.
func parseBoolQuery(r *http.Request, key string) bool {
	val := r.URL.Query().Get(key)
	if val == "" {
		return false
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false
	}
	return b
}

// parseDurationQuery parses a duration query parameter with a default.
func parseDurationQuery(r *http.Request, key string, defaultValue time.Duration) time.Duration {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}
	return d
}

// parseDecimalQuery parses a decimal query parameter, nil when absent.
func parseDecimalQuery(r *http.Request, key string) (*decimal.Decimal, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(val)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
