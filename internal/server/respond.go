package server

import (
	"encoding/json"
	"net/http"

	"github.com/posterforge/posterforge/pkg/errors"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeJSON writes v with the given status. Encoding failures are
// logged by the caller's middleware; the header is already gone.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	writeJSON(w, statusFor(code), errorResponse{
		Error: errors.UserMessage(err),
		Code:  string(code),
	})
}

func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidDistance, errors.ErrCodeInvalidTheme:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeThemeNotFound,
		errors.ErrCodeJobNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeNotReady:
		return http.StatusConflict
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeGeocoding, errors.ErrCodeDataFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
