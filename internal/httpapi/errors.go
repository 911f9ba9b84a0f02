// Package httpapi exposes the lifecycle dispatcher over HTTP.
package httpapi

import (
	"encoding/json"
	"net/http"

	"counterstrike/pkg/domain"
)

type jsonError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSONError writes a JSON error payload with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, jsonError{Error: message, Details: details})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusForCode maps an error classification to an HTTP status.
func StatusForCode(code domain.ErrorCode) int {
	switch code {
	case "":
		return http.StatusInternalServerError
	case domain.CodeInvalidArgument, domain.CodeMalformedPayload, domain.CodeUnknownOperation:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeInvalidState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
