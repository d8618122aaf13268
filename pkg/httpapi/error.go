package httpapi

import (
	"encoding/json"
	"net/http"
)

// ErrorEnvelope is the JSON error body of the org API.
type ErrorEnvelope struct {
	Message string        `json:"message"`
	Code    string        `json:"code"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail carries machine-readable remediation hints, e.g. a suggested date.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, details ...ErrorDetail) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Details: details,
	})
}
