package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/zpools-io/zpools-cli/internal/domain"
)

// APIError is a non-2xx response. 401 and 403 match domain.ErrAuth, 404
// matches domain.ErrNotFound and everything else domain.ErrTransport.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
	RequestID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message())
}

func (e *APIError) Is(target error) bool {
	switch target {
	case domain.ErrAuth:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case domain.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case domain.ErrTransport:
		return e.StatusCode != http.StatusUnauthorized && e.StatusCode != http.StatusForbidden
	default:
		return false
	}
}

// Message extracts a human readable message from the body, falling back to
// the raw body and then the status text.
func (e *APIError) Message() string {
	if message := ExtractErrorMessage(e.Body); message != "" {
		return message
	}
	if raw := strings.TrimSpace(string(e.Body)); raw != "" {
		return raw
	}
	return http.StatusText(e.StatusCode)
}

func (e *APIError) RawBody() string {
	return string(e.Body)
}

// ExtractErrorMessage reads message, a string detail or detail.message from
// a JSON error body. It returns "" when none is present.
func ExtractErrorMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ""
	}

	var payload struct {
		Message string          `json:"message"`
		Detail  json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	if len(payload.Detail) == 0 {
		return ""
	}

	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		return detail
	}

	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Detail, &nested); err == nil {
		return nested.Message
	}
	return ""
}
