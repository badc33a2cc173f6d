package server

import (
	"net/http"
	"slices"
	"strings"
)

var allowedCheckMethods = []string{"post", "get", "put", "delete"}
var allowedProtocols = []string{"http", "https"}

// validPhone reports whether s is exactly 10 digits.
func validPhone(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

func validProtocol(s string) bool {
	return slices.Contains(allowedProtocols, s)
}

func validCheckMethod(s string) bool {
	return slices.Contains(allowedCheckMethods, s)
}

func validTimeout(n int) bool {
	return n >= 1 && n <= 5
}

func validSuccessCodes(codes []int) bool {
	return len(codes) > 0
}

// fieldErrors collects per-field validation failures so the client learns
// exactly which inputs to fix.
type fieldErrors map[string]string

func (f fieldErrors) add(field, reason string) {
	f[field] = reason
}

// invalidInput builds the 400 response enumerating the failed fields.
func invalidInput(fields fieldErrors) *Response {
	body := map[string]any{"error": "missing required inputs or inputs are invalid"}
	if len(fields) > 0 {
		body["fields"] = fields
	}
	return &Response{Status: http.StatusBadRequest, Body: body}
}

func missingPayload() *Response {
	return &Response{
		Status: http.StatusBadRequest,
		Body:   errorBody("payload is missing or could not be parsed as JSON"),
	}
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
