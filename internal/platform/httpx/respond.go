// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// FieldViolation describes a single user-correctable validation failure.
type FieldViolation struct {
	Line    int    `json:"line,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationProblem extends ProblemDetail with per-field violations so the
// caller can render every broken rule at once.
type ValidationProblem struct {
	ProblemDetail
	Violations []FieldViolation `json:"violations"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	JSON(w, status, ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// Violations sends a 400 problem carrying the full violation list.
func Violations(w http.ResponseWriter, title string, violations []FieldViolation) {
	JSON(w, http.StatusBadRequest, ValidationProblem{
		ProblemDetail: ProblemDetail{Title: title, Status: http.StatusBadRequest},
		Violations:    violations,
	})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
