package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/taxledger/internal/ledger"
)

// ProblemDetail implements RFC 7807 (Problem Details for HTTP APIs).
// All API error responses use this format.
type ProblemDetail struct {
	// Type is a URI reference that identifies the problem type.
	Type string `json:"type"`
	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`
	// Status is the HTTP status code.
	Status int `json:"status"`
	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`
	// Instance is the request path.
	Instance string `json:"instance,omitempty"`
	// RequestID echoes the X-Request-Id of the request.
	RequestID string `json:"request_id,omitempty"`
	// Violations lists field-level validation failures.
	Violations []ledger.Violation `json:"violations,omitempty"`
}

const problemContentType = "application/problem+json"

// newProblem builds a ProblemDetail for r.
func newProblem(r *http.Request, status int, detail string) *ProblemDetail {
	return &ProblemDetail{
		Type:      "about:blank",
		Title:     http.StatusText(status),
		Status:    status,
		Detail:    detail,
		Instance:  r.URL.Path,
		RequestID: middleware.GetReqID(r.Context()),
	}
}

// writeProblem writes p without schema checks. It is the fallback when a
// response fails its own contract.
func writeProblem(w http.ResponseWriter, p *ProblemDetail) {
	w.Header().Set("Content-Type", problemContentType)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
