package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/roach88/taxledger/internal/ledger"
	"github.com/roach88/taxledger/internal/validate"
)

// internalDetail is the only detail clients see for server-side failures.
const internalDetail = "an unexpected error occurred"

type taxPositionResponse struct {
	Date        string `json:"date"`
	TaxPosition int64  `json:"taxPosition"`
}

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	tx, err := s.validator.ParseTransaction(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validate.Apply(r.Context(), s.writer, tx); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleAmendment(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	req, err := s.validator.ParseAmendment(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validate.ApplyAmendment(r.Context(), s.writer, req); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleTaxPosition(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	cutoff, err := s.validator.ParseDate(raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pos, err := s.resolver.Position(r.Context(), cutoff)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, schemaTaxPosition, taxPositionResponse{
		Date:        validate.RestorePlus(raw),
		TaxPosition: pos.TaxPosition,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", "error", err)
		s.writeJSON(w, r, http.StatusServiceUnavailable, schemaProblem,
			newProblem(r, http.StatusServiceUnavailable, "ledger store unavailable"))
		return
	}
	s.writeJSON(w, r, http.StatusOK, schemaHealth, healthResponse{Status: "ok"})
}

// readBody reads the capped request body. On failure it has already
// written the response.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err == nil {
		return body, true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.writeJSON(w, r, http.StatusRequestEntityTooLarge, schemaProblem,
			newProblem(r, http.StatusRequestEntityTooLarge, "request body too large"))
		return nil, false
	}
	s.writeJSON(w, r, http.StatusBadRequest, schemaProblem, newProblem(r, http.StatusBadRequest, "could not read request body"))
	return nil, false
}

// writeError maps ledger errors to problem responses. Storage and unknown
// errors are logged and reported without their cause.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *ledger.ValidationError
	if errors.As(err, &ve) {
		p := newProblem(r, http.StatusBadRequest, "request validation failed")
		p.Violations = ve.Violations
		s.writeJSON(w, r, http.StatusBadRequest, schemaProblem, p)
		return
	}

	s.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"storage", ledger.IsStorageError(err),
		"error", err,
	)
	s.writeJSON(w, r, http.StatusInternalServerError, schemaProblem, newProblem(r, http.StatusInternalServerError, internalDetail))
}
