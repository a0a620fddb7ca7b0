// Package api serves the ledger over HTTP.
//
// Routes:
//
//	POST  /transactions   record a SALE batch or a TAX_PAYMENT (202)
//	PATCH /sale           record an ITEM_AMENDMENT (202)
//	GET   /tax-position   tax position at ?date= (200)
//	GET   /healthz        store reachability (200 or 503)
//
// Errors are RFC 7807 problem documents. Validation failures carry the
// offending fields in "violations".
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/taxledger/internal/ledger"
	"github.com/roach88/taxledger/internal/validate"
)

// DefaultMaxBodyBytes caps request bodies when Config.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 1 << 20

// Config configures a Server.
type Config struct {
	// MaxBodyBytes caps request bodies. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// RateLimitRPS is the per-IP request rate. Zero disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int

	// Logger receives request and error logs. Nil means slog.Default().
	Logger *slog.Logger

	// LedgerOptions are passed to the Writer and Resolver.
	LedgerOptions []ledger.Option
}

// Server is the HTTP front end of one ledger store.
type Server struct {
	store     ledger.Store
	writer    *ledger.Writer
	resolver  *ledger.Resolver
	validator *validate.Validator
	schemas   *responseSchemas
	limiter   *RateLimiter
	logger    *slog.Logger
	maxBody   int64
	router    chi.Router
}

// New builds a Server over store. The store is shared, not owned: Close
// does not close it.
func New(store ledger.Store, cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	validator, err := validate.New()
	if err != nil {
		return nil, err
	}
	schemas, err := compileResponseSchemas()
	if err != nil {
		return nil, err
	}

	ledgerOpts := append([]ledger.Option{ledger.WithLogger(logger)}, cfg.LedgerOptions...)
	s := &Server{
		store:     store,
		writer:    ledger.NewWriter(store, ledgerOpts...),
		resolver:  ledger.NewResolver(store, ledgerOpts...),
		validator: validator,
		schemas:   schemas,
		logger:    logger,
		maxBody:   maxBody,
	}
	if cfg.RateLimitRPS > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(s.recoverer)
	if s.limiter != nil {
		r.Use(s.limiter.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, r, http.StatusNotFound, schemaProblem, newProblem(r, http.StatusNotFound, "no such route"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, r, http.StatusMethodNotAllowed, schemaProblem,
			newProblem(r, http.StatusMethodNotAllowed, "method not supported for this route"))
	})

	r.Post("/transactions", s.handleTransaction)
	r.Patch("/sale", s.handleAmendment)
	r.Get("/tax-position", s.handleTaxPosition)
	r.Get("/healthz", s.handleHealth)
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases server resources. It does not close the store.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests
// for up to shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// logRequests logs one line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// recoverer turns a handler panic into a 500 problem.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("handler panic", "path", r.URL.Path, "panic", rec)
				writeProblem(w, newProblem(r, http.StatusInternalServerError, internalDetail))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
