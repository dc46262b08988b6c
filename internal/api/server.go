// Package api exposes the HTTP interface for the crawler service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/domain-crawler/internal/metrics"
	"github.com/JakeFAU/domain-crawler/internal/shutdown"
	"github.com/JakeFAU/domain-crawler/internal/visit"
)

// maxBodyBytes caps POST bodies.
const maxBodyBytes = 1 << 10

// Sessions starts crawl sessions.
type Sessions interface {
	Start(domain *url.URL) (bool, error)
	Active() []string
}

// Visits answers questions about discovered URLs.
type Visits interface {
	UniqueURLsForDomain(domain *url.URL) ([]*url.URL, error)
	URLCountForDomain(u *url.URL) (int, error)
}

// IDGenerator produces request IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Server wires HTTP handlers to the session manager and visit store.
type Server struct {
	router   chi.Router
	sessions Sessions
	visits   Visits
	idGen    IDGenerator
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(sessions Sessions, visits Visits, idGen IDGenerator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		sessions: sessions,
		visits:   visits,
		idGen:    idGen,
		logger:   logger.Named("api"),
	}
	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/domains", func(r chi.Router) {
		r.Post("/", s.startCrawl)
		r.Get("/", s.listURLs)
		r.Get("/urls", s.countURL)
	})
	r.Get("/sessions", s.listSessions)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type startCrawlRequest struct {
	Domain string `json:"domain"`
}

type startCrawlResponse struct {
	Domain  string `json:"domain"`
	Started bool   `json:"started"`
}

type urlCountResponse struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}

type sessionsResponse struct {
	Active []string `json:"active"`
}

func (s *Server) startCrawl(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req startCrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	domain, err := parseAbsoluteURL(req.Domain)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	started, err := s.sessions.Start(domain)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, shutdown.ErrShuttingDown) {
			status = http.StatusServiceUnavailable
		}
		s.logger.Error("failed to start crawl session", zap.String("domain", domain.String()), zap.Error(err))
		s.writeError(w, status, "failed to start crawl session")
		return
	}
	s.writeJSON(w, http.StatusOK, startCrawlResponse{Domain: domain.String(), Started: started})
}

func (s *Server) listURLs(w http.ResponseWriter, r *http.Request) {
	domain, err := parseAbsoluteURL(r.URL.Query().Get("domain"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	urls, err := s.visits.UniqueURLsForDomain(domain)
	if err != nil {
		s.writeVisitError(w, err)
		return
	}
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		out = append(out, u.String())
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) countURL(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	target, err := parseAbsoluteURL(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	count, err := s.visits.URLCountForDomain(target)
	if err != nil {
		s.writeVisitError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, urlCountResponse{URL: raw, Count: count})
}

func (s *Server) listSessions(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, sessionsResponse{Active: s.sessions.Active()})
}

func (s *Server) writeVisitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, visit.ErrDomainDoesNotExist):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, visit.ErrDoesNotContainDomain):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("visit store query failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseAbsoluteURL accepts only http(s) URLs with a host.
func parseAbsoluteURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("url required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid url %q: missing host", raw)
	}
	return u, nil
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = s.newRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) newRequestID() string {
	if s.idGen != nil {
		if id, err := s.idGen.NewID(); err == nil {
			return id
		}
	}
	return uuid.NewString()
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("request_id", requestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered",
					zap.String("request_id", requestID(r.Context())),
					zap.Any("error", rec),
				)
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
