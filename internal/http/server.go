// Package http exposes the JSON API: calculation creation and history,
// unit price management, and the health probes. Handlers stay thin and
// delegate to the services layer; all domain rules live below.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"goldtrack/internal/log"
	"goldtrack/internal/middleware/ratelimit"
	"goldtrack/internal/middleware/security"
	"goldtrack/internal/middleware/trace"
	"goldtrack/internal/services"
)

// agentHeader carries the opaque agent identity assigned by the upstream
// identity provider. The server never fabricates one.
const agentHeader = "X-Agent-ID"

// Pinger reports storage liveness for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires the API handlers behind the shared middleware stack.
type Server struct {
	http.Server

	calculations *services.CalculationService
	prices       *services.PriceService
	ready        Pinger

	limiter      *ratelimit.Limiter
	detector     *security.Detector
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// ready may be nil when the backend has no liveness check (memory backend).
func NewServer(addr string, calculations *services.CalculationService, prices *services.PriceService, ready Pinger, logger *log.Logger) *Server {
	s := &Server{
		calculations: calculations,
		prices:       prices,
		ready:        ready,
		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:     security.NewDetector(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/api/calculations", s.handleCalculations)
	mux.HandleFunc("/api/price", s.handlePrice)
	mux.HandleFunc("/api/price/history", s.handlePriceHistory)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.detector.ExtractClientIP)

	var handler http.Handler = mux
	handler = s.limitMutating(handler)
	handler = s.flagSuspicious(handler)
	handler = log.Middleware(logger)(handler)
	handler = tracer.Middleware(handler)
	handler = headers.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// flagSuspicious logs probe-looking requests. They are served normally;
// the log line is what the operator alerts on.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "suspicious request",
				"method", r.Method, "path", r.URL.Path,
				"client_ip", s.detector.ExtractClientIP(r),
				"total_flagged", s.detector.SuspiciousCount())
		}
		next.ServeHTTP(w, r)
	})
}

// limitMutating applies per-IP rate limiting to writes only; reads are
// served from caches and stay cheap.
func (s *Server) limitMutating(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, nil)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			limited.ServeHTTP(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// Shutdown stops the rate limiter cleanup goroutine before draining the
// HTTP server. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// agentID extracts the caller identity header, trimmed. Blank means
// unauthenticated; the services layer enforces that.
func agentID(r *http.Request) string {
	return trimmedHeader(r, agentHeader)
}
