// Package server provides the HTTP API over the task hub core: model catalog, cost
// estimates, per-user model preferences and result normalization.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/taskhub/internal/catalog"
	"github.com/jonathan/taskhub/internal/config"
	"github.com/jonathan/taskhub/internal/estimate"
	"github.com/jonathan/taskhub/internal/preferences"
	"github.com/jonathan/taskhub/internal/results"
	"github.com/jonathan/taskhub/internal/server/middleware"
	"github.com/jonathan/taskhub/internal/server/ratelimit"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService

	catalog     *catalog.Catalog
	estimator   *estimate.Estimator
	normalizer  *results.Normalizer
	persistence preferences.Persistence

	storesMu sync.Mutex
	stores   map[uuid.UUID]*preferences.Store
}

// Config holds server configuration
type Config struct {
	Port        int
	JWT         *config.JWTConfig
	RateLimit   *ratelimit.Config
	Persistence preferences.Persistence
	Catalog     *catalog.Catalog
	Estimator   *estimate.Estimator
	Normalizer  *results.Normalizer
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.JWT == nil {
		return nil, fmt.Errorf("JWT configuration is required")
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.Estimator == nil {
		cfg.Estimator = estimate.New(cfg.Catalog)
	}
	if cfg.Normalizer == nil {
		cfg.Normalizer = results.New(nil, cfg.Catalog)
	}
	if cfg.Persistence == nil {
		cfg.Persistence = preferences.NewMemoryPersistence()
	}
	if cfg.RateLimit == nil {
		cfg.RateLimit = ratelimit.LoadConfig()
	}

	s := &Server{
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		jwtService:  NewJWTService(cfg.JWT),
		catalog:     cfg.Catalog,
		estimator:   cfg.Estimator,
		normalizer:  cfg.Normalizer,
		persistence: cfg.Persistence,
		stores:      make(map[uuid.UUID]*preferences.Store),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the full middleware chain and routes.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /models", s.handleModels)
	api.HandleFunc("GET /tasks", s.handleTasks)
	api.HandleFunc("POST /estimate", s.handleEstimate)
	api.HandleFunc("GET /preferences", s.handleGetPreferences)
	api.HandleFunc("PUT /preferences/{task}", s.handleSetPreference)
	api.HandleFunc("DELETE /preferences", s.handleResetPreferences)
	api.HandleFunc("POST /results/normalize", s.handleNormalize)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("/", middleware.AuthMiddleware(s.jwtService.AsTokenValidator())(api))

	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// JWT returns the token service, used to issue tokens for local clients.
func (s *Server) JWT() *JWTService {
	return s.jwtService
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.rateLimiter.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Server starting on %s", ln.Addr())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Println("Server stopped")
	return nil
}

// storeFor returns the preference store of a user, loading it on first use. A store
// whose snapshot could not be read is served for this request only, so the next
// request loads again.
func (s *Server) storeFor(ctx context.Context, userID uuid.UUID) *preferences.Store {
	s.storesMu.Lock()
	defer s.storesMu.Unlock()

	if st, ok := s.stores[userID]; ok {
		return st
	}
	st := preferences.New(context.WithoutCancel(ctx), preferences.NewScoped(s.persistence, userID.String()), s.catalog)
	if err := st.LoadErr(); err != nil {
		log.Printf("[server] Preferences for %s not cached: %v", userID, err)
		return st
	}
	s.stores[userID] = st
	return st
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects clients over their limit with 429
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(clientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = "-"
		}
		log.Printf("[%s] %s %d %v req=%s", r.Method, r.URL.Path, rec.status, time.Since(start), requestID)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// clientID identifies the caller for rate limiting by remote IP.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		seconds := max(int(info.RetryAfter.Seconds()), 1)
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// errResponse maps err to a status and writes it with its code and message.
func (s *Server) errResponse(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("[server] internal error: %v", err)
		message = "internal server error"
	}
	s.jsonResponse(w, status, map[string]string{"error": errorCode(err), "message": message})
}
