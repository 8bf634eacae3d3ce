package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"designcal/internal/apperr"
	"designcal/internal/config"
	appLog "designcal/internal/log"
	"designcal/internal/model"
	"designcal/internal/store"
)

// FeedProvider supplies the read-only appointments imported from external
// calendars. *scheduler.Refresher implements it.
type FeedProvider interface {
	Appointments(date string) []model.Appointment
	AllDay(date string) []model.Occurrence
}

// Server exposes the appointment book, day layouts and calendar pages.
type Server struct {
	cfg   *config.Config
	repo  store.Repository
	feeds FeedProvider
	mux   *http.ServeMux
	now   func() time.Time

	// Per-date cache of /api/layout responses; cleared on every write.
	layoutMu    sync.RWMutex
	layoutCache map[string]layoutCacheEntry
}

type layoutCacheEntry struct {
	resp      layoutResponse
	updatedAt time.Time
}

const layoutCacheTTL = 30 * time.Second

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// NewServer wires the routes. feeds may be nil when no feed is configured.
func NewServer(cfg *config.Config, repo store.Repository, feeds FeedProvider) *Server {
	s := &Server{
		cfg:         cfg,
		repo:        repo,
		feeds:       feeds,
		mux:         http.NewServeMux(),
		now:         time.Now,
		layoutCache: make(map[string]layoutCacheEntry),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler, wrapped in Basic Auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/appointments", s.handleListAppointments)
	s.mux.HandleFunc("POST /api/appointments", s.handleCreateAppointment)
	s.mux.HandleFunc("GET /api/appointments/{id}", s.handleGetAppointment)
	s.mux.HandleFunc("PUT /api/appointments/{id}", s.handleUpdateAppointment)
	s.mux.HandleFunc("DELETE /api/appointments/{id}", s.handleDeleteAppointment)

	s.mux.HandleFunc("GET /api/layout", s.handleDayLayout)
	s.mux.HandleFunc("POST /api/layout", s.handleComputeLayout)

	s.mux.HandleFunc("GET /calendar", s.handleCalendar)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
}

// ListenAndServe listens on cfg.Listen and serves handler until ctx is
// canceled.
func ListenAndServe(ctx context.Context, cfg *config.Config, handler http.Handler) error {
	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Listen, err)
	}
	return Serve(ctx, ln, handler)
}

// Serve serves handler on ln until ctx is canceled, then shuts down
// gracefully.
func Serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth rather than locking everyone out.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware protects everything except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="designcal", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, apperr.New("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePreview serves the last captured calendar screenshot.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.PreviewPath())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, e *apperr.Error) {
	writeJSON(w, status, e)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
