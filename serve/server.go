package serve

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	krrs "github.com/sapienskid/KRRS"
)

// Config holds server configuration.
type Config struct {
	Addr   string
	DBPath string
}

// Server is the HTTP front end: ask and index endpoints, invocation history,
// and an SSE stream of orchestrator step events.
type Server struct {
	orc       *krrs.Orchestrator
	indexer   *krrs.Indexer
	broker    *EventBroker
	store     Store
	cfg       Config
	startedAt time.Time
}

// New creates a new Server over a built orchestrator and indexer.
func New(orc *krrs.Orchestrator, indexer *krrs.Indexer, cfg Config) *Server {
	return &Server{
		orc:     orc,
		indexer: indexer,
		broker:  NewEventBroker(),
		cfg:     cfg,
	}
}

// Start initializes the store, wires the event stream, registers routes, and
// listens for HTTP requests. It blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.startedAt = time.Now()

	store, err := NewSQLiteStore(s.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	s.store = store
	if err := store.Init(); err != nil {
		return fmt.Errorf("init database: %w", err)
	}

	// Step events flow to SSE subscribers through the broker.
	s.orc.OnEvent(s.broker.Publish)

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: corsMiddleware(mux),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("serve started", "addr", s.cfg.Addr)
		fmt.Printf("API: http://localhost%s/api/stats\n", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error.
	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errCh:
		return err
	}

	// Close broker first so SSE handlers unblock and the HTTP server can
	// drain cleanly.
	s.broker.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	if err := store.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	return nil
}

// registerRoutes adds all API routes to the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ask", s.handleAsk)
	mux.HandleFunc("POST /api/index", s.handleIndex)
	mux.HandleFunc("GET /api/invocations", s.handleListInvocations)
	mux.HandleFunc("GET /api/invocations/{id}", s.handleGetInvocation)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/events", s.handleSSE)
}

// corsMiddleware adds permissive CORS headers for development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
