package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vibecast/internal/logging"
	"vibecast/internal/pipeline"
	"vibecast/internal/progress"
	"vibecast/internal/tasks"
)

// Generator runs generation tasks.
type Generator interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// Journal reads the persisted task journal. May be nil.
type Journal interface {
	Get(ctx context.Context, id string) (tasks.Record, error)
	List(ctx context.Context, limit int) ([]tasks.Record, error)
}

// Options wires a Server.
type Options struct {
	Logger    *slog.Logger
	Observer  *progress.Observer
	Generator Generator
	Journal   Journal
	// KeepaliveInterval overrides the SSE keepalive cadence; zero means 15s.
	KeepaliveInterval time.Duration
}

// Server handles the HTTP surface.
type Server struct {
	logger    *slog.Logger
	observer  *progress.Observer
	generator Generator
	journal   Journal
	keepalive time.Duration
	router    chi.Router
}

// NewServer builds the Server and its route table.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	keepalive := opts.KeepaliveInterval
	if keepalive <= 0 {
		keepalive = 15 * time.Second
	}
	server := &Server{
		logger:    logging.NewComponentLogger(logger, "api"),
		observer:  opts.Observer,
		generator: opts.Generator,
		journal:   opts.Journal,
		keepalive: keepalive,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Get("/healthz", server.handleHealth)
	router.Route("/video", func(r chi.Router) {
		r.Post("/generate", server.handleGenerate)
		r.Get("/progress/{taskID}", server.handleProgress)
		r.Get("/status/{taskID}", server.handleStatus)
		r.Get("/tasks", server.handleTasks)
	})
	server.router = router
	return server
}

// Handler returns the root http handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving HTTP until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context, bind string) error {
	httpServer := &http.Server{
		Addr:              bind,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	s.logger.Info("api listening", logging.String("bind", bind))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
