// Package server exposes the workspace, the chat assistants and the table
// and chart views over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bichat/internal/logging"
	"bichat/internal/nlsql"
	"bichat/internal/store"
	"bichat/internal/table"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultMaxUpload = 32 << 20
	historyLimit     = 50
)

// Config holds configuration for the web server
type Config struct {
	Port           int
	Store          *store.Workspace
	Assistant      *nlsql.Assistant // nil when no API key is configured
	AllowedOrigins []string
	RequestTimeout time.Duration
	PageSize       int
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// Server serves the API.
type Server struct {
	cfg    Config
	store  *store.Workspace
	ai     *nlsql.Assistant
	logger *slog.Logger
}

// New creates a Server.
func New(cfg Config) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTimeout
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}
	if !table.ValidPageSize(cfg.PageSize) {
		cfg.PageSize = table.DefaultPageSize
	}
	return &Server{
		cfg:    cfg,
		store:  cfg.Store,
		ai:     cfg.Assistant,
		logger: logging.OrDiscard(cfg.Logger),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	r.Use(cors(s.cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/databases", s.Databases)
		r.Get("/tables", s.Tables)
		r.Get("/schema", s.Schema)
		r.Post("/query", s.Query)

		r.Post("/connections", s.Connect)
		r.Get("/connections/test", s.TestConnections)
		r.Delete("/connections/{name}", s.Disconnect)

		r.Post("/upload/null-columns", s.NullColumns)
		r.Post("/upload/preprocess", s.Preprocess)
		r.Post("/upload", s.Upload)
		r.Post("/ingest", s.Ingest)

		r.Get("/descriptions", s.Descriptions)
		r.Put("/descriptions", s.UpdateDescription)
		r.Post("/descriptions/generate", s.GenerateDescription)

		r.Post("/agent", s.Agent)
		r.Post("/multi-agent", s.MultiAgent)
		r.Get("/multi-agent/status", s.MultiAgentStatus)
		r.Get("/history", s.History)

		r.Post("/view/table", s.TableView)
		r.Post("/view/chart", s.ChartView)
	})

	return r
}

// requestLogger tags the logs of everything a request touches with its id.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := s.logger.With("request_id", middleware.GetReqID(r.Context()), "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(logging.WithLogger(r.Context(), l)))
	})
}

// Start listens on the configured port until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}
