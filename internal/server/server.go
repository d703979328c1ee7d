// Package server serves the joke-bot web UI and its JSON API.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/timvw/joke-bot/internal/jokes"
	"github.com/timvw/joke-bot/internal/logging"
	"github.com/timvw/joke-bot/internal/session"
	"go.uber.org/zap"
)

//go:embed web/index.html web/static/*
var embeddedWeb embed.FS

// Generator produces one joke per request. *jokes.Generator implements it.
type Generator interface {
	Generate(ctx context.Context, req jokes.Request) (jokes.Result, error)
}

// KeyValidator checks an API key against the provider. It returns nil for a
// valid key and an error wrapping gateway.ErrAuthentication for a rejected one.
type KeyValidator func(ctx context.Context, apiKey string) error

// Config holds the dependencies of a Server.
type Config struct {
	Generator Generator
	Validate  KeyValidator
	Sessions  *session.Store

	// RequestTimeout bounds each generation and validation call. Zero
	// disables the bound.
	RequestTimeout time.Duration

	// WriterTemperature and CriticTemperature seed the UI sliders and fill
	// in requests that omit them.
	WriterTemperature float64
	CriticTemperature float64

	// Provider is shown in the page header.
	Provider string

	Logger *zap.Logger
}

// Server is the HTTP front end.
type Server struct {
	cfg      Config
	logger   *zap.Logger
	page     *template.Template
	staticFS http.Handler
}

// New creates a Server.
func New(cfg Config) (*Server, error) {
	if cfg.Generator == nil {
		return nil, errors.New("generator required")
	}
	if cfg.Validate == nil {
		return nil, errors.New("key validator required")
	}
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewStore(0)
	}
	logger := logging.OrNop(cfg.Logger)

	page, err := template.New("index.html").Funcs(template.FuncMap{
		"label": jokes.Label,
	}).ParseFS(embeddedWeb, "web/index.html")
	if err != nil {
		return nil, err
	}
	sub, err := fs.Sub(embeddedWeb, "web/static")
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:      cfg,
		logger:   logger,
		page:     page,
		staticFS: http.StripPrefix("/static/", http.FileServer(http.FS(sub))),
	}, nil
}

// Routes returns the HTTP handler for the UI and API.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /static/", s.staticFS)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("POST /api/sessions", s.handleSessionCreate)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleSessionGet)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleSessionDelete)
	mux.HandleFunc("POST /api/sessions/{id}/validate", s.handleValidate)
	mux.HandleFunc("POST /api/sessions/{id}/start", s.handleStart)
	mux.HandleFunc("POST /api/sessions/{id}/reset", s.handleReset)
	mux.HandleFunc("POST /api/sessions/{id}/jokes", s.handleJoke)
	return s.logMiddleware(mux)
}

// ListenAndServe serves on addr until ctx is cancelled, sweeping expired
// sessions in the background, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sweep(ctx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting web server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down web server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) sweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.cfg.Sessions.Sweep(); n > 0 {
				s.logger.Debug("expired sessions removed", zap.Int("count", n))
			}
		}
	}
}

// withTimeout applies the configured request timeout, if any.
func (s *Server) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.RequestTimeout)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
