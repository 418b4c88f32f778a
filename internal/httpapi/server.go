// Package httpapi serves the tables of a database as JSON resources, in the
// protocol the rest adapter speaks.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/satishbabariya/tablemap/adapter/rest"
	"github.com/satishbabariya/tablemap/orm"
)

// Server exposes one database over HTTP.
type Server struct {
	db       *orm.Database
	addr     string
	readOnly bool
	logger   *slog.Logger
}

// Config holds configuration for the server.
type Config struct {
	Database *orm.Database
	Addr     string
	// ReadOnly rejects every write with 405.
	ReadOnly bool
	Logger   *slog.Logger
}

// NewServer creates a server. A nil logger discards.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	return &Server{
		db:       cfg.Database,
		addr:     addr,
		readOnly: cfg.ReadOnly,
		logger:   logger,
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		s.echoRequestID,
		s.logRequests,
		middleware.Recoverer,
	)

	h := &handlers{db: s.db, logger: s.logger}

	r.Route(rest.MetaPrefix, func(r chi.Router) {
		r.Get("/tables", h.listTables)
		r.Get("/tables/{table}/columns", h.describeTable)
		r.Get("/tables/{table}/primary-key", h.primaryKey)
		r.Get("/tables/{table}/foreign-keys", h.foreignKeys)
	})

	r.Route("/{table}", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Group(func(r chi.Router) {
			if s.readOnly {
				r.Use(readOnly)
			}
			r.Post("/", h.create)
			r.Put("/", h.updateMany)
			r.Delete("/", h.deleteMany)
			r.Put("/{id}", h.update)
			r.Delete("/{id}", h.remove)
		})
	})

	return r
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting resource server", "addr", s.addr, "tables", len(s.db.Tables()))

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down resource server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) echoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(rest.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func readOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, errors.New("server is read-only"))
	})
}
