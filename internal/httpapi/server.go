package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/sshwatch/internal/domain"
	apimw "github.com/hamed0406/sshwatch/internal/httpapi/middleware"
	"github.com/hamed0406/sshwatch/internal/report"
	"github.com/hamed0406/sshwatch/internal/repo"
)

const shutdownTimeout = 5 * time.Second

// Server exposes the status store read-only over HTTP.
type Server struct {
	Logger *zap.Logger
	Store  repo.StatusReader
	Format report.Formatter
}

func NewServer(l *zap.Logger, store repo.StatusReader, format report.Formatter) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Logger: l, Store: store, Format: format}
}

// Router builds the handler. rpm and burst limit each client IP.
func (s *Server) Router(rpm, burst int) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)
	r.Use(apimw.RateLimit(rpm, burst))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/api/status", s.handleStatusJSON)
	r.Get("/api/status.txt", s.handleStatusText)

	return r
}

func (s *Server) handleStatusJSON(w http.ResponseWriter, r *http.Request) {
	states := s.Store.Snapshot()
	if states == nil {
		states = []domain.HostState{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(states); err != nil {
		s.Logger.Warn("http_encode_error", zap.Error(err))
	}
}

func (s *Server) handleStatusText(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.Format.Status(s.Store.Snapshot())))
}

// ListenAndServe serves h on addr until ctx is done, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("http_stopped")
	return nil
}
