package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vitos/crypto_signal_bot/internal/metrics"
	"github.com/vitos/crypto_signal_bot/internal/usecase"
	"go.uber.org/zap"
)

type Server struct {
	router     *http.ServeMux
	server     *http.Server
	dispatcher *usecase.Dispatcher
	book       *usecase.PositionBook
	dedup      *usecase.DedupTable
	monitor    *usecase.ExitMonitor
	logger     *zap.Logger
}

func NewServer(
	port int,
	dispatcher *usecase.Dispatcher,
	book *usecase.PositionBook,
	dedup *usecase.DedupTable,
	monitor *usecase.ExitMonitor,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:     http.NewServeMux(),
		dispatcher: dispatcher,
		book:       book,
		dedup:      dedup,
		monitor:    monitor,
		logger:     logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Inbound signals
	s.router.HandleFunc("POST /signal", s.handleSignal)

	// Health
	s.router.HandleFunc("GET /ping", s.handlePing)

	// Status
	s.router.HandleFunc("GET /status", s.handleStatus)

	// Prometheus
	s.router.Handle("GET /metrics", metrics.Handler())
}

// Handler exposes the route table for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
