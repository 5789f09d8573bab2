package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vitos/trailing_stop/internal/domain"
	"github.com/vitos/trailing_stop/internal/usecase"
	"go.uber.org/zap"
)

// StatusProvider is satisfied by *usecase.PriceFeedLoop.
type StatusProvider interface {
	Status() usecase.Status
}

type Server struct {
	router          *http.ServeMux
	server          *http.Server
	status          StatusProvider
	replacementRepo domain.ReplacementRepository
	tradeRepo       domain.AccountEventRepository
	metrics         http.Handler
	logger          *zap.Logger
}

func NewServer(
	port int,
	status StatusProvider,
	replacementRepo domain.ReplacementRepository,
	tradeRepo domain.AccountEventRepository,
	metrics http.Handler,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:          http.NewServeMux(),
		status:          status,
		replacementRepo: replacementRepo,
		tradeRepo:       tradeRepo,
		metrics:         metrics,
		logger:          logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /healthz", s.handleHealth)

	// Trailing state
	s.router.HandleFunc("GET /api/status", s.handleStatus)

	// Journal
	s.router.HandleFunc("GET /api/replacements", s.handleListReplacements)
	s.router.HandleFunc("GET /api/trades", s.handleListTrades)

	if s.metrics != nil {
		s.router.Handle("GET /metrics", s.metrics)
	}
}

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
