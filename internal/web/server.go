package web

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ddong8/quant-future-sub001/internal/domain"
	"github.com/ddong8/quant-future-sub001/internal/infrastructure/notify"
	"github.com/ddong8/quant-future-sub001/internal/usecase"
)

// Server adapts the scheduler and the persistence boundary to HTTP. The
// core mandates no wire format; this is the default JSON surface.
type Server struct {
	router       *http.ServeMux
	server       *http.Server
	scheduler    *usecase.Scheduler
	backtestRepo domain.BacktestRepository
	reportRepo   domain.ReportRepository
	hub          *notify.Hub
	logger       *zap.Logger
}

func NewServer(
	port int,
	scheduler *usecase.Scheduler,
	backtestRepo domain.BacktestRepository,
	reportRepo domain.ReportRepository,
	hub *notify.Hub,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:       http.NewServeMux(),
		scheduler:    scheduler,
		backtestRepo: backtestRepo,
		reportRepo:   reportRepo,
		hub:          hub,
		logger:       logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Backtests
	s.router.HandleFunc("POST /backtests", s.handleSubmitBacktest)
	s.router.HandleFunc("GET /backtests", s.handleListBacktests)
	s.router.HandleFunc("GET /backtests/{id}/report", s.handleGetReport)

	// Tasks
	s.router.HandleFunc("GET /tasks", s.handleListTasks)
	s.router.HandleFunc("GET /tasks/{id}", s.handleGetTask)
	s.router.HandleFunc("POST /tasks/{id}/pause", s.handleTaskAction)
	s.router.HandleFunc("POST /tasks/{id}/resume", s.handleTaskAction)
	s.router.HandleFunc("POST /tasks/{id}/cancel", s.handleTaskAction)
	s.router.HandleFunc("POST /tasks/{id}/restart", s.handleTaskAction)

	// Queue
	s.router.HandleFunc("GET /queue/stats", s.handleQueueStats)

	// Progress stream
	if s.hub != nil {
		s.router.HandleFunc("GET /ws", s.hub.ServeWS)
	}
}

// ServeHTTP exposes the router so the server can be mounted or driven as a
// plain http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
