package web

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ddong8/quant-future-sub001/internal/domain"
)

type submitRequest struct {
	BacktestID     string          `json:"backtest_id"`
	StrategyID     string          `json:"strategy_id"`
	Symbols        []string        `json:"symbols"`
	StartDate      string          `json:"start_date"` // yyyy-mm-dd
	EndDate        string          `json:"end_date"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	MinCommission  decimal.Decimal `json:"min_commission"`
	SlippageRate   decimal.Decimal `json:"slippage_rate"`
	Frequency      string          `json:"frequency"`
	Priority       string          `json:"priority"`
}

func (s *Server) handleSubmitBacktest(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	cfg, err := req.toConfig()
	if err != nil {
		s.writeError(w, err)
		return
	}

	task, err := s.scheduler.Submit(cfg, domain.ParsePriority(req.Priority))
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.backtestRepo != nil {
		if err := s.backtestRepo.SaveBacktest(r.Context(), cfg); err != nil {
			s.logger.Error("failed to persist backtest config",
				zap.String("backtest_id", cfg.ID), zap.Error(err))
		}
	}

	s.writeJSON(w, http.StatusCreated, task)
}

func (req *submitRequest) toConfig() (*domain.BacktestConfig, error) {
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, domain.ErrInvalidConfig
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, domain.ErrInvalidConfig
	}

	id := req.BacktestID
	if id == "" {
		id = uuid.NewString()
	}
	freq := domain.Frequency(req.Frequency)
	if freq == "" {
		freq = domain.FrequencyDaily
	}
	return &domain.BacktestConfig{
		ID:             id,
		StrategyID:     req.StrategyID,
		Symbols:        req.Symbols,
		StartDate:      start,
		EndDate:        end,
		InitialCapital: req.InitialCapital,
		CommissionRate: req.CommissionRate,
		MinCommission:  req.MinCommission,
		SlippageRate:   req.SlippageRate,
		Frequency:      freq,
		CreatedAt:      time.Now(),
	}, nil
}

func (s *Server) handleListBacktests(w http.ResponseWriter, r *http.Request) {
	if s.backtestRepo == nil {
		s.writeJSON(w, http.StatusOK, []any{})
		return
	}
	configs, err := s.backtestRepo.ListBacktests(r.Context())
	if err != nil {
		s.logger.Error("failed to list backtests", zap.Error(err))
		http.Error(w, "failed to list backtests", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.reportRepo == nil {
		http.Error(w, "report storage not configured", http.StatusNotFound)
		return
	}
	report, err := s.reportRepo.GetReport(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "report not found", http.StatusNotFound)
			return
		}
		s.logger.Error("failed to load report", zap.Error(err))
		http.Error(w, "failed to load report", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	status := domain.TaskStatus(strings.ToUpper(r.URL.Query().Get("status")))
	s.writeJSON(w, http.StatusOK, s.scheduler.List(status))
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.scheduler.Status(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleTaskAction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	action := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	var err error
	switch action {
	case "pause":
		err = s.scheduler.Pause(id)
	case "resume":
		err = s.scheduler.Resume(id)
	case "cancel":
		err = s.scheduler.Cancel(id)
	case "restart":
		err = s.scheduler.Restart(id)
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	task, err := s.scheduler.Status(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleQueueStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.scheduler.QueueStats())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError maps the core error taxonomy to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidConfig):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrDuplicateTask), errors.Is(err, domain.ErrInvalidAction):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrTaskNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		s.logger.Error("request failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
