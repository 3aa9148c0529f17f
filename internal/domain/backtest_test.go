package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ddong8/quant-future-sub001/internal/domain"
)

func validConfig() *domain.BacktestConfig {
	return &domain.BacktestConfig{
		ID:             "bt-1",
		StrategyID:     "buy-and-hold",
		Symbols:        []string{"AAPL"},
		StartDate:      time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC),
		InitialCapital: decimal.NewFromInt(1000000),
		CommissionRate: decimal.RequireFromString("0.0003"),
		MinCommission:  decimal.NewFromInt(5),
		Frequency:      domain.FrequencyDaily,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.BacktestConfig)
		ok     bool
	}{
		{"valid", func(*domain.BacktestConfig) {}, true},
		{"empty frequency defaults", func(c *domain.BacktestConfig) { c.Frequency = "" }, true},
		{"missing id", func(c *domain.BacktestConfig) { c.ID = "" }, false},
		{"missing strategy", func(c *domain.BacktestConfig) { c.StrategyID = "" }, false},
		{"no symbols", func(c *domain.BacktestConfig) { c.Symbols = nil }, false},
		{"end before start", func(c *domain.BacktestConfig) { c.EndDate = c.StartDate.AddDate(0, 0, -1) }, false},
		{"end equals start", func(c *domain.BacktestConfig) { c.EndDate = c.StartDate }, false},
		{"zero capital", func(c *domain.BacktestConfig) { c.InitialCapital = decimal.Zero }, false},
		{"negative capital", func(c *domain.BacktestConfig) { c.InitialCapital = decimal.NewFromInt(-1) }, false},
		{"negative commission", func(c *domain.BacktestConfig) { c.CommissionRate = decimal.NewFromInt(-1) }, false},
		{"negative slippage", func(c *domain.BacktestConfig) { c.SlippageRate = decimal.NewFromInt(-1) }, false},
		{"unsupported frequency", func(c *domain.BacktestConfig) { c.Frequency = "1h" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if !errors.Is(err, domain.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestConfigTotalSteps(t *testing.T) {
	cfg := validConfig()
	if got := cfg.TotalSteps(); got != 30 {
		t.Fatalf("TotalSteps() = %d, want 30", got)
	}
	cfg.EndDate = cfg.StartDate.AddDate(0, 0, 1)
	if got := cfg.TotalSteps(); got != 2 {
		t.Fatalf("TotalSteps() = %d, want 2", got)
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	terminal := []domain.TaskStatus{domain.TaskCompleted, domain.TaskFailed, domain.TaskCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	live := []domain.TaskStatus{domain.TaskPending, domain.TaskRunning, domain.TaskPaused}
	for _, s := range live {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want domain.TaskPriority
	}{
		{"LOW", domain.PriorityLow},
		{"low", domain.PriorityLow},
		{"HIGH", domain.PriorityHigh},
		{"URGENT", domain.PriorityUrgent},
		{"NORMAL", domain.PriorityNormal},
		{"", domain.PriorityNormal},
		{"whatever", domain.PriorityNormal},
	}
	for _, tt := range tests {
		if got := domain.ParsePriority(tt.in); got != tt.want {
			t.Errorf("ParsePriority(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
