package domain

import (
	"context"
	"time"
)

// MarketDataProvider serves historical bars to the engine. GetBar returns
// ErrNoData (possibly wrapped) when no bar exists for the symbol on that
// date.
type MarketDataProvider interface {
	GetBar(ctx context.Context, symbol string, date time.Time) (*Bar, error)
}

// SignalGenerator is the fixed interface every strategy reduces to: a pure
// function of the step context to a signal list. Whatever sandboxing or
// validation machinery produces the implementation lives outside the core.
type SignalGenerator interface {
	Generate(ctx context.Context, step *StepContext) ([]TradingSignal, error)
}

// SignalGeneratorResolver resolves a strategy reference to a fresh signal
// generator instance for one run.
type SignalGeneratorResolver interface {
	Resolve(strategyID string) (SignalGenerator, error)
}

// Notifier receives task lifecycle and progress events. Delivery is
// fire-and-forget; a failing notifier must never affect simulation
// correctness.
type Notifier interface {
	OnProgress(taskID string, percent float64, status TaskStatus)
	OnCompleted(taskID string, report *PerformanceReport)
	OnFailed(taskID string, errMsg string, retryCount int)
}

// ResultSink receives the final performance report for persistence.
type ResultSink interface {
	SaveReport(ctx context.Context, backtestID string, report *PerformanceReport) error
}

// BacktestRepository persists backtest configurations.
type BacktestRepository interface {
	SaveBacktest(ctx context.Context, cfg *BacktestConfig) error
	GetBacktest(ctx context.Context, id string) (*BacktestConfig, error)
	ListBacktests(ctx context.Context) ([]*BacktestConfig, error)
}

// BarRepository stores historical bars. GetBar follows the
// MarketDataProvider contract so a bar store can back the engine directly.
type BarRepository interface {
	SaveBars(ctx context.Context, bars []Bar) error
	GetBar(ctx context.Context, symbol string, date time.Time) (*Bar, error)
	ListBars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error)
}

// ReportRepository reads back persisted performance reports.
type ReportRepository interface {
	GetReport(ctx context.Context, backtestID string) (*PerformanceReport, error)
	ListTrades(ctx context.Context, backtestID string) ([]*Trade, error)
}
