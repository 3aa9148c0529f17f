package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PerformanceReport is computed once at engine finalization and is immutable
// afterwards.
type PerformanceReport struct {
	BacktestID     string          `json:"backtest_id"`
	StrategyID     string          `json:"strategy_id"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
	FinalEquity    decimal.Decimal `json:"final_equity"`

	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	MaxDrawdown      float64 `json:"max_drawdown"` // reported as absolute value
	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`

	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	AvgWin        float64 `json:"avg_win"`
	AvgLoss       float64 `json:"avg_loss"`
	ProfitFactor  float64 `json:"profit_factor"`

	EquityCurve   []EquityPoint   `json:"equity_curve"`
	DrawdownCurve []DrawdownPoint `json:"drawdown_curve"`
	DailyReturns  []DailyReturn   `json:"daily_returns"`
	Trades        []*Trade        `json:"trades"`

	GeneratedAt time.Time `json:"generated_at"`
}
