package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Position is one open position in a simulation run. Quantity is signed:
// positive is long, negative is short. A position whose quantity reaches
// zero is removed from the ledger, never kept around with a stale average
// price. Only the portfolio ledger mutates positions.
type Position struct {
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	LastPrice     decimal.Decimal `json:"last_price"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`
	OpenedAt      time.Time       `json:"opened_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// MarketValue returns quantity * last price (negative for shorts).
func (p *Position) MarketValue() decimal.Decimal {
	return p.Quantity.Mul(p.LastPrice)
}

// Trade is the immutable record of one simulated fill. Created exactly once
// per fill and appended to the run's trade log.
type Trade struct {
	ID             string          `json:"id"`
	BacktestID     string          `json:"backtest_id,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	Symbol         string          `json:"symbol"`
	Side           Side            `json:"side"`
	Quantity       decimal.Decimal `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	Commission     decimal.Decimal `json:"commission"`
	RealizedPnL    decimal.Decimal `json:"realized_pnl"`
	PositionBefore decimal.Decimal `json:"position_before"`
	PositionAfter  decimal.Decimal `json:"position_after"`
}
