package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one OHLCV sample for a symbol on a given date.
type Bar struct {
	Symbol string          `json:"symbol"`
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

// EquityPoint is one per-step snapshot of total equity. The series is
// append-only, one entry per simulated step.
type EquityPoint struct {
	Date   time.Time       `json:"date"`
	Equity decimal.Decimal `json:"equity"`
	Cash   decimal.Decimal `json:"cash"`
	Return float64         `json:"return"` // cumulative return from initial capital
}

// DrawdownPoint records the decline from the running equity peak. The peak
// is monotonically non-decreasing across the series, so Drawdown <= 0.
type DrawdownPoint struct {
	Date     time.Time       `json:"date"`
	Equity   decimal.Decimal `json:"equity"`
	Peak     decimal.Decimal `json:"peak"`
	Drawdown float64         `json:"drawdown"`
}

// DailyReturn is the period return of one step against the previous step's
// equity.
type DailyReturn struct {
	Date   time.Time       `json:"date"`
	Equity decimal.Decimal `json:"equity"`
	Return float64         `json:"return"`
}
