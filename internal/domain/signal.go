package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SignalType string

const (
	SignalBuy        SignalType = "BUY"
	SignalSell       SignalType = "SELL"
	SignalHold       SignalType = "HOLD"
	SignalCloseLong  SignalType = "CLOSE_LONG"
	SignalCloseShort SignalType = "CLOSE_SHORT"
)

// TradingSignal is produced by a signal generator for one step and consumed
// by the engine within the same step. Signals are not persisted.
type TradingSignal struct {
	Timestamp  time.Time         `json:"timestamp"`
	Symbol     string            `json:"symbol"`
	Kind       SignalType        `json:"kind"`
	Price      decimal.Decimal   `json:"price"`    // zero means "use the step's close"
	Quantity   decimal.Decimal   `json:"quantity"` // ignored for CLOSE_* signals
	Confidence float64           `json:"confidence"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// PortfolioSnapshot is the read-only view of portfolio state handed to a
// signal generator.
type PortfolioSnapshot struct {
	Cash      decimal.Decimal
	Equity    decimal.Decimal
	Positions map[string]Position
}

// StepContext is everything a signal generator may see at one step: the
// current date, the price history visible so far, and a portfolio snapshot.
type StepContext struct {
	Date      time.Time
	History   map[string][]Bar
	Portfolio PortfolioSnapshot
}

// LastBar returns the most recent visible bar for a symbol.
func (c *StepContext) LastBar(symbol string) (Bar, bool) {
	bars := c.History[symbol]
	if len(bars) == 0 {
		return Bar{}, false
	}
	return bars[len(bars)-1], true
}
