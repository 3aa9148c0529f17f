package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Frequency string

const (
	FrequencyDaily Frequency = "1d"
)

// BacktestConfig is the immutable input of one simulation run. It is owned
// by the caller; the engine only reads it.
type BacktestConfig struct {
	ID             string
	StrategyID     string
	Symbols        []string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital decimal.Decimal
	CommissionRate decimal.Decimal
	MinCommission  decimal.Decimal
	SlippageRate   decimal.Decimal
	Frequency      Frequency
	CreatedAt      time.Time
}

// Validate checks the config at submission time. A config that fails here
// never becomes a task.
func (c *BacktestConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: missing backtest id", ErrInvalidConfig)
	}
	if c.StrategyID == "" {
		return fmt.Errorf("%w: missing strategy id", ErrInvalidConfig)
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("%w: empty symbol list", ErrInvalidConfig)
	}
	if !c.EndDate.After(c.StartDate) {
		return fmt.Errorf("%w: end date %s is not after start date %s",
			ErrInvalidConfig, c.EndDate.Format("2006-01-02"), c.StartDate.Format("2006-01-02"))
	}
	if c.InitialCapital.Sign() <= 0 {
		return fmt.Errorf("%w: initial capital must be positive, got %s", ErrInvalidConfig, c.InitialCapital)
	}
	if c.CommissionRate.Sign() < 0 || c.MinCommission.Sign() < 0 || c.SlippageRate.Sign() < 0 {
		return fmt.Errorf("%w: commission and slippage rates must be non-negative", ErrInvalidConfig)
	}
	if c.Frequency != "" && c.Frequency != FrequencyDaily {
		return fmt.Errorf("%w: unsupported frequency %q", ErrInvalidConfig, c.Frequency)
	}
	return nil
}

// TotalSteps returns the number of simulated steps (calendar days, inclusive
// of both endpoints).
func (c *BacktestConfig) TotalSteps() int {
	start := c.StartDate.Truncate(24 * time.Hour)
	end := c.EndDate.Truncate(24 * time.Hour)
	return int(end.Sub(start).Hours()/24) + 1
}
