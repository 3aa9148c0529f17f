package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ddong8/quant-future-sub001/internal/domain"
)

// GeneratorFactory builds a fresh signal generator for one run. Generators
// may carry per-run state, so the registry never shares instances between
// tasks.
type GeneratorFactory func() domain.SignalGenerator

// StrategyRegistry maps strategy ids to generator factories. It implements
// domain.SignalGeneratorResolver. The sandboxing machinery that turns user
// strategy code into a SignalGenerator lives outside the core; anything able
// to produce a factory can register here.
type StrategyRegistry struct {
	mu        sync.RWMutex
	factories map[string]GeneratorFactory
}

func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{factories: make(map[string]GeneratorFactory)}
}

// DefaultStrategyRegistry returns a registry with the builtin strategies.
func DefaultStrategyRegistry() *StrategyRegistry {
	r := NewStrategyRegistry()
	r.Register("buy-and-hold", func() domain.SignalGenerator {
		return NewBuyAndHold()
	})
	r.Register("sma-cross", func() domain.SignalGenerator {
		return NewSMACross(20, 50)
	})
	return r
}

func (r *StrategyRegistry) Register(id string, factory GeneratorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[id] = factory
}

func (r *StrategyRegistry) Resolve(strategyID string) (domain.SignalGenerator, error) {
	r.mu.RLock()
	factory, ok := r.factories[strategyID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrStrategyNotFound, strategyID)
	}
	return factory(), nil
}

// List returns the registered strategy ids.
func (r *StrategyRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	return ids
}

// Compile-time interface checks.
var (
	_ domain.SignalGeneratorResolver = (*StrategyRegistry)(nil)
	_ domain.SignalGenerator         = (*BuyAndHold)(nil)
	_ domain.SignalGenerator         = (*SMACross)(nil)
)

// cashHaircut keeps a sliver of cash unspent so commissions on a full-size
// order do not get the fill rejected.
var cashHaircut = decimal.RequireFromString("0.995")

// BuyAndHold buys an equal cash allocation of every symbol on its first
// visible bar and never trades again.
type BuyAndHold struct {
	bought map[string]bool
}

func NewBuyAndHold() *BuyAndHold {
	return &BuyAndHold{bought: make(map[string]bool)}
}

func (g *BuyAndHold) Generate(_ context.Context, step *domain.StepContext) ([]domain.TradingSignal, error) {
	var signals []domain.TradingSignal
	remaining := 0
	for symbol := range step.History {
		if !g.bought[symbol] {
			remaining++
		}
	}
	if remaining == 0 {
		return nil, nil
	}
	allocation := step.Portfolio.Cash.Mul(cashHaircut).Div(decimal.NewFromInt(int64(remaining)))
	for symbol := range step.History {
		if g.bought[symbol] {
			continue
		}
		bar, ok := step.LastBar(symbol)
		if !ok || !bar.Date.Equal(step.Date) || bar.Close.Sign() <= 0 {
			continue
		}
		qty := allocation.Div(bar.Close).Floor()
		if qty.Sign() <= 0 {
			continue
		}
		g.bought[symbol] = true
		signals = append(signals, domain.TradingSignal{
			Timestamp:  step.Date,
			Symbol:     symbol,
			Kind:       domain.SignalBuy,
			Quantity:   qty,
			Confidence: 1,
		})
	}
	return signals, nil
}

// SMACross goes long when the short-period moving average of closes crosses
// above the long-period one and closes the position on the opposite cross.
type SMACross struct {
	shortPeriod int
	longPeriod  int
}

func NewSMACross(short, long int) *SMACross {
	return &SMACross{shortPeriod: short, longPeriod: long}
}

func (g *SMACross) Generate(_ context.Context, step *domain.StepContext) ([]domain.TradingSignal, error) {
	var signals []domain.TradingSignal
	for symbol, bars := range step.History {
		if len(bars) < g.longPeriod+1 {
			continue
		}
		last, ok := step.LastBar(symbol)
		if !ok || !last.Date.Equal(step.Date) {
			continue
		}

		shortNow := smaOfCloses(bars, g.shortPeriod, 0)
		longNow := smaOfCloses(bars, g.longPeriod, 0)
		shortPrev := smaOfCloses(bars, g.shortPeriod, 1)
		longPrev := smaOfCloses(bars, g.longPeriod, 1)

		pos, holding := step.Portfolio.Positions[symbol]
		isLong := holding && pos.Quantity.Sign() > 0

		crossedUp := shortPrev.LessThanOrEqual(longPrev) && shortNow.GreaterThan(longNow)
		crossedDown := shortPrev.GreaterThanOrEqual(longPrev) && shortNow.LessThan(longNow)

		switch {
		case crossedUp && !isLong:
			qty := step.Portfolio.Cash.Mul(cashHaircut).Div(last.Close).Floor()
			if qty.Sign() <= 0 {
				continue
			}
			signals = append(signals, domain.TradingSignal{
				Timestamp:  step.Date,
				Symbol:     symbol,
				Kind:       domain.SignalBuy,
				Quantity:   qty,
				Confidence: 0.6,
			})
		case crossedDown && isLong:
			signals = append(signals, domain.TradingSignal{
				Timestamp:  step.Date,
				Symbol:     symbol,
				Kind:       domain.SignalCloseLong,
				Confidence: 0.6,
			})
		}
	}
	return signals, nil
}

// smaOfCloses averages the last n closes, skipping `back` bars from the end.
func smaOfCloses(bars []domain.Bar, n, back int) decimal.Decimal {
	end := len(bars) - back
	sum := decimal.Zero
	for _, bar := range bars[end-n : end] {
		sum = sum.Add(bar.Close)
	}
	return sum.Div(decimal.NewFromInt(int64(n)))
}
