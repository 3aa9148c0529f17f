package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddong8/quant-future-sub001/internal/domain"
	"github.com/ddong8/quant-future-sub001/internal/usecase"
)

func stepWithCloses(t *testing.T, cash string, closes map[string][]string) *domain.StepContext {
	t.Helper()
	history := make(map[string][]domain.Bar, len(closes))
	var stepDate time.Time
	for symbol, prices := range closes {
		date := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
		for _, px := range prices {
			history[symbol] = append(history[symbol], domain.Bar{
				Symbol: symbol,
				Date:   date,
				Close:  d(px),
			})
			date = date.AddDate(0, 0, 1)
		}
		last := date.AddDate(0, 0, -1)
		if last.After(stepDate) {
			stepDate = last
		}
	}
	return &domain.StepContext{
		Date:    stepDate,
		History: history,
		Portfolio: domain.PortfolioSnapshot{
			Cash:      d(cash),
			Positions: make(map[string]domain.Position),
		},
	}
}

func TestRegistryResolveUnknownStrategy(t *testing.T) {
	r := usecase.DefaultStrategyRegistry()
	_, err := r.Resolve("nope")
	require.ErrorIs(t, err, domain.ErrStrategyNotFound)
}

func TestRegistryResolvesFreshInstances(t *testing.T) {
	r := usecase.DefaultStrategyRegistry()
	g1, err := r.Resolve("buy-and-hold")
	require.NoError(t, err)
	g2, err := r.Resolve("buy-and-hold")
	require.NoError(t, err)
	assert.NotSame(t, g1, g2, "generators carry per-run state and must not be shared")
	assert.ElementsMatch(t, []string{"buy-and-hold", "sma-cross"}, r.List())
}

func TestBuyAndHoldEqualAllocation(t *testing.T) {
	gen := usecase.NewBuyAndHold()
	step := stepWithCloses(t, "100000", map[string][]string{
		"AAA": {"100"},
		"BBB": {"50"},
	})

	signals, err := gen.Generate(context.Background(), step)
	require.NoError(t, err)
	require.Len(t, signals, 2)

	// Each symbol gets half of the spendable cash: 100000*0.995/2 = 49750.
	bySymbol := map[string]domain.TradingSignal{}
	for _, sig := range signals {
		assert.Equal(t, domain.SignalBuy, sig.Kind)
		bySymbol[sig.Symbol] = sig
	}
	assert.True(t, bySymbol["AAA"].Quantity.Equal(d("497")), "qty AAA = %s", bySymbol["AAA"].Quantity)
	assert.True(t, bySymbol["BBB"].Quantity.Equal(d("995")), "qty BBB = %s", bySymbol["BBB"].Quantity)

	// Second step: everything already bought, no further signals.
	again, err := gen.Generate(context.Background(), step)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestSMACrossBuysOnUpCross(t *testing.T) {
	gen := usecase.NewSMACross(2, 3)
	// SMA(2) moves from 10 to 13 while SMA(3) moves from 10 to 12: the short
	// average crosses above the long one on the last bar.
	step := stepWithCloses(t, "100000", map[string][]string{
		"AAA": {"10", "10", "10", "16"},
	})

	signals, err := gen.Generate(context.Background(), step)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, domain.SignalBuy, signals[0].Kind)
	assert.Equal(t, "AAA", signals[0].Symbol)
	// floor(100000*0.995/16) = 6218
	assert.True(t, signals[0].Quantity.Equal(d("6218")), "qty = %s", signals[0].Quantity)
}

func TestSMACrossClosesOnDownCross(t *testing.T) {
	gen := usecase.NewSMACross(2, 3)
	step := stepWithCloses(t, "0", map[string][]string{
		"AAA": {"20", "20", "20", "8"},
	})
	step.Portfolio.Positions["AAA"] = domain.Position{
		Symbol:   "AAA",
		Quantity: d("100"),
		AvgPrice: d("20"),
	}

	signals, err := gen.Generate(context.Background(), step)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, domain.SignalCloseLong, signals[0].Kind)
}

func TestSMACrossNeedsHistoryAndHolding(t *testing.T) {
	gen := usecase.NewSMACross(2, 3)

	// Too little history: longPeriod+1 bars required.
	short := stepWithCloses(t, "100000", map[string][]string{"AAA": {"10", "10", "16"}})
	signals, err := gen.Generate(context.Background(), short)
	require.NoError(t, err)
	assert.Empty(t, signals)

	// A down-cross while flat produces nothing.
	flat := stepWithCloses(t, "100000", map[string][]string{"AAA": {"20", "20", "20", "8"}})
	signals, err = gen.Generate(context.Background(), flat)
	require.NoError(t, err)
	assert.Empty(t, signals)

	// No cross at all.
	steady := stepWithCloses(t, "100000", map[string][]string{"AAA": {"10", "10", "10", "10"}})
	signals, err = gen.Generate(context.Background(), steady)
	require.NoError(t, err)
	assert.Empty(t, signals)
}
