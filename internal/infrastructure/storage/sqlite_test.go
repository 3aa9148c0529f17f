package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddong8/quant-future-sub001/internal/domain"
	"github.com/ddong8/quant-future-sub001/internal/infrastructure/storage"
)

var ctx = context.Background()

func newStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(day int) time.Time {
	return time.Date(2023, 6, day, 0, 0, 0, 0, time.UTC)
}

func TestBacktestRoundTrip(t *testing.T) {
	store := newStore(t)

	cfg := &domain.BacktestConfig{
		ID:             "bt-1",
		StrategyID:     "sma-cross",
		Symbols:        []string{"AAPL", "MSFT"},
		StartDate:      date(1),
		EndDate:        date(30),
		InitialCapital: d("1000000"),
		CommissionRate: d("0.0003"),
		MinCommission:  d("5"),
		SlippageRate:   d("0.0001"),
		Frequency:      domain.FrequencyDaily,
		CreatedAt:      date(1),
	}
	require.NoError(t, store.SaveBacktest(ctx, cfg))

	got, err := store.GetBacktest(ctx, "bt-1")
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, got.ID)
	assert.Equal(t, cfg.StrategyID, got.StrategyID)
	assert.Equal(t, cfg.Symbols, got.Symbols)
	assert.True(t, got.StartDate.Equal(cfg.StartDate))
	assert.True(t, got.EndDate.Equal(cfg.EndDate))
	assert.True(t, got.InitialCapital.Equal(cfg.InitialCapital))
	assert.True(t, got.CommissionRate.Equal(cfg.CommissionRate))
	assert.True(t, got.MinCommission.Equal(cfg.MinCommission))
	assert.True(t, got.SlippageRate.Equal(cfg.SlippageRate))
	assert.Equal(t, domain.FrequencyDaily, got.Frequency)
}

func TestGetBacktestMissing(t *testing.T) {
	store := newStore(t)
	_, err := store.GetBacktest(ctx, "missing")
	require.Error(t, err)
}

func TestListBacktestsNewestFirst(t *testing.T) {
	store := newStore(t)

	for i, id := range []string{"bt-old", "bt-new"} {
		require.NoError(t, store.SaveBacktest(ctx, &domain.BacktestConfig{
			ID:             id,
			StrategyID:     "buy-and-hold",
			Symbols:        []string{"AAPL"},
			StartDate:      date(1),
			EndDate:        date(10),
			InitialCapital: d("1000"),
			CommissionRate: d("0"),
			MinCommission:  d("0"),
			SlippageRate:   d("0"),
			Frequency:      domain.FrequencyDaily,
			CreatedAt:      date(1 + i),
		}))
	}

	configs, err := store.ListBacktests(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, "bt-new", configs[0].ID)
	assert.Equal(t, "bt-old", configs[1].ID)
}

func TestBarsRoundTrip(t *testing.T) {
	store := newStore(t)

	bars := []domain.Bar{
		{Symbol: "AAPL", Date: date(1), Open: d("100"), High: d("105"), Low: d("99"), Close: d("104"), Volume: d("10000")},
		{Symbol: "AAPL", Date: date(2), Open: d("104"), High: d("108"), Low: d("103"), Close: d("107"), Volume: d("12000")},
		{Symbol: "MSFT", Date: date(1), Open: d("300"), High: d("301"), Low: d("298"), Close: d("299"), Volume: d("8000")},
	}
	require.NoError(t, store.SaveBars(ctx, bars))

	bar, err := store.GetBar(ctx, "AAPL", date(2))
	require.NoError(t, err)
	assert.True(t, bar.Close.Equal(d("107")))
	assert.True(t, bar.Volume.Equal(d("12000")))

	listed, err := store.ListBars(ctx, "AAPL", date(1), date(31))
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.True(t, listed[0].Date.Before(listed[1].Date))
}

func TestGetBarMissingIsNoData(t *testing.T) {
	store := newStore(t)
	_, err := store.GetBar(ctx, "AAPL", date(1))
	require.ErrorIs(t, err, domain.ErrNoData)
}

func TestSaveBarsReplacesOnConflict(t *testing.T) {
	store := newStore(t)

	first := domain.Bar{Symbol: "AAPL", Date: date(1), Open: d("1"), High: d("1"), Low: d("1"), Close: d("100"), Volume: d("1")}
	require.NoError(t, store.SaveBars(ctx, []domain.Bar{first}))

	first.Close = d("200")
	require.NoError(t, store.SaveBars(ctx, []domain.Bar{first}))

	bar, err := store.GetBar(ctx, "AAPL", date(1))
	require.NoError(t, err)
	assert.True(t, bar.Close.Equal(d("200")))
}

func TestReportRoundTrip(t *testing.T) {
	store := newStore(t)

	report := &domain.PerformanceReport{
		BacktestID:       "bt-1",
		StrategyID:       "sma-cross",
		InitialCapital:   d("1000000"),
		FinalEquity:      d("1100000"),
		TotalReturn:      0.1,
		AnnualizedReturn: 0.12,
		MaxDrawdown:      0.05,
		SharpeRatio:      1.8,
		SortinoRatio:     2.1,
		TotalTrades:      2,
		WinningTrades:    1,
		LosingTrades:     1,
		WinRate:          0.5,
		AvgWin:           500,
		AvgLoss:          200,
		ProfitFactor:     2.5,
		StartDate:        date(1),
		EndDate:          date(30),
		EquityCurve: []domain.EquityPoint{
			{Date: date(1), Equity: d("1000000"), Cash: d("1000000")},
			{Date: date(30), Equity: d("1100000"), Cash: d("1100000"), Return: 0.1},
		},
		DrawdownCurve: []domain.DrawdownPoint{
			{Date: date(1), Equity: d("1000000"), Peak: d("1000000")},
		},
		DailyReturns: []domain.DailyReturn{
			{Date: date(1), Equity: d("1000000")},
		},
		Trades: []*domain.Trade{{
			ID:             "trade-1",
			BacktestID:     "bt-1",
			Timestamp:      date(2),
			Symbol:         "AAPL",
			Side:           domain.SideBuy,
			Quantity:       d("100"),
			Price:          d("104"),
			Commission:     d("5"),
			RealizedPnL:    d("0"),
			PositionBefore: d("0"),
			PositionAfter:  d("100"),
		}},
		GeneratedAt: date(30),
	}
	require.NoError(t, store.SaveReport(ctx, "bt-1", report))

	got, err := store.GetReport(ctx, "bt-1")
	require.NoError(t, err)
	assert.Equal(t, "bt-1", got.BacktestID)
	assert.Equal(t, "sma-cross", got.StrategyID)
	assert.True(t, got.FinalEquity.Equal(d("1100000")))
	assert.Equal(t, 0.1, got.TotalReturn)
	assert.Equal(t, 2.5, got.ProfitFactor)
	assert.Len(t, got.EquityCurve, 2)
	assert.Len(t, got.DrawdownCurve, 1)
	assert.Len(t, got.DailyReturns, 1)

	require.Len(t, got.Trades, 1)
	trade := got.Trades[0]
	assert.Equal(t, "trade-1", trade.ID)
	assert.Equal(t, domain.SideBuy, trade.Side)
	assert.True(t, trade.Quantity.Equal(d("100")))
	assert.True(t, trade.RealizedPnL.Equal(d("0")))
}

func TestSaveReportReplacesTrades(t *testing.T) {
	store := newStore(t)

	base := &domain.PerformanceReport{
		BacktestID:     "bt-1",
		StrategyID:     "buy-and-hold",
		InitialCapital: d("1000"),
		FinalEquity:    d("1000"),
		StartDate:      date(1),
		EndDate:        date(10),
		EquityCurve:    []domain.EquityPoint{},
		DrawdownCurve:  []domain.DrawdownPoint{},
		DailyReturns:   []domain.DailyReturn{},
		Trades: []*domain.Trade{
			{ID: "t1", Timestamp: date(2), Symbol: "AAPL", Side: domain.SideBuy, Quantity: d("1"), Price: d("1"), Commission: d("0"), RealizedPnL: d("0"), PositionBefore: d("0"), PositionAfter: d("1")},
			{ID: "t2", Timestamp: date(3), Symbol: "AAPL", Side: domain.SideSell, Quantity: d("1"), Price: d("1"), Commission: d("0"), RealizedPnL: d("0"), PositionBefore: d("1"), PositionAfter: d("0")},
		},
		GeneratedAt: date(10),
	}
	require.NoError(t, store.SaveReport(ctx, "bt-1", base))

	base.Trades = base.Trades[:1]
	require.NoError(t, store.SaveReport(ctx, "bt-1", base))

	trades, err := store.ListTrades(ctx, "bt-1")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "t1", trades[0].ID)
}

func TestGetReportMissing(t *testing.T) {
	store := newStore(t)
	_, err := store.GetReport(ctx, "missing")
	require.Error(t, err)
}
