package usecase_test

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddong8/quant-future-sub001/internal/domain"
	"github.com/ddong8/quant-future-sub001/internal/usecase"
)

func metricsConfig(days int) *domain.BacktestConfig {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	return &domain.BacktestConfig{
		ID:             "bt-metrics",
		StrategyID:     "test",
		Symbols:        []string{"X"},
		StartDate:      start,
		EndDate:        start.AddDate(0, 0, days),
		InitialCapital: d("100000"),
	}
}

func returnsSeries(rets ...float64) []domain.DailyReturn {
	out := make([]domain.DailyReturn, len(rets))
	for i, r := range rets {
		out[i] = domain.DailyReturn{Return: r}
	}
	return out
}

func TestBuildReportTotalAndAnnualizedReturn(t *testing.T) {
	cfg := metricsConfig(365)
	p := usecase.NewPortfolio(cfg.InitialCapital)
	// A single winning round trip: +10000 on the ledger.
	_, err := p.ApplyFill(ts, "X", domain.SideBuy, d("100"), d("100"), decimal.Zero)
	require.NoError(t, err)
	_, err = p.ApplyFill(ts, "X", domain.SideSell, d("100"), d("200"), decimal.Zero)
	require.NoError(t, err)

	report := usecase.BuildReport(cfg, p, nil, nil, nil)

	assert.InDelta(t, 0.1, report.TotalReturn, 1e-9)
	// One year elapsed, so annualized equals total.
	assert.InDelta(t, 0.1, report.AnnualizedReturn, 1e-9)
	assert.Equal(t, 2, report.TotalTrades)
	assert.Equal(t, 1, report.WinningTrades)
	assert.Equal(t, 0, report.LosingTrades)
	assert.InDelta(t, 0.5, report.WinRate, 1e-9)
}

func TestBuildReportSharpe(t *testing.T) {
	cfg := metricsConfig(3)
	p := usecase.NewPortfolio(cfg.InitialCapital)

	// mean 0.02, sample stddev 0.01 -> sharpe = 2 * sqrt(252)
	report := usecase.BuildReport(cfg, p, nil, nil, returnsSeries(0.01, 0.02, 0.03))
	assert.InDelta(t, 2*math.Sqrt(252), report.SharpeRatio, 1e-9)

	// Constant returns: stddev 0, ratio defined as 0.
	report = usecase.BuildReport(cfg, p, nil, nil, returnsSeries(0.01, 0.01, 0.01))
	assert.Zero(t, report.SharpeRatio)
}

func TestBuildReportSortino(t *testing.T) {
	cfg := metricsConfig(3)
	p := usecase.NewPortfolio(cfg.InitialCapital)

	// No negative returns: downside set empty, ratio defined as 0.
	report := usecase.BuildReport(cfg, p, nil, nil, returnsSeries(0.01, 0.02))
	assert.Zero(t, report.SortinoRatio)

	// Downside of {-0.01, -0.03}: mean -0.02, sample stddev sqrt(0.0002).
	rets := returnsSeries(0.02, -0.01, 0.04, -0.03)
	report = usecase.BuildReport(cfg, p, nil, nil, rets)
	wantDownsideSD := math.Sqrt(0.0002)
	want := 0.005 / wantDownsideSD * math.Sqrt(252)
	assert.InDelta(t, want, report.SortinoRatio, 1e-9)
}

func TestBuildReportMaxDrawdown(t *testing.T) {
	cfg := metricsConfig(3)
	p := usecase.NewPortfolio(cfg.InitialCapital)

	drawdowns := []domain.DrawdownPoint{
		{Drawdown: 0},
		{Drawdown: -0.1},
		{Drawdown: -0.25},
		{Drawdown: -0.05},
	}
	report := usecase.BuildReport(cfg, p, nil, drawdowns, nil)
	assert.InDelta(t, 0.25, report.MaxDrawdown, 1e-9)
}

func TestBuildReportProfitFactorSentinel(t *testing.T) {
	cfg := metricsConfig(3)
	p := usecase.NewPortfolio(cfg.InitialCapital)
	_, err := p.ApplyFill(ts, "X", domain.SideBuy, d("10"), d("100"), decimal.Zero)
	require.NoError(t, err)
	_, err = p.ApplyFill(ts, "X", domain.SideSell, d("10"), d("150"), decimal.Zero)
	require.NoError(t, err)

	report := usecase.BuildReport(cfg, p, nil, nil, nil)

	// No losing trades: the factor is the finite sentinel, not +Inf.
	assert.Equal(t, 9999.0, report.ProfitFactor)
	assert.False(t, math.IsInf(report.ProfitFactor, 1))
}

func TestBuildReportNoTrades(t *testing.T) {
	cfg := metricsConfig(3)
	p := usecase.NewPortfolio(cfg.InitialCapital)

	report := usecase.BuildReport(cfg, p, nil, nil, nil)

	assert.Zero(t, report.TotalTrades)
	assert.Zero(t, report.WinRate)
	assert.Zero(t, report.ProfitFactor)
	assert.Zero(t, report.TotalReturn)
}
