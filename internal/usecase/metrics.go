package usecase

import (
	"math"
	"time"

	"github.com/ddong8/quant-future-sub001/internal/domain"
)

const (
	tradingDaysPerYear  = 252
	calendarDaysPerYear = 365

	// Finite sentinel reported as the profit factor when there are no losing
	// trades. Kept finite so reports survive JSON encoding.
	profitFactorCap = 9999.0
)

// BuildReport computes the performance report from the finished run's
// series and trade log. Pure function of its inputs; called once at engine
// finalization.
func BuildReport(
	cfg *domain.BacktestConfig,
	portfolio *Portfolio,
	equity []domain.EquityPoint,
	drawdowns []domain.DrawdownPoint,
	returns []domain.DailyReturn,
) *domain.PerformanceReport {
	report := &domain.PerformanceReport{
		BacktestID:     cfg.ID,
		StrategyID:     cfg.StrategyID,
		StartDate:      cfg.StartDate,
		EndDate:        cfg.EndDate,
		InitialCapital: cfg.InitialCapital,
		FinalEquity:    portfolio.Equity(),
		EquityCurve:    equity,
		DrawdownCurve:  drawdowns,
		DailyReturns:   returns,
		Trades:         portfolio.Trades(),
		GeneratedAt:    time.Now(),
	}

	initial := cfg.InitialCapital.InexactFloat64()
	final := report.FinalEquity.InexactFloat64()
	report.TotalReturn = (final - initial) / initial

	elapsedDays := cfg.EndDate.Sub(cfg.StartDate).Hours() / 24
	report.AnnualizedReturn = annualize(report.TotalReturn, elapsedDays)

	for _, dd := range drawdowns {
		if math.Abs(dd.Drawdown) > report.MaxDrawdown {
			report.MaxDrawdown = math.Abs(dd.Drawdown)
		}
	}

	daily := make([]float64, len(returns))
	for i, r := range returns {
		daily[i] = r.Return
	}
	report.SharpeRatio = sharpeRatio(daily)
	report.SortinoRatio = sortinoRatio(daily)

	fillTradeStats(report, portfolio.Trades())
	return report
}

// annualize converts a total return over elapsedDays to a yearly rate. For
// ranges under a day the total return is reported as-is.
func annualize(totalReturn, elapsedDays float64) float64 {
	if elapsedDays < 1 {
		return totalReturn
	}
	return math.Pow(1+totalReturn, calendarDaysPerYear/elapsedDays) - 1
}

func sharpeRatio(returns []float64) float64 {
	m := mean(returns)
	sd := stddev(returns, m)
	if sd == 0 {
		return 0
	}
	return m / sd * math.Sqrt(tradingDaysPerYear)
}

func sortinoRatio(returns []float64) float64 {
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return 0
	}
	sd := stddev(downside, mean(downside))
	if sd == 0 {
		return 0
	}
	return mean(returns) / sd * math.Sqrt(tradingDaysPerYear)
}

func fillTradeStats(report *domain.PerformanceReport, trades []*domain.Trade) {
	var grossProfit, grossLoss, winSum, lossSum float64
	for _, t := range trades {
		report.TotalTrades++
		pnl := t.RealizedPnL.InexactFloat64()
		switch {
		case t.RealizedPnL.Sign() > 0:
			report.WinningTrades++
			grossProfit += pnl
			winSum += pnl
		case t.RealizedPnL.Sign() < 0:
			report.LosingTrades++
			grossLoss += -pnl
			lossSum += pnl
		}
	}
	if report.TotalTrades > 0 {
		report.WinRate = float64(report.WinningTrades) / float64(report.TotalTrades)
	}
	if report.WinningTrades > 0 {
		report.AvgWin = winSum / float64(report.WinningTrades)
	}
	if report.LosingTrades > 0 {
		report.AvgLoss = lossSum / float64(report.LosingTrades)
	}
	switch {
	case grossLoss > 0:
		report.ProfitFactor = grossProfit / grossLoss
		if report.ProfitFactor > profitFactorCap {
			report.ProfitFactor = profitFactorCap
		}
	case grossProfit > 0:
		report.ProfitFactor = profitFactorCap
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the sample standard deviation; zero when fewer than two points.
func stddev(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}
