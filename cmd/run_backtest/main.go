package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ddong8/quant-future-sub001/internal/domain"
	"github.com/ddong8/quant-future-sub001/internal/infrastructure/logger"
	"github.com/ddong8/quant-future-sub001/internal/infrastructure/storage"
	"github.com/ddong8/quant-future-sub001/internal/usecase"
)

// Runs a single backtest synchronously against bars stored in sqlite and
// prints the performance report. Mostly a debugging aid; the daemon in
// cmd/server is the real entry point.
func main() {
	dbPath := flag.String("db", "backtest.db", "sqlite database with bar history")
	strategy := flag.String("strategy", "buy-and-hold", "strategy id")
	symbols := flag.String("symbols", "DEMO", "comma-separated symbol list")
	start := flag.String("start", "", "start date (yyyy-mm-dd)")
	end := flag.String("end", "", "end date (yyyy-mm-dd)")
	capital := flag.String("capital", "1000000", "initial capital")
	commissionRate := flag.String("commission-rate", "0.0003", "commission rate")
	minCommission := flag.String("min-commission", "5", "minimum commission per fill")
	slippageRate := flag.String("slippage-rate", "0.0001", "slippage rate")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	log, err := logger.NewLogger(*logLevel)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		fmt.Println("invalid -start date, expected yyyy-mm-dd")
		os.Exit(1)
	}
	endDate, err := time.Parse("2006-01-02", *end)
	if err != nil {
		fmt.Println("invalid -end date, expected yyyy-mm-dd")
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStore(*dbPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	cfg := &domain.BacktestConfig{
		ID:             uuid.NewString(),
		StrategyID:     *strategy,
		Symbols:        strings.Split(*symbols, ","),
		StartDate:      startDate,
		EndDate:        endDate,
		InitialCapital: decimal.RequireFromString(*capital),
		CommissionRate: decimal.RequireFromString(*commissionRate),
		MinCommission:  decimal.RequireFromString(*minCommission),
		SlippageRate:   decimal.RequireFromString(*slippageRate),
		Frequency:      domain.FrequencyDaily,
		CreatedAt:      time.Now(),
	}

	engine := usecase.NewEngine(cfg, usecase.DefaultStrategyRegistry(), store, log)
	report, err := engine.Run(context.Background())
	if err != nil {
		log.Fatal("Backtest failed", zap.Error(err))
	}

	printReport(report)
}

func printReport(r *domain.PerformanceReport) {
	fmt.Printf("Backtest %s (%s)\n", r.BacktestID, r.StrategyID)
	fmt.Printf("Period:            %s .. %s\n", r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"))
	fmt.Printf("Initial capital:   %s\n", r.InitialCapital)
	fmt.Printf("Final equity:      %s\n", r.FinalEquity.Round(2))
	fmt.Printf("Total return:      %.2f%%\n", r.TotalReturn*100)
	fmt.Printf("Annualized return: %.2f%%\n", r.AnnualizedReturn*100)
	fmt.Printf("Max drawdown:      %.2f%%\n", r.MaxDrawdown*100)
	fmt.Printf("Sharpe ratio:      %.3f\n", r.SharpeRatio)
	fmt.Printf("Sortino ratio:     %.3f\n", r.SortinoRatio)
	fmt.Printf("Trades:            %d (%d win / %d loss, win rate %.1f%%)\n",
		r.TotalTrades, r.WinningTrades, r.LosingTrades, r.WinRate*100)
	fmt.Printf("Avg win / loss:    %.2f / %.2f\n", r.AvgWin, r.AvgLoss)
	fmt.Printf("Profit factor:     %.2f\n", r.ProfitFactor)
}
