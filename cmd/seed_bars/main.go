package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ddong8/quant-future-sub001/internal/infrastructure/logger"
	"github.com/ddong8/quant-future-sub001/internal/infrastructure/marketdata"
	"github.com/ddong8/quant-future-sub001/internal/infrastructure/storage"
)

// Seeds the bars table with a deterministic random walk so backtests can be
// exercised without a market data feed.
func main() {
	dbPath := flag.String("db", "backtest.db", "sqlite database to seed")
	symbols := flag.String("symbols", "DEMO", "comma-separated symbol list")
	start := flag.String("start", "2022-01-01", "start date (yyyy-mm-dd)")
	end := flag.String("end", "2023-12-31", "end date (yyyy-mm-dd)")
	price := flag.String("price", "100", "starting price")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	log, err := logger.NewLogger("info")
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		log.Fatal("invalid -start date", zap.String("value", *start))
	}
	endDate, err := time.Parse("2006-01-02", *end)
	if err != nil {
		log.Fatal("invalid -end date", zap.String("value", *end))
	}

	store, err := storage.NewSQLiteStore(*dbPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	walk := marketdata.RandomWalk{Drift: 0.0003, Volatility: 0.02}
	startPrice := decimal.RequireFromString(*price)

	for i, symbol := range strings.Split(*symbols, ",") {
		bars := walk.Generate(symbol, startDate, endDate, startPrice, *seed+int64(i))
		if err := store.SaveBars(context.Background(), bars); err != nil {
			log.Fatal("Failed to save bars", zap.String("symbol", symbol), zap.Error(err))
		}
		log.Info("seeded bars", zap.String("symbol", symbol), zap.Int("count", len(bars)))
	}
}
