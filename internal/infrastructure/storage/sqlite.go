package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/ddong8/quant-future-sub001/internal/domain"
)

// SQLiteStore persists backtest configs, historical bars and finished
// performance reports. It implements domain.BacktestRepository,
// domain.BarRepository, domain.ResultSink and domain.ReportRepository.
// Monetary values are stored as TEXT to keep decimal exactness.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS backtests (
			id TEXT PRIMARY KEY,
			strategy_id TEXT NOT NULL,
			symbols TEXT NOT NULL,
			start_date DATETIME NOT NULL,
			end_date DATETIME NOT NULL,
			initial_capital TEXT NOT NULL,
			commission_rate TEXT NOT NULL,
			min_commission TEXT NOT NULL,
			slippage_rate TEXT NOT NULL,
			frequency TEXT NOT NULL DEFAULT '1d',
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS bars (
			symbol TEXT NOT NULL,
			date DATETIME NOT NULL,
			open TEXT NOT NULL,
			high TEXT NOT NULL,
			low TEXT NOT NULL,
			close TEXT NOT NULL,
			volume TEXT NOT NULL,
			PRIMARY KEY (symbol, date)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_bars_symbol_date ON bars(symbol, date);`,
		`CREATE TABLE IF NOT EXISTS reports (
			backtest_id TEXT PRIMARY KEY,
			strategy_id TEXT NOT NULL,
			initial_capital TEXT NOT NULL,
			final_equity TEXT NOT NULL,
			total_return REAL NOT NULL,
			annualized_return REAL NOT NULL,
			max_drawdown REAL NOT NULL,
			sharpe_ratio REAL NOT NULL,
			sortino_ratio REAL NOT NULL,
			total_trades INTEGER NOT NULL,
			winning_trades INTEGER NOT NULL,
			losing_trades INTEGER NOT NULL,
			win_rate REAL NOT NULL,
			avg_win REAL NOT NULL,
			avg_loss REAL NOT NULL,
			profit_factor REAL NOT NULL,
			start_date DATETIME NOT NULL,
			end_date DATETIME NOT NULL,
			equity_curve TEXT NOT NULL,
			drawdown_curve TEXT NOT NULL,
			daily_returns TEXT NOT NULL,
			generated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS report_trades (
			id TEXT PRIMARY KEY,
			backtest_id TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity TEXT NOT NULL,
			price TEXT NOT NULL,
			commission TEXT NOT NULL,
			realized_pnl TEXT NOT NULL,
			position_before TEXT NOT NULL,
			position_after TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_report_trades_backtest ON report_trades(backtest_id);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	return nil
}

// BacktestRepository Implementation

func (s *SQLiteStore) SaveBacktest(ctx context.Context, cfg *domain.BacktestConfig) error {
	query := `INSERT OR REPLACE INTO backtests (id, strategy_id, symbols, start_date, end_date, initial_capital, commission_rate, min_commission, slippage_rate, frequency, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		cfg.ID, cfg.StrategyID, strings.Join(cfg.Symbols, ","), cfg.StartDate, cfg.EndDate,
		cfg.InitialCapital.String(), cfg.CommissionRate.String(), cfg.MinCommission.String(),
		cfg.SlippageRate.String(), string(cfg.Frequency), cfg.CreatedAt)
	return err
}

func (s *SQLiteStore) GetBacktest(ctx context.Context, id string) (*domain.BacktestConfig, error) {
	query := `SELECT id, strategy_id, symbols, start_date, end_date, initial_capital, commission_rate, min_commission, slippage_rate, frequency, created_at FROM backtests WHERE id = ?`
	return scanBacktest(s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStore) ListBacktests(ctx context.Context) ([]*domain.BacktestConfig, error) {
	query := `SELECT id, strategy_id, symbols, start_date, end_date, initial_capital, commission_rate, min_commission, slippage_rate, frequency, created_at FROM backtests ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*domain.BacktestConfig
	for rows.Next() {
		cfg, err := scanBacktest(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBacktest(row rowScanner) (*domain.BacktestConfig, error) {
	var cfg domain.BacktestConfig
	var symbols, capital, commRate, minComm, slippage, freq string
	err := row.Scan(&cfg.ID, &cfg.StrategyID, &symbols, &cfg.StartDate, &cfg.EndDate,
		&capital, &commRate, &minComm, &slippage, &freq, &cfg.CreatedAt)
	if err != nil {
		return nil, err
	}
	cfg.Symbols = strings.Split(symbols, ",")
	cfg.Frequency = domain.Frequency(freq)
	if cfg.InitialCapital, err = decimal.NewFromString(capital); err != nil {
		return nil, fmt.Errorf("bad initial_capital for backtest %s: %w", cfg.ID, err)
	}
	if cfg.CommissionRate, err = decimal.NewFromString(commRate); err != nil {
		return nil, fmt.Errorf("bad commission_rate for backtest %s: %w", cfg.ID, err)
	}
	if cfg.MinCommission, err = decimal.NewFromString(minComm); err != nil {
		return nil, fmt.Errorf("bad min_commission for backtest %s: %w", cfg.ID, err)
	}
	if cfg.SlippageRate, err = decimal.NewFromString(slippage); err != nil {
		return nil, fmt.Errorf("bad slippage_rate for backtest %s: %w", cfg.ID, err)
	}
	return &cfg, nil
}

// BarRepository Implementation

func (s *SQLiteStore) SaveBars(ctx context.Context, bars []domain.Bar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO bars (symbol, date, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, b.Symbol, b.Date,
			b.Open.String(), b.High.String(), b.Low.String(), b.Close.String(), b.Volume.String()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetBar follows the MarketDataProvider contract: domain.ErrNoData when the
// symbol has no bar on that date.
func (s *SQLiteStore) GetBar(ctx context.Context, symbol string, date time.Time) (*domain.Bar, error) {
	query := `SELECT symbol, date, open, high, low, close, volume FROM bars WHERE symbol = ? AND date = ?`
	bar, err := scanBar(s.db.QueryRowContext(ctx, query, symbol, date))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s on %s", domain.ErrNoData, symbol, date.Format("2006-01-02"))
	}
	return bar, err
}

func (s *SQLiteStore) ListBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	query := `SELECT symbol, date, open, high, low, close, volume FROM bars WHERE symbol = ? AND date >= ? AND date <= ? ORDER BY date`
	rows, err := s.db.QueryContext(ctx, query, symbol, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		bar, err := scanBar(rows)
		if err != nil {
			return nil, err
		}
		bars = append(bars, *bar)
	}
	return bars, rows.Err()
}

func scanBar(row rowScanner) (*domain.Bar, error) {
	var b domain.Bar
	var open, high, low, closePx, volume string
	if err := row.Scan(&b.Symbol, &b.Date, &open, &high, &low, &closePx, &volume); err != nil {
		return nil, err
	}
	var err error
	if b.Open, err = decimal.NewFromString(open); err != nil {
		return nil, err
	}
	if b.High, err = decimal.NewFromString(high); err != nil {
		return nil, err
	}
	if b.Low, err = decimal.NewFromString(low); err != nil {
		return nil, err
	}
	if b.Close, err = decimal.NewFromString(closePx); err != nil {
		return nil, err
	}
	if b.Volume, err = decimal.NewFromString(volume); err != nil {
		return nil, err
	}
	return &b, nil
}

// ResultSink / ReportRepository Implementation

func (s *SQLiteStore) SaveReport(ctx context.Context, backtestID string, report *domain.PerformanceReport) error {
	equityJSON, err := json.Marshal(report.EquityCurve)
	if err != nil {
		return err
	}
	drawdownJSON, err := json.Marshal(report.DrawdownCurve)
	if err != nil {
		return err
	}
	returnsJSON, err := json.Marshal(report.DailyReturns)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT OR REPLACE INTO reports (backtest_id, strategy_id, initial_capital, final_equity, total_return, annualized_return, max_drawdown, sharpe_ratio, sortino_ratio, total_trades, winning_trades, losing_trades, win_rate, avg_win, avg_loss, profit_factor, start_date, end_date, equity_curve, drawdown_curve, daily_returns, generated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query,
		backtestID, report.StrategyID, report.InitialCapital.String(), report.FinalEquity.String(),
		report.TotalReturn, report.AnnualizedReturn, report.MaxDrawdown, report.SharpeRatio, report.SortinoRatio,
		report.TotalTrades, report.WinningTrades, report.LosingTrades, report.WinRate,
		report.AvgWin, report.AvgLoss, report.ProfitFactor,
		report.StartDate, report.EndDate,
		string(equityJSON), string(drawdownJSON), string(returnsJSON), report.GeneratedAt); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM report_trades WHERE backtest_id = ?`, backtestID); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO report_trades (id, backtest_id, timestamp, symbol, side, quantity, price, commission, realized_pnl, position_before, position_after)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, t := range report.Trades {
		if _, err := stmt.ExecContext(ctx, t.ID, backtestID, t.Timestamp, t.Symbol, string(t.Side),
			t.Quantity.String(), t.Price.String(), t.Commission.String(), t.RealizedPnL.String(),
			t.PositionBefore.String(), t.PositionAfter.String()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetReport(ctx context.Context, backtestID string) (*domain.PerformanceReport, error) {
	query := `SELECT backtest_id, strategy_id, initial_capital, final_equity, total_return, annualized_return, max_drawdown, sharpe_ratio, sortino_ratio, total_trades, winning_trades, losing_trades, win_rate, avg_win, avg_loss, profit_factor, start_date, end_date, equity_curve, drawdown_curve, daily_returns, generated_at FROM reports WHERE backtest_id = ?`
	row := s.db.QueryRowContext(ctx, query, backtestID)

	var r domain.PerformanceReport
	var capital, final, equityJSON, drawdownJSON, returnsJSON string
	err := row.Scan(&r.BacktestID, &r.StrategyID, &capital, &final,
		&r.TotalReturn, &r.AnnualizedReturn, &r.MaxDrawdown, &r.SharpeRatio, &r.SortinoRatio,
		&r.TotalTrades, &r.WinningTrades, &r.LosingTrades, &r.WinRate, &r.AvgWin, &r.AvgLoss, &r.ProfitFactor,
		&r.StartDate, &r.EndDate, &equityJSON, &drawdownJSON, &returnsJSON, &r.GeneratedAt)
	if err != nil {
		return nil, err
	}
	if r.InitialCapital, err = decimal.NewFromString(capital); err != nil {
		return nil, err
	}
	if r.FinalEquity, err = decimal.NewFromString(final); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(equityJSON), &r.EquityCurve); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(drawdownJSON), &r.DrawdownCurve); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(returnsJSON), &r.DailyReturns); err != nil {
		return nil, err
	}
	if r.Trades, err = s.ListTrades(ctx, backtestID); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteStore) ListTrades(ctx context.Context, backtestID string) ([]*domain.Trade, error) {
	query := `SELECT id, timestamp, symbol, side, quantity, price, commission, realized_pnl, position_before, position_after FROM report_trades WHERE backtest_id = ? ORDER BY timestamp`
	rows, err := s.db.QueryContext(ctx, query, backtestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		var side, qty, price, comm, pnl, before, after string
		if err := rows.Scan(&t.ID, &t.Timestamp, &t.Symbol, &side, &qty, &price, &comm, &pnl, &before, &after); err != nil {
			return nil, err
		}
		t.BacktestID = backtestID
		t.Side = domain.Side(side)
		if t.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		if t.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		if t.Commission, err = decimal.NewFromString(comm); err != nil {
			return nil, err
		}
		if t.RealizedPnL, err = decimal.NewFromString(pnl); err != nil {
			return nil, err
		}
		if t.PositionBefore, err = decimal.NewFromString(before); err != nil {
			return nil, err
		}
		if t.PositionAfter, err = decimal.NewFromString(after); err != nil {
			return nil, err
		}
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}
