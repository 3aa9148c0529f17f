package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ddong8/quant-future-sub001/internal/domain"
)

type EngineState string

const (
	EngineCreated   EngineState = "CREATED"
	EngineRunning   EngineState = "RUNNING"
	EnginePaused    EngineState = "PAUSED"
	EngineCompleted EngineState = "COMPLETED"
	EngineFailed    EngineState = "FAILED"
	EngineCancelled EngineState = "CANCELLED"
)

// progressPublishStep is the minimum progress advance (in percent) between
// two notifier publications.
const progressPublishStep = 5.0

// Engine drives one simulation: it walks the date range day by day, asks the
// signal generator for signals, routes fills through the portfolio ledger,
// records the equity/drawdown/return series and computes the final report.
//
// Pause and cancel are cooperative: the loop observes both flags at the top
// of each simulated step, so their latency is bounded by one step's work.
type Engine struct {
	cfg      *domain.BacktestConfig
	resolver domain.SignalGeneratorResolver
	data     domain.MarketDataProvider
	logger   *zap.Logger

	portfolio *Portfolio
	generator domain.SignalGenerator
	history   map[string][]domain.Bar

	equity    []domain.EquityPoint
	drawdowns []domain.DrawdownPoint
	returns   []domain.DailyReturn
	peak      decimal.Decimal

	onProgress    func(percent float64)
	lastPublished float64

	mu        sync.Mutex
	cond      *sync.Cond
	state     EngineState
	paused    bool
	cancelled bool
	progress  float64
	runErr    error
}

func NewEngine(
	cfg *domain.BacktestConfig,
	resolver domain.SignalGeneratorResolver,
	data domain.MarketDataProvider,
	logger *zap.Logger,
) *Engine {
	e := &Engine{
		cfg:       cfg,
		resolver:  resolver,
		data:      data,
		logger:    logger,
		portfolio: NewPortfolio(cfg.InitialCapital),
		history:   make(map[string][]domain.Bar),
		state:     EngineCreated,
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// SetProgressFunc installs the progress callback. Must be called before Run.
func (e *Engine) SetProgressFunc(fn func(percent float64)) {
	e.onProgress = fn
}

func (e *Engine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Progress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress
}

// Err returns the captured error of a failed run.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runErr
}

// Pause asks the loop to block at the next step boundary. Idempotent.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
}

// Resume unblocks a paused loop. Idempotent.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
	e.cond.Broadcast()
}

// Cancel requests a cooperative stop. The loop observes it at the next step
// boundary; a paused loop wakes immediately.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelled = true
	e.cond.Broadcast()
}

// Run executes the whole simulation and returns the performance report.
// Every failure is captured into the engine state before being returned, so
// a caller running the engine on its own goroutine can observe the outcome
// without recovering panics or losing errors.
func (e *Engine) Run(ctx context.Context) (*domain.PerformanceReport, error) {
	if err := e.initialize(); err != nil {
		e.fail(err)
		return nil, err
	}

	e.setState(EngineRunning)
	e.logger.Info("backtest started",
		zap.String("backtest_id", e.cfg.ID),
		zap.String("strategy_id", e.cfg.StrategyID),
		zap.Strings("symbols", e.cfg.Symbols),
	)

	totalSteps := e.cfg.TotalSteps()
	step := 0
	for date := e.cfg.StartDate; !date.After(e.cfg.EndDate); date = date.AddDate(0, 0, 1) {
		if err := e.waitForResume(ctx); err != nil {
			e.setState(EngineCancelled)
			e.logger.Info("backtest cancelled", zap.String("backtest_id", e.cfg.ID), zap.Int("step", step))
			return nil, err
		}

		if err := e.runStep(ctx, date); err != nil {
			e.fail(err)
			e.logger.Error("backtest failed",
				zap.String("backtest_id", e.cfg.ID),
				zap.Int("step", step),
				zap.Error(err),
			)
			return nil, err
		}

		step++
		e.updateProgress(step, totalSteps)
	}

	report := BuildReport(e.cfg, e.portfolio, e.equity, e.drawdowns, e.returns)
	e.setState(EngineCompleted)
	e.logger.Info("backtest completed",
		zap.String("backtest_id", e.cfg.ID),
		zap.Float64("total_return", report.TotalReturn),
		zap.Int("trades", report.TotalTrades),
	)
	return report, nil
}

// initialize validates the config and resolves the strategy's signal
// generator. Failure here never reaches RUNNING.
func (e *Engine) initialize() error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	gen, err := e.resolver.Resolve(e.cfg.StrategyID)
	if err != nil {
		return fmt.Errorf("resolve strategy %q: %w", e.cfg.StrategyID, err)
	}
	e.generator = gen
	return nil
}

// waitForResume blocks while paused and reports cancellation. This is the
// loop's only suspension point.
func (e *Engine) waitForResume(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.paused && !e.cancelled {
		e.state = EnginePaused
		e.cond.Wait()
	}
	if e.cancelled || ctx.Err() != nil {
		return domain.ErrCancelled
	}
	e.state = EngineRunning
	return nil
}

func (e *Engine) runStep(ctx context.Context, date time.Time) error {
	// Fetch the day's bars. A missing bar is a local condition: the symbol
	// produces no signal input this step and its position stays marked at
	// the last known price. That can misstate unrealized P&L across data
	// gaps; the behavior is deliberate, not a defect.
	bars := make(map[string]domain.Bar, len(e.cfg.Symbols))
	for _, symbol := range e.cfg.Symbols {
		bar, err := e.data.GetBar(ctx, symbol, date)
		if err != nil {
			if errors.Is(err, domain.ErrNoData) {
				continue
			}
			return fmt.Errorf("fetch bar %s %s: %w", symbol, date.Format("2006-01-02"), err)
		}
		bars[symbol] = *bar
		e.history[symbol] = append(e.history[symbol], *bar)
	}

	signals, err := e.generator.Generate(ctx, &domain.StepContext{
		Date:      date,
		History:   e.history,
		Portfolio: e.portfolio.Snapshot(),
	})
	if err != nil {
		return fmt.Errorf("signal generator: %w", err)
	}

	for _, sig := range signals {
		e.executeSignal(date, sig, bars)
	}

	for symbol, bar := range bars {
		e.portfolio.MarkToMarket(symbol, bar.Close)
	}
	e.recordStep(date)
	return nil
}

// executeSignal turns one signal into a fill. Unfillable signals (no price,
// insufficient cash) are dropped without failing the run.
func (e *Engine) executeSignal(date time.Time, sig domain.TradingSignal, bars map[string]domain.Bar) {
	side, qty, ok := e.resolveOrder(sig)
	if !ok {
		return
	}

	price := sig.Price
	if price.Sign() <= 0 {
		bar, ok := bars[sig.Symbol]
		if !ok {
			e.logger.Debug("signal dropped: no price available",
				zap.String("symbol", sig.Symbol), zap.String("kind", string(sig.Kind)))
			return
		}
		price = bar.Close
	}

	fillPrice := applySlippage(price, side, e.cfg.SlippageRate)
	commission := commissionFor(qty, fillPrice, e.cfg.CommissionRate, e.cfg.MinCommission)

	if _, err := e.portfolio.ApplyFill(date, sig.Symbol, side, qty, fillPrice, commission); err != nil {
		e.logger.Debug("signal dropped",
			zap.String("symbol", sig.Symbol),
			zap.String("side", string(side)),
			zap.String("quantity", qty.String()),
			zap.Error(err),
		)
	}
}

// resolveOrder maps a signal kind to an executable side and quantity.
func (e *Engine) resolveOrder(sig domain.TradingSignal) (domain.Side, decimal.Decimal, bool) {
	switch sig.Kind {
	case domain.SignalBuy:
		return domain.SideBuy, sig.Quantity, sig.Quantity.Sign() > 0
	case domain.SignalSell:
		return domain.SideSell, sig.Quantity, sig.Quantity.Sign() > 0
	case domain.SignalCloseLong:
		pos, ok := e.portfolio.Position(sig.Symbol)
		if !ok || pos.Quantity.Sign() <= 0 {
			return "", decimal.Zero, false
		}
		return domain.SideSell, pos.Quantity, true
	case domain.SignalCloseShort:
		pos, ok := e.portfolio.Position(sig.Symbol)
		if !ok || pos.Quantity.Sign() >= 0 {
			return "", decimal.Zero, false
		}
		return domain.SideBuy, pos.Quantity.Neg(), true
	default:
		// HOLD and anything unknown.
		return "", decimal.Zero, false
	}
}

// recordStep appends the per-step equity, drawdown and period-return points.
func (e *Engine) recordStep(date time.Time) {
	eq := e.portfolio.Equity()

	prev := e.cfg.InitialCapital
	if n := len(e.equity); n > 0 {
		prev = e.equity[n-1].Equity
	}

	cumReturn := 0.0
	if e.cfg.InitialCapital.Sign() > 0 {
		cumReturn = eq.Sub(e.cfg.InitialCapital).Div(e.cfg.InitialCapital).InexactFloat64()
	}
	e.equity = append(e.equity, domain.EquityPoint{
		Date:   date,
		Equity: eq,
		Cash:   e.portfolio.Cash(),
		Return: cumReturn,
	})

	if eq.GreaterThan(e.peak) {
		e.peak = eq
	}
	drawdown := 0.0
	if e.peak.Sign() > 0 {
		drawdown = eq.Sub(e.peak).Div(e.peak).InexactFloat64()
	}
	e.drawdowns = append(e.drawdowns, domain.DrawdownPoint{
		Date:     date,
		Equity:   eq,
		Peak:     e.peak,
		Drawdown: drawdown,
	})

	periodReturn := 0.0
	if prev.Sign() != 0 {
		periodReturn = eq.Sub(prev).Div(prev).InexactFloat64()
	}
	e.returns = append(e.returns, domain.DailyReturn{
		Date:   date,
		Equity: eq,
		Return: periodReturn,
	})
}

// updateProgress advances the progress percentage and publishes it on a
// throttled cadence rather than every step.
func (e *Engine) updateProgress(step, totalSteps int) {
	pct := float64(step) / float64(totalSteps) * 100
	e.mu.Lock()
	e.progress = pct
	e.mu.Unlock()

	if e.onProgress == nil {
		return
	}
	if pct-e.lastPublished >= progressPublishStep || step == totalSteps {
		e.lastPublished = pct
		e.onProgress(pct)
	}
}

func (e *Engine) setState(s EngineState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) fail(err error) {
	e.mu.Lock()
	e.state = EngineFailed
	e.runErr = err
	e.mu.Unlock()
}

// applySlippage moves the price in the adverse direction: buys pay up,
// sells receive less.
func applySlippage(price decimal.Decimal, side domain.Side, rate decimal.Decimal) decimal.Decimal {
	if rate.Sign() <= 0 {
		return price
	}
	adj := price.Mul(rate)
	if side == domain.SideBuy {
		return price.Add(adj)
	}
	return price.Sub(adj)
}

// commissionFor is max(qty*price*rate, minCommission).
func commissionFor(qty, price, rate, minCommission decimal.Decimal) decimal.Decimal {
	c := qty.Mul(price).Mul(rate)
	if c.LessThan(minCommission) {
		return minCommission
	}
	return c
}
