package usecase

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ddong8/quant-future-sub001/internal/domain"
)

// Portfolio is the ledger of one simulation run: cash, open positions and
// the trade log. It is exclusively owned by its engine and is not safe for
// concurrent use.
type Portfolio struct {
	initialCapital decimal.Decimal
	cash           decimal.Decimal
	positions      map[string]*domain.Position
	trades         []*domain.Trade
}

func NewPortfolio(initialCapital decimal.Decimal) *Portfolio {
	return &Portfolio{
		initialCapital: initialCapital,
		cash:           initialCapital,
		positions:      make(map[string]*domain.Position),
	}
}

func (p *Portfolio) Cash() decimal.Decimal {
	return p.cash
}

func (p *Portfolio) InitialCapital() decimal.Decimal {
	return p.initialCapital
}

// Position returns a copy of the open position for a symbol.
func (p *Portfolio) Position(symbol string) (domain.Position, bool) {
	pos, ok := p.positions[symbol]
	if !ok {
		return domain.Position{}, false
	}
	return *pos, true
}

// Positions returns copies of all open positions keyed by symbol.
func (p *Portfolio) Positions() map[string]domain.Position {
	out := make(map[string]domain.Position, len(p.positions))
	for sym, pos := range p.positions {
		out[sym] = *pos
	}
	return out
}

func (p *Portfolio) Trades() []*domain.Trade {
	return p.trades
}

// Equity is cash plus the market value of every open position.
func (p *Portfolio) Equity() decimal.Decimal {
	eq := p.cash
	for _, pos := range p.positions {
		eq = eq.Add(pos.MarketValue())
	}
	return eq
}

// Snapshot builds the read-only view handed to signal generators.
func (p *Portfolio) Snapshot() domain.PortfolioSnapshot {
	return domain.PortfolioSnapshot{
		Cash:      p.cash,
		Equity:    p.Equity(),
		Positions: p.Positions(),
	}
}

// ApplyFill applies one fill at the given (already slippage-adjusted) price.
// Growing a same-direction position uses the weighted-average entry price;
// crossing an opposite position realizes P&L for the closed portion and any
// remainder opens a new position at the fill price. Commission is charged to
// cash on every fill and attributed to the fill's realized P&L only when a
// position is being reduced or closed. A fill that would drive cash negative
// returns ErrExecutionRejected and changes nothing.
func (p *Portfolio) ApplyFill(ts time.Time, symbol string, side domain.Side, qty, price, commission decimal.Decimal) (*domain.Trade, error) {
	if qty.Sign() <= 0 {
		return nil, domain.ErrExecutionRejected
	}

	var cashDelta decimal.Decimal
	if side == domain.SideBuy {
		cashDelta = qty.Mul(price).Neg()
	} else {
		cashDelta = qty.Mul(price)
	}
	cashDelta = cashDelta.Sub(commission)
	if p.cash.Add(cashDelta).Sign() < 0 {
		return nil, domain.ErrExecutionRejected
	}

	pos := p.positions[symbol]
	posBefore := decimal.Zero
	if pos != nil {
		posBefore = pos.Quantity
	}

	signed := qty
	if side == domain.SideSell {
		signed = qty.Neg()
	}

	realized := decimal.Zero
	switch {
	case pos == nil:
		pos = &domain.Position{
			Symbol:    symbol,
			Quantity:  signed,
			AvgPrice:  price,
			LastPrice: price,
			OpenedAt:  ts,
		}
		p.positions[symbol] = pos

	case pos.Quantity.Sign() == signed.Sign():
		// Same direction: grow at the weighted-average price.
		oldAbs := pos.Quantity.Abs()
		pos.AvgPrice = oldAbs.Mul(pos.AvgPrice).Add(qty.Mul(price)).Div(oldAbs.Add(qty))
		pos.Quantity = pos.Quantity.Add(signed)

	default:
		// Opposite direction: close up to the existing quantity, then open
		// the remainder at the fill price.
		closeQty := decimal.Min(qty, pos.Quantity.Abs())
		if pos.Quantity.Sign() > 0 {
			realized = price.Sub(pos.AvgPrice).Mul(closeQty).Sub(commission)
		} else {
			realized = pos.AvgPrice.Sub(price).Mul(closeQty).Sub(commission)
		}
		pos.RealizedPnL = pos.RealizedPnL.Add(realized)
		pos.Quantity = pos.Quantity.Add(signed)
		if pos.Quantity.IsZero() {
			delete(p.positions, symbol)
			pos = nil
		} else if pos.Quantity.Sign() == signed.Sign() {
			// Crossed through flat: the remainder is a fresh position.
			pos.AvgPrice = price
			pos.OpenedAt = ts
		}
	}

	if pos != nil {
		pos.LastPrice = price
		pos.UnrealizedPnL = price.Sub(pos.AvgPrice).Mul(pos.Quantity)
		pos.UpdatedAt = ts
	}

	p.cash = p.cash.Add(cashDelta)

	trade := &domain.Trade{
		ID:             uuid.NewString(),
		Timestamp:      ts,
		Symbol:         symbol,
		Side:           side,
		Quantity:       qty,
		Price:          price,
		Commission:     commission,
		RealizedPnL:    realized,
		PositionBefore: posBefore,
		PositionAfter:  posBefore.Add(signed),
	}
	p.trades = append(p.trades, trade)
	return trade, nil
}

// MarkToMarket updates a position's last price and recomputes unrealized
// P&L. Cash is never touched here.
func (p *Portfolio) MarkToMarket(symbol string, price decimal.Decimal) {
	pos, ok := p.positions[symbol]
	if !ok {
		return
	}
	pos.LastPrice = price
	pos.UnrealizedPnL = price.Sub(pos.AvgPrice).Mul(pos.Quantity)
}
