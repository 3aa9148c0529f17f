package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/ddong8/quant-future-sub001/internal/domain"
)

// MemoryProvider serves bars from memory. Useful for one-shot runs and as a
// seam in tests; the production path reads bars from the sqlite store.
type MemoryProvider struct {
	bars map[string]map[string]domain.Bar // symbol -> yyyy-mm-dd -> bar
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{bars: make(map[string]map[string]domain.Bar)}
}

func (p *MemoryProvider) Add(bars ...domain.Bar) {
	for _, b := range bars {
		byDate, ok := p.bars[b.Symbol]
		if !ok {
			byDate = make(map[string]domain.Bar)
			p.bars[b.Symbol] = byDate
		}
		byDate[dateKey(b.Date)] = b
	}
}

func (p *MemoryProvider) GetBar(_ context.Context, symbol string, date time.Time) (*domain.Bar, error) {
	bar, ok := p.bars[symbol][dateKey(date)]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", domain.ErrNoData, symbol, dateKey(date))
	}
	return &bar, nil
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

var _ domain.MarketDataProvider = (*MemoryProvider)(nil)
