package marketdata

import (
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ddong8/quant-future-sub001/internal/domain"
)

// RandomWalk generates a deterministic geometric random walk of daily bars
// for demo and seeding purposes. Weekends get no bars, which also exercises
// the engine's missing-bar policy.
type RandomWalk struct {
	Drift      float64 // daily drift, e.g. 0.0002
	Volatility float64 // daily volatility, e.g. 0.02
}

// Generate produces weekday bars between start and end (inclusive) starting
// at startPrice. The same seed always yields the same series.
func (w RandomWalk) Generate(symbol string, start, end time.Time, startPrice decimal.Decimal, seed int64) []domain.Bar {
	rng := rand.New(rand.NewSource(seed))
	price := startPrice.InexactFloat64()

	var bars []domain.Bar
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		ret := w.Drift + w.Volatility*rng.NormFloat64()
		open := price
		closePx := open * math.Exp(ret)
		high := math.Max(open, closePx) * (1 + 0.003*rng.Float64())
		low := math.Min(open, closePx) * (1 - 0.003*rng.Float64())
		volume := 1e6 * (0.5 + rng.Float64())
		price = closePx

		bars = append(bars, domain.Bar{
			Symbol: symbol,
			Date:   date,
			Open:   decimal.NewFromFloat(open).Round(4),
			High:   decimal.NewFromFloat(high).Round(4),
			Low:    decimal.NewFromFloat(low).Round(4),
			Close:  decimal.NewFromFloat(closePx).Round(4),
			Volume: decimal.NewFromFloat(volume).Round(0),
		})
	}
	return bars
}
