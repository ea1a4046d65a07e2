package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/twstock-scanner/internal/types"
)

// DataGenerator generates daily bars for tests. Bars fall on weekdays only.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator seeds the generator. A fixed seed gives the same series.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how market data is generated.
type GeneratorConfig struct {
	// Symbol is the Taiwan stock code, e.g. "2330".
	Symbol string
	// StartDate is the first session. A weekend start rolls to Monday.
	StartDate time.Time
	// Count is the number of sessions to generate.
	Count int
	// InitialPrice is the first open.
	InitialPrice float64
	// Volatility is the daily return standard deviation (0.015 = 1.5%).
	Volatility float64
	// Trend is the total drift over the series, spread evenly across bars.
	Trend float64
	// VolumeBase is the average shares traded per session.
	VolumeBase float64
	// VolumeVariance is the relative volume jitter in [0, 1].
	VolumeVariance float64
}

// DefaultConfig returns a large-cap profile.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "2330",
		StartDate:      time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		Count:          400,
		InitialPrice:   500.0,
		Volatility:     0.015,
		Trend:          0.0,
		VolumeBase:     20_000_000,
		VolumeVariance: 0.3,
	}
}

// Generate creates daily bars following a geometric Brownian motion. Prices
// are rounded to the TWSE tick ladder and volume to whole board lots.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.MarketData {
	bars := make([]types.MarketData, 0, config.Count)
	drift := config.Trend / float64(max(config.Count, 1))
	prevClose := config.InitialPrice
	day := nextSession(types.TradingDay(config.StartDate))

	for range config.Count {
		gap := g.normal() * config.Volatility * 0.25
		open := toTick(prevClose * (1 + gap))

		ret := drift + config.Volatility*g.normal()
		close := toTick(open * math.Exp(ret))

		spread := config.Volatility * open * 0.5
		high := toTick(math.Max(open, close) + math.Abs(g.rng.Float64()*spread))
		low := toTick(math.Max(math.Min(open, close)-math.Abs(g.rng.Float64()*spread), tickSize(open)))

		lots := math.Round(config.VolumeBase * (1 + (g.rng.Float64()*2-1)*config.VolumeVariance) / boardLot)

		bars = append(bars, types.MarketData{
			Symbol: config.Symbol,
			Time:   day,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: math.Max(lots, 1) * boardLot,
		})

		prevClose = close
		day = nextSession(day.AddDate(0, 0, 1))
	}

	return bars
}

// normal draws from N(0,1) with the Box-Muller transform.
func (g *DataGenerator) normal() float64 {
	u1 := 1 - g.rng.Float64()
	u2 := g.rng.Float64()

	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// GenerateSeries is a shortcut for a seeded default series of count bars.
func GenerateSeries(symbol string, count int, seed int64) []types.MarketData {
	config := DefaultConfig()
	config.Symbol = symbol
	config.Count = count

	return NewDataGenerator(seed).Generate(config)
}

func nextSession(day time.Time) time.Time {
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, 1)
	}

	return day
}

const boardLot = 1000

// tickSize follows the TWSE equity tick ladder.
func tickSize(price float64) float64 {
	switch {
	case price < 10:
		return 0.01
	case price < 50:
		return 0.05
	case price < 100:
		return 0.1
	case price < 500:
		return 0.5
	case price < 1000:
		return 1
	default:
		return 5
	}
}

func toTick(price float64) float64 {
	tick := tickSize(price)
	rounded := math.Round(price/tick) * tick

	return math.Round(math.Max(rounded, tick)*100) / 100
}
