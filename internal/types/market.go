package types

import (
	"fmt"
	"math"
	"time"
)

// MarketData is one daily OHLCV bar for a symbol.
type MarketData struct {
	Time   time.Time `csv:"time" json:"time"`
	Symbol string    `csv:"symbol" json:"symbol"`
	Open   float64   `csv:"open" json:"open"`
	High   float64   `csv:"high" json:"high"`
	Low    float64   `csv:"low" json:"low"`
	Close  float64   `csv:"close" json:"close"`
	Volume float64   `csv:"volume" json:"volume"`
}

// Validate checks the OHLC ordering invariants and rejects non-finite or
// non-positive prices.
func (m MarketData) Validate() error {
	for _, v := range []float64{m.Open, m.High, m.Low, m.Close, m.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bar %s has a non-finite value", m.Time.Format(time.DateOnly))
		}
	}

	if m.Open <= 0 || m.High <= 0 || m.Low <= 0 || m.Close <= 0 {
		return fmt.Errorf("bar %s has a non-positive price", m.Time.Format(time.DateOnly))
	}

	if m.High < math.Max(math.Max(m.Open, m.Close), m.Low) {
		return fmt.Errorf("bar %s high %.4f is below open/close/low", m.Time.Format(time.DateOnly), m.High)
	}

	if m.Low > math.Min(math.Min(m.Open, m.Close), m.High) {
		return fmt.Errorf("bar %s low %.4f is above open/close/high", m.Time.Format(time.DateOnly), m.Low)
	}

	if m.Volume < 0 {
		return fmt.Errorf("bar %s has negative volume", m.Time.Format(time.DateOnly))
	}

	return nil
}

// TradingDay truncates t to midnight UTC of its calendar day.
func TradingDay(t time.Time) time.Time {
	y, mo, d := t.Date()

	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from start to end.
func DaysBetween(start, end time.Time) int {
	return int(math.Round(TradingDay(end).Sub(TradingDay(start)).Hours() / 24))
}
