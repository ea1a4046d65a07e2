package indicator

import (
	"math"
	"time"

	"github.com/rxtech-lab/twstock-scanner/internal/types"
)

// WeekEnding returns the Friday that closes the week containing day. Saturday
// and Sunday belong to the following week.
func WeekEnding(day time.Time) time.Time {
	d := types.TradingDay(day)
	offset := (int(time.Friday) - int(d.Weekday()) + 7) % 7

	return d.AddDate(0, 0, offset)
}

// ResampleWeekly aggregates daily bars into weeks ending on Friday: first
// open, highest high, lowest low, last close and summed volume. Each weekly
// bar is stamped with its Friday label.
func ResampleWeekly(bars []types.MarketData) []types.MarketData {
	var weekly []types.MarketData

	for _, bar := range bars {
		label := WeekEnding(bar.Time)

		if len(weekly) > 0 && weekly[len(weekly)-1].Time.Equal(label) {
			w := &weekly[len(weekly)-1]
			w.High = math.Max(w.High, bar.High)
			w.Low = math.Min(w.Low, bar.Low)
			w.Close = bar.Close
			w.Volume += bar.Volume

			continue
		}

		weekly = append(weekly, types.MarketData{
			Time:   label,
			Symbol: bar.Symbol,
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
		})
	}

	return weekly
}

// WeeklyMACD computes the MACD histogram on weekly closes and projects it
// onto the daily rows. A weekly value lands on the last daily row of its week
// and is carried forward until the next one. The final week only counts once
// its Friday bar exists, so a daily row never sees a week that has not closed.
type WeeklyMACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewWeeklyMACD creates the weekly MACD indicator with default configuration.
func NewWeeklyMACD() Indicator {
	return &WeeklyMACD{
		fastPeriod:   12,
		slowPeriod:   26,
		signalPeriod: 9,
	}
}

func (w *WeeklyMACD) Name() types.IndicatorType {
	return types.IndicatorTypeWeeklyMACD
}

// Config expects fastPeriod (int), slowPeriod (int), signalPeriod (int).
func (w *WeeklyMACD) Config(params ...any) error {
	fast, slow, signal, err := parseMACDParams(params...)
	if err != nil {
		return err
	}

	w.fastPeriod = fast
	w.slowPeriod = slow
	w.signalPeriod = signal

	return nil
}

func (w *WeeklyMACD) Columns() []string {
	return []string{types.ColumnWeeklyMACDHist}
}

func (w *WeeklyMACD) Annotate(series *types.IndicatedSeries) error {
	weekly := ResampleWeekly(series.Bars)

	closes := make([]float64, len(weekly))
	for i, bar := range weekly {
		closes[i] = bar.Close
	}

	hist := macdHistogram(closes, w.fastPeriod, w.slowPeriod, w.signalPeriod)

	byLabel := make(map[time.Time]float64, len(weekly))
	for i, bar := range weekly {
		byLabel[bar.Time] = hist[i]
	}

	out := nanSlice(series.Len())
	last := math.NaN()

	for i, bar := range series.Bars {
		label := WeekEnding(bar.Time)

		var closesWeek bool
		if i+1 < series.Len() {
			closesWeek = !WeekEnding(series.Bars[i+1].Time).Equal(label)
		} else {
			closesWeek = types.TradingDay(bar.Time).Equal(label)
		}

		if closesWeek {
			last = byLabel[label]
		}

		out[i] = last
	}

	series.SetColumn(types.ColumnWeeklyMACDHist, out)

	return nil
}
