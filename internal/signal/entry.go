package signal

import (
	"fmt"
	"math"
	"time"

	"github.com/rxtech-lab/twstock-scanner/internal/types"
)

// EntryDecision is the outcome of the entry test for one symbol on one day.
type EntryDecision struct {
	Symbol    string
	Date      time.Time
	Triggered bool
	// Price is the latest close, used as the signal price.
	Price float64
	// ATR at the signal bar, used for the initial stop.
	ATR float64
	// Reason names the first failed condition when Triggered is false.
	Reason string
}

type condition struct {
	name string
	ok   func(cur, prev int) (bool, error)
}

// EvaluateEntry tests the latest row of series against the entry rules. Every
// enabled condition must hold. An undefined indicator value fails the test.
func EvaluateEntry(series *types.IndicatedSeries, params Params) EntryDecision {
	decision := EntryDecision{Symbol: series.Symbol}

	if series.Len() < 2 {
		decision.Reason = "not enough bars"

		return decision
	}

	cur, prev := series.Last(), series.Last()-1
	bar := series.Bars[cur]
	decision.Date = bar.Time
	decision.Price = bar.Close
	decision.ATR = series.Value(types.ColumnATR, cur)

	value := func(column string, i int) (float64, error) {
		v := series.Value(column, i)
		if math.IsNaN(v) {
			return 0, fmt.Errorf("%s undefined", column)
		}

		return v, nil
	}

	conditions := []condition{
		{"macd histogram cross up", func(cur, prev int) (bool, error) {
			p, err := value(types.ColumnMACDHist, prev)
			if err != nil {
				return false, err
			}

			c, err := value(types.ColumnMACDHist, cur)
			if err != nil {
				return false, err
			}

			return p <= 0 && c > 0, nil
		}},
		{"adx rising", func(cur, prev int) (bool, error) {
			p, err := value(types.ColumnADX, prev)
			if err != nil {
				return false, err
			}

			c, err := value(types.ColumnADX, cur)
			if err != nil {
				return false, err
			}

			return c > p, nil
		}},
		{"adx above threshold", func(cur, _ int) (bool, error) {
			c, err := value(types.ColumnADX, cur)

			return err == nil && c > params.ADXEntryThreshold, err
		}},
		{"rsi above threshold", func(cur, _ int) (bool, error) {
			c, err := value(types.ColumnRSI, cur)

			return err == nil && c > params.RSIEntryThreshold, err
		}},
		{"atr defined", func(cur, _ int) (bool, error) {
			c, err := value(types.ColumnATR, cur)

			return err == nil && c > 0, err
		}},
	}

	if params.UseWeeklyMACD {
		conditions = append(conditions, condition{"weekly macd positive", func(cur, _ int) (bool, error) {
			c, err := value(types.ColumnWeeklyMACDHist, cur)

			return err == nil && c > 0, err
		}})
	}

	if params.UseVolume {
		conditions = append(conditions, condition{"volume spike", func(cur, _ int) (bool, error) {
			avg, err := value(types.ColumnVolumeSMA, cur)

			return err == nil && series.Bars[cur].Volume > avg*params.VolumeSpikeMultiplier, err
		}})
	}

	if params.UseTrendFilter {
		conditions = append(conditions, condition{"close above trend sma", func(cur, _ int) (bool, error) {
			c, err := value(types.ColumnSMATrend, cur)

			return err == nil && series.Bars[cur].Close > c, err
		}})
	}

	if params.UseBreakout {
		conditions = append(conditions, condition{"close above previous rolling high", func(cur, prev int) (bool, error) {
			p, err := value(types.ColumnRollingHigh, prev)

			return err == nil && series.Bars[cur].Close > p, err
		}})
	}

	for _, cond := range conditions {
		ok, err := cond.ok(cur, prev)
		if err != nil {
			decision.Reason = fmt.Sprintf("%s: %v", cond.name, err)

			return decision
		}

		if !ok {
			decision.Reason = cond.name + " not met"

			return decision
		}
	}

	decision.Triggered = true

	return decision
}

// MarketRegimeBullish reports whether the index closes above its regime SMA.
// A missing or undefined value counts as bearish.
func MarketRegimeBullish(index *types.IndicatedSeries) (bool, string) {
	if index.Len() == 0 {
		return false, "market index data unavailable"
	}

	last := index.Last()
	smaValue := index.Value(types.ColumnSMARegime, last)

	if math.IsNaN(smaValue) {
		return false, "market index moving average undefined"
	}

	closePrice := index.Bars[last].Close
	if closePrice > smaValue {
		return true, fmt.Sprintf("index close %.2f above moving average %.2f", closePrice, smaValue)
	}

	return false, fmt.Sprintf("index close %.2f not above moving average %.2f", closePrice, smaValue)
}
