package indicator

import (
	"fmt"
	"math"

	"github.com/rxtech-lab/twstock-scanner/internal/types"
)

// RSI represents the Relative Strength Index indicator.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator with default configuration.
func NewRSI() Indicator {
	return &RSI{
		period: 14, // Default period
	}
}

// Name returns the name of the indicator.
func (r *RSI) Name() types.IndicatorType {
	return types.IndicatorTypeRSI
}

// Config configures the RSI indicator. Expected parameters: period (int).
func (r *RSI) Config(params ...any) error {
	if len(params) < 1 {
		return fmt.Errorf("Config expects at least 1 parameter: period (int)")
	}

	period, ok := params[0].(int)
	if !ok {
		return fmt.Errorf("invalid type for period parameter, expected int")
	}

	if period <= 0 {
		return fmt.Errorf("period must be a positive integer, got %d", period)
	}

	r.period = period

	return nil
}

func (r *RSI) Columns() []string {
	return []string{types.ColumnRSI}
}

// Annotate computes RSI with Wilder's smoothing of gains and losses.
func (r *RSI) Annotate(series *types.IndicatedSeries) error {
	n := series.Len()
	gains := nanSlice(n)
	losses := nanSlice(n)

	for i := 1; i < n; i++ {
		change := series.Bars[i].Close - series.Bars[i-1].Close
		if change > 0 {
			gains[i] = change
			losses[i] = 0
		} else {
			gains[i] = 0
			losses[i] = -change
		}
	}

	avgGain := wilder(gains, r.period)
	avgLoss := wilder(losses, r.period)

	out := nanSlice(n)

	for i := range out {
		if math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]) {
			continue
		}

		if avgLoss[i] == 0 {
			if avgGain[i] == 0 {
				out[i] = 50 // flat market
			} else {
				out[i] = 100 // Perfect uptrend
			}

			continue
		}

		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - (100 / (1 + rs))
	}

	series.SetColumn(types.ColumnRSI, out)

	return nil
}
