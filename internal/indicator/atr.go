package indicator

import (
	"fmt"
	"math"

	"github.com/rxtech-lab/twstock-scanner/internal/types"
)

// ATR represents the Average True Range indicator.
type ATR struct {
	period int
}

// NewATR creates a new ATR indicator with default configuration.
func NewATR() Indicator {
	return &ATR{
		period: 14,
	}
}

// Name returns the name of the indicator.
func (a *ATR) Name() types.IndicatorType {
	return types.IndicatorTypeATR
}

// Config configures the ATR indicator. Expected parameters: period (int).
func (a *ATR) Config(params ...any) error {
	if len(params) != 1 {
		return fmt.Errorf("Config expects 1 parameter: period (int)")
	}

	period, ok := params[0].(int)
	if !ok {
		return fmt.Errorf("invalid type for period parameter, expected int")
	}

	if period <= 0 {
		return fmt.Errorf("period must be a positive integer, got %d", period)
	}

	a.period = period

	return nil
}

func (a *ATR) Columns() []string {
	return []string{types.ColumnATR}
}

// Annotate implements Indicator.
func (a *ATR) Annotate(series *types.IndicatedSeries) error {
	series.SetColumn(types.ColumnATR, wilder(trueRange(series.Bars), a.period))

	return nil
}

// trueRange is undefined on the first bar, which has no previous close.
func trueRange(bars []types.MarketData) []float64 {
	out := nanSlice(len(bars))

	for i := 1; i < len(bars); i++ {
		prevClose := bars[i-1].Close
		highLow := bars[i].High - bars[i].Low
		highClose := math.Abs(bars[i].High - prevClose)
		lowClose := math.Abs(bars[i].Low - prevClose)
		out[i] = math.Max(highLow, math.Max(highClose, lowClose))
	}

	return out
}
