package indicator

import (
	"fmt"
	"math"

	"github.com/rxtech-lab/twstock-scanner/internal/types"
)

// RollingExtremes writes the highest high and lowest low of the trailing
// window, current bar included.
type RollingExtremes struct {
	window int
}

func NewRollingExtremes() Indicator {
	return &RollingExtremes{window: 50}
}

func (r *RollingExtremes) Name() types.IndicatorType {
	return types.IndicatorTypeRollingExtremes
}

// Config expects window (int).
func (r *RollingExtremes) Config(params ...any) error {
	if len(params) != 1 {
		return fmt.Errorf("Config expects 1 parameter: window (int)")
	}

	window, ok := params[0].(int)
	if !ok || window <= 0 {
		return fmt.Errorf("window must be a positive int, got %v", params[0])
	}

	r.window = window

	return nil
}

func (r *RollingExtremes) Columns() []string {
	return []string{types.ColumnRollingHigh, types.ColumnRollingLow}
}

func (r *RollingExtremes) Annotate(series *types.IndicatedSeries) error {
	highs := make([]float64, series.Len())
	lows := make([]float64, series.Len())

	for i, bar := range series.Bars {
		highs[i] = bar.High
		lows[i] = bar.Low
	}

	series.SetColumn(types.ColumnRollingHigh, rollingExtreme(highs, r.window, math.Max))
	series.SetColumn(types.ColumnRollingLow, rollingExtreme(lows, r.window, math.Min))

	return nil
}
