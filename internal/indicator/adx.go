package indicator

import (
	"fmt"
	"math"

	"github.com/rxtech-lab/twstock-scanner/internal/types"
)

// ADX represents Wilder's Average Directional Index.
type ADX struct {
	period int
}

// NewADX creates a new ADX indicator with default configuration.
func NewADX() Indicator {
	return &ADX{
		period: 14,
	}
}

// Name returns the name of the indicator.
func (a *ADX) Name() types.IndicatorType {
	return types.IndicatorTypeADX
}

// Config configures the ADX indicator. Expected parameters: period (int).
func (a *ADX) Config(params ...any) error {
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

func (a *ADX) Columns() []string {
	return []string{types.ColumnADX}
}

// Annotate implements Indicator. The first defined ADX value appears at bar
// 2*period since both DI and DX smoothing need a full window.
func (a *ADX) Annotate(series *types.IndicatedSeries) error {
	bars := series.Bars
	n := len(bars)
	plusDM := nanSlice(n)
	minusDM := nanSlice(n)

	for i := 1; i < n; i++ {
		up := bars[i].High - bars[i-1].High
		down := bars[i-1].Low - bars[i].Low
		plusDM[i] = 0
		minusDM[i] = 0

		if up > down && up > 0 {
			plusDM[i] = up
		}

		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	atr := wilder(trueRange(bars), a.period)
	smoothPlus := wilder(plusDM, a.period)
	smoothMinus := wilder(minusDM, a.period)

	dx := nanSlice(n)

	for i := 0; i < n; i++ {
		if math.IsNaN(atr[i]) {
			continue
		}

		if atr[i] == 0 {
			dx[i] = 0

			continue
		}

		plusDI := 100 * smoothPlus[i] / atr[i]
		minusDI := 100 * smoothMinus[i] / atr[i]

		sum := plusDI + minusDI
		if sum == 0 {
			dx[i] = 0

			continue
		}

		dx[i] = 100 * math.Abs(plusDI-minusDI) / sum
	}

	series.SetColumn(types.ColumnADX, wilder(dx, a.period))

	return nil
}
