package indicator

import (
	"fmt"

	"github.com/rxtech-lab/twstock-scanner/internal/types"
)

// MACD represents the Moving Average Convergence Divergence indicator.
// Only the histogram (MACD line minus signal line) is written to the series.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD creates a new MACD indicator with default configuration.
func NewMACD() Indicator {
	return &MACD{
		fastPeriod:   12,
		slowPeriod:   26,
		signalPeriod: 9,
	}
}

// Name returns the name of the indicator.
func (m *MACD) Name() types.IndicatorType {
	return types.IndicatorTypeMACD
}

// Config configures the MACD indicator.
// Expected parameters: fastPeriod (int), slowPeriod (int), signalPeriod (int).
func (m *MACD) Config(params ...any) error {
	fast, slow, signal, err := parseMACDParams(params...)
	if err != nil {
		return err
	}

	m.fastPeriod = fast
	m.slowPeriod = slow
	m.signalPeriod = signal

	return nil
}

func (m *MACD) Columns() []string {
	return []string{types.ColumnMACDHist}
}

// Annotate implements Indicator.
func (m *MACD) Annotate(series *types.IndicatedSeries) error {
	series.SetColumn(types.ColumnMACDHist, macdHistogram(series.Closes(), m.fastPeriod, m.slowPeriod, m.signalPeriod))

	return nil
}

func parseMACDParams(params ...any) (int, int, int, error) {
	if len(params) != 3 {
		return 0, 0, 0, fmt.Errorf("Config expects 3 parameters: fastPeriod (int), slowPeriod (int), signalPeriod (int)")
	}

	periods := make([]int, 3)

	for i, p := range params {
		v, ok := p.(int)
		if !ok {
			return 0, 0, 0, fmt.Errorf("invalid type for parameter %d, expected int", i)
		}

		if v <= 0 {
			return 0, 0, 0, fmt.Errorf("MACD periods must be positive, got %d", v)
		}

		periods[i] = v
	}

	if periods[0] >= periods[1] {
		return 0, 0, 0, fmt.Errorf("fast period (%d) must be less than slow period (%d)", periods[0], periods[1])
	}

	return periods[0], periods[1], periods[2], nil
}

// macdHistogram returns MACD line minus its signal EMA. The signal EMA is
// seeded from the first valid MACD values.
func macdHistogram(closes []float64, fast, slow, signal int) []float64 {
	macdLine := subtract(ema(closes, fast), ema(closes, slow))
	signalLine := ema(macdLine, signal)

	return subtract(macdLine, signalLine)
}
