package indicator

import (
	"fmt"

	"github.com/rxtech-lab/twstock-scanner/internal/types"
)

// PriceField selects the bar value an indicator reads.
type PriceField func(bar types.MarketData) float64

func CloseField(bar types.MarketData) float64  { return bar.Close }
func VolumeField(bar types.MarketData) float64 { return bar.Volume }

// MA is a simple moving average of one bar field written to one column.
// The scanner uses three of them: the regime SMA and trend SMA of the close,
// and the SMA of the volume.
type MA struct {
	name   types.IndicatorType
	column string
	field  PriceField
	period int
}

// NewMA creates a moving average indicator.
func NewMA(name types.IndicatorType, column string, field PriceField, period int) Indicator {
	return &MA{
		name:   name,
		column: column,
		field:  field,
		period: period,
	}
}

// Name returns the name of the indicator.
func (m *MA) Name() types.IndicatorType {
	return m.name
}

// Config configures the moving average. Expected parameters: period (int).
func (m *MA) Config(params ...any) error {
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

	m.period = period

	return nil
}

func (m *MA) Columns() []string {
	return []string{m.column}
}

// Annotate implements Indicator.
func (m *MA) Annotate(series *types.IndicatedSeries) error {
	values := make([]float64, series.Len())
	for i, bar := range series.Bars {
		values[i] = m.field(bar)
	}

	series.SetColumn(m.column, sma(values, m.period))

	return nil
}
