package types

import "math"

// IndicatedSeries is a normalized bar series together with indicator columns.
// Every column has the same length as Bars; NaN marks an undefined value.
type IndicatedSeries struct {
	Symbol  string
	Bars    []MarketData
	Columns map[string][]float64
}

// NewIndicatedSeries wraps bars with an empty column set.
func NewIndicatedSeries(symbol string, bars []MarketData) *IndicatedSeries {
	return &IndicatedSeries{
		Symbol:  symbol,
		Bars:    bars,
		Columns: make(map[string][]float64),
	}
}

// Len returns the number of bars.
func (s *IndicatedSeries) Len() int {
	if s == nil {
		return 0
	}

	return len(s.Bars)
}

// SetColumn stores values under name. It panics on a length mismatch since
// that can only come from a programming error in an indicator.
func (s *IndicatedSeries) SetColumn(name string, values []float64) {
	if len(values) != len(s.Bars) {
		panic("indicator column " + name + " length does not match bar count")
	}

	s.Columns[name] = values
}

// Value returns column name at row i, or NaN when the column or row is missing.
func (s *IndicatedSeries) Value(name string, i int) float64 {
	col, ok := s.Columns[name]
	if !ok || i < 0 || i >= len(col) {
		return math.NaN()
	}

	return col[i]
}

// Last returns the index of the latest row, or -1 for an empty series.
func (s *IndicatedSeries) Last() int {
	return s.Len() - 1
}

// LastBar returns the latest bar and whether it exists.
func (s *IndicatedSeries) LastBar() (MarketData, bool) {
	if s.Len() == 0 {
		return MarketData{}, false
	}

	return s.Bars[len(s.Bars)-1], true
}

// Closes extracts the close prices.
func (s *IndicatedSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}

	return out
}
