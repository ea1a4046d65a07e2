package indicator

import "math"

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	return out
}

func firstValid(values []float64) int {
	for i, v := range values {
		if !math.IsNaN(v) {
			return i
		}
	}

	return -1
}

// sma is the simple moving average over period. A window containing NaN
// yields NaN.
func sma(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 {
		return out
	}

	for i := period - 1; i < len(values); i++ {
		sum := 0.0
		valid := true

		for j := i - period + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				valid = false

				break
			}

			sum += values[j]
		}

		if valid {
			out[i] = sum / float64(period)
		}
	}

	return out
}

// seededSmoothing applies an exponential smoothing whose first value is the
// simple mean of the first period valid inputs. Leading NaNs are skipped.
func seededSmoothing(values []float64, period int, alpha float64) []float64 {
	out := nanSlice(len(values))

	start := firstValid(values)
	if period <= 0 || start < 0 || len(values)-start < period {
		return out
	}

	sum := 0.0

	for i := start; i < start+period; i++ {
		if math.IsNaN(values[i]) {
			return out
		}

		sum += values[i]
	}

	prev := sum / float64(period)
	out[start+period-1] = prev

	for i := start + period; i < len(values); i++ {
		v := values[i]
		if math.IsNaN(v) {
			continue
		}

		prev = alpha*v + (1-alpha)*prev
		out[i] = prev
	}

	return out
}

// ema is the exponential moving average seeded with an SMA.
func ema(values []float64, period int) []float64 {
	return seededSmoothing(values, period, 2.0/float64(period+1))
}

// wilder is Wilder's smoothing (RMA), seeded with an SMA.
func wilder(values []float64, period int) []float64 {
	return seededSmoothing(values, period, 1.0/float64(period))
}

func rollingExtreme(values []float64, period int, pick func(a, b float64) float64) []float64 {
	out := nanSlice(len(values))
	if period <= 0 {
		return out
	}

	for i := period - 1; i < len(values); i++ {
		acc := values[i-period+1]

		for j := i - period + 2; j <= i; j++ {
			acc = pick(acc, values[j])
		}

		out[i] = acc
	}

	return out
}

func subtract(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}

	return out
}
