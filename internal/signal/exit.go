package signal

import (
	"math"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/twstock-scanner/internal/types"
)

// ExitDecision says a position must close, why, and at what price.
type ExitDecision struct {
	Symbol string
	Date   time.Time
	Reason types.ExitReason
	Price  float64
}

// EvaluateExit tests an open position against the latest bar. The position
// must already carry today's ratchet update. When several rules fire, the
// reason with the lowest priority wins:
//
//  1. trailing stop: trailing active and low <= trailing stop
//  2. stop loss (or breakeven stop once promoted): low <= stop
//  3. MACD histogram death cross, if enabled
//  4. RSI below the exit floor
//
// Stop exits fill at the stop, or at the open when the bar gapped through it.
// Indicator exits fill at the close.
func EvaluateExit(position types.Position, series *types.IndicatedSeries, params Params) optional.Option[ExitDecision] {
	bar, ok := series.LastBar()
	if !ok {
		return optional.None[ExitDecision]()
	}

	levels := make(map[types.ExitReason]float64)

	if position.TrailingStopActive && position.CurrentTrailingStopPrice > 0 && bar.Low <= position.CurrentTrailingStopPrice {
		levels[types.ExitReasonTrailingStop] = position.CurrentTrailingStopPrice
	}

	if position.StopLossPrice > 0 && bar.Low <= position.StopLossPrice {
		reason := types.ExitReasonStopLoss
		if position.BreakevenPromoted {
			reason = types.ExitReasonBreakevenStop
		}

		levels[reason] = position.StopLossPrice
	}

	cur := series.Last()

	if params.UseMACDExit && cur >= 1 {
		prev := series.Value(types.ColumnMACDHist, cur-1)
		now := series.Value(types.ColumnMACDHist, cur)

		if !math.IsNaN(prev) && !math.IsNaN(now) && prev >= 0 && now < 0 {
			levels[types.ExitReasonMACDDeathCross] = bar.Close
		}
	}

	rsi := series.Value(types.ColumnRSI, cur)
	if !math.IsNaN(rsi) && rsi < params.RSIExitThreshold {
		levels[types.ExitReasonRSIExhaustion] = bar.Close
	}

	if len(levels) == 0 {
		return optional.None[ExitDecision]()
	}

	var reason types.ExitReason
	for candidate := range levels {
		if reason == "" || candidate.Priority() < reason.Priority() {
			reason = candidate
		}
	}

	price := levels[reason]
	if reason.IsStop() {
		price = stopFill(bar, price)
	}

	return optional.Some(ExitDecision{
		Symbol: position.Symbol,
		Date:   bar.Time,
		Reason: reason,
		Price:  price,
	})
}

func stopFill(bar types.MarketData, stop float64) float64 {
	if bar.Open < stop {
		return bar.Open
	}

	return stop
}
