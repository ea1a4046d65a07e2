// Package position manages the stop lifecycle of an open holding: the initial
// stop at entry, the optional breakeven promotion and the trailing ratchet.
package position

import (
	"math"
	"time"

	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
)

// Params configures the stop lifecycle. All percentages are fractions.
type Params struct {
	ATRMultiplier      float64 `yaml:"atr_multiplier" json:"atr_multiplier" jsonschema:"title=ATR Multiplier,description=Initial stop distance in ATRs,default=10" validate:"gt=0"`
	HardStopPct        float64 `yaml:"hard_stop_pct" json:"hard_stop_pct" jsonschema:"title=Hard Stop,description=Maximum loss from entry as a negative fraction,default=-0.4" validate:"lt=0,gt=-1"`
	TrailActivationPct float64 `yaml:"trail_activation_pct" json:"trail_activation_pct" jsonschema:"title=Trail Activation,description=Gain from entry that activates the trailing stop,default=0.8" validate:"gt=0"`
	TrailRetracePct    float64 `yaml:"trail_retrace_pct" json:"trail_retrace_pct" jsonschema:"title=Trail Retrace,description=Allowed retrace from the highest price once trailing,default=0.6" validate:"gt=0,lt=1"`
	BreakevenRR        float64 `yaml:"breakeven_rr" json:"breakeven_rr" jsonschema:"title=Breakeven Reward/Risk,description=Reward multiple of the initial risk that moves the stop to entry. Zero disables it,default=0" validate:"gte=0"`
}

// DefaultParams returns the production stop settings.
func DefaultParams() Params {
	return Params{
		ATRMultiplier:      10,
		HardStopPct:        -0.40,
		TrailActivationPct: 0.80,
		TrailRetracePct:    0.60,
		BreakevenRR:        0,
	}
}

// InitialStop places the stop at the tighter of the ATR stop and the hard
// percentage stop.
func InitialStop(entryPrice, atr float64, params Params) (float64, error) {
	if entryPrice <= 0 || math.IsNaN(entryPrice) {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "entry price must be positive, got %v", entryPrice)
	}

	if math.IsNaN(atr) || atr <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidStopLoss, "atr must be positive, got %v", atr)
	}

	atrStop := entryPrice - params.ATRMultiplier*atr
	hardStop := entryPrice * (1 + params.HardStopPct)
	stop := math.Max(atrStop, hardStop)

	if stop <= 0 || stop >= entryPrice {
		return 0, errors.Newf(errors.ErrCodeInvalidStopLoss, "stop %.4f is invalid for entry %.4f", stop, entryPrice)
	}

	return stop, nil
}

// NewPosition opens a position in the INITIAL_STOP stage.
func NewPosition(symbol string, date time.Time, price float64, shares int64, stop float64) types.Position {
	day := types.TradingDay(date)

	return types.Position{
		Symbol:                 symbol,
		EntryDate:              day,
		EntryPrice:             price,
		Shares:                 shares,
		InitialStopLossPrice:   stop,
		StopLossPrice:          stop,
		HighestPriceSinceEntry: price,
		LastPrice:              price,
		LastDate:               day,
		Stage:                  types.PositionStageInitialStop,
		Status:                 "open",
	}
}

// Update applies one bar to the position and returns the result. The highest
// price, the effective stop and the trailing stop never decrease, and the
// breakeven and trailing flags never reset. The stage only moves forward.
func Update(position types.Position, bar types.MarketData, params Params) types.Position {
	next := position

	if bar.High > next.HighestPriceSinceEntry {
		next.HighestPriceSinceEntry = bar.High
	}

	risk := next.InitialRiskPerShare()
	if params.BreakevenRR > 0 && risk > 0 && bar.High-next.EntryPrice >= params.BreakevenRR*risk {
		next.BreakevenPromoted = true
		next.StopLossPrice = math.Max(next.StopLossPrice, next.EntryPrice)
	}

	if next.EntryPrice > 0 && (bar.High-next.EntryPrice)/next.EntryPrice >= params.TrailActivationPct {
		next.TrailingStopActive = true
	}

	if next.TrailingStopActive {
		trail := next.HighestPriceSinceEntry * (1 - params.TrailRetracePct)
		next.CurrentTrailingStopPrice = math.Max(next.CurrentTrailingStopPrice, trail)
	}

	next.LastPrice = bar.Close
	next.LastDate = types.TradingDay(bar.Time)
	if stage := Stage(next); stage.Rank() > next.Stage.Rank() {
		next.Stage = stage
	}

	return next
}

// Stage derives the lifecycle stage from the one-way flags.
func Stage(position types.Position) types.PositionStage {
	switch {
	case position.Stage == types.PositionStageClosed:
		return types.PositionStageClosed
	case position.TrailingStopActive:
		return types.PositionStageTrailingActive
	case position.BreakevenPromoted:
		return types.PositionStageBreakevenPromoted
	default:
		return types.PositionStageInitialStop
	}
}
