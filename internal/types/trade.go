package types

import (
	"time"
)

// ExitReason explains why a position was closed. The order of the constants
// is the order in which exit rules are tested.
type ExitReason string

const (
	ExitReasonTrailingStop   ExitReason = "trailing stop"
	ExitReasonStopLoss       ExitReason = "stop loss"
	ExitReasonBreakevenStop  ExitReason = "breakeven stop"
	ExitReasonMACDDeathCross ExitReason = "macd death cross"
	ExitReasonRSIExhaustion  ExitReason = "rsi exhaustion"
	ExitReasonManual         ExitReason = "manual"
)

// Priority returns the rank of the reason in the exit test, lowest first.
func (r ExitReason) Priority() int {
	switch r {
	case ExitReasonTrailingStop:
		return 1
	case ExitReasonStopLoss, ExitReasonBreakevenStop:
		return 2
	case ExitReasonMACDDeathCross:
		return 3
	case ExitReasonRSIExhaustion:
		return 4
	default:
		return 99
	}
}

// IsStop reports whether the reason fills at a stop level instead of the close.
func (r ExitReason) IsStop() bool {
	return r == ExitReasonTrailingStop || r == ExitReasonStopLoss || r == ExitReasonBreakevenStop
}

// ClosedTrade is an immutable record of a realized round trip.
type ClosedTrade struct {
	ID         string    `json:"id" csv:"id"`
	Symbol     string    `json:"symbol" csv:"symbol"`
	EntryDate  time.Time `json:"entry_date" csv:"entry_date"`
	ExitDate   time.Time `json:"exit_date" csv:"exit_date"`
	EntryPrice float64   `json:"entry_price" csv:"entry_price"`
	ExitPrice  float64   `json:"exit_price" csv:"exit_price"`
	Shares     int64     `json:"shares" csv:"shares"`
	EntryValue float64   `json:"entry_value" csv:"entry_value"`
	ExitValue  float64   `json:"exit_value" csv:"exit_value"`
	// GrossPnL is (exit - entry) * shares before costs.
	GrossPnL float64 `json:"gross_pnl" csv:"gross_pnl"`
	// TransactionCost is buy fee + sell fee + transaction tax.
	TransactionCost float64 `json:"transaction_cost" csv:"transaction_cost"`
	NetPnL          float64 `json:"net_pnl" csv:"net_pnl"`
	// ReturnPct is NetPnL as a percentage of EntryValue.
	ReturnPct   float64    `json:"return_pct" csv:"return_pct"`
	HoldingDays int        `json:"holding_days" csv:"holding_days"`
	ExitReason  ExitReason `json:"exit_reason" csv:"exit_reason"`
}

// IsWin reports whether the trade made money after costs.
func (t ClosedTrade) IsWin() bool {
	return t.NetPnL > 0
}
