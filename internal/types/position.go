package types

import (
	"time"
)

// PositionStage is the lifecycle stage of an open position. Stages only move
// forward: INITIAL_STOP, BREAKEVEN_PROMOTED, TRAILING_ACTIVE, CLOSED.
type PositionStage string

const (
	PositionStageInitialStop       PositionStage = "INITIAL_STOP"
	PositionStageBreakevenPromoted PositionStage = "BREAKEVEN_PROMOTED"
	PositionStageTrailingActive    PositionStage = "TRAILING_ACTIVE"
	PositionStageClosed            PositionStage = "CLOSED"
)

// Rank orders stages so callers can assert they never move backwards.
func (s PositionStage) Rank() int {
	switch s {
	case PositionStageInitialStop:
		return 0
	case PositionStageBreakevenPromoted:
		return 1
	case PositionStageTrailingActive:
		return 2
	case PositionStageClosed:
		return 3
	default:
		return -1
	}
}

// Position is one open holding.
type Position struct {
	Symbol     string    `json:"symbol"`
	EntryDate  time.Time `json:"entry_date"`
	EntryPrice float64   `json:"entry_price"`
	Shares     int64     `json:"shares"`
	// InitialStopLossPrice is fixed at entry and defines the initial risk.
	InitialStopLossPrice float64 `json:"initial_stop_loss_price"`
	// StopLossPrice is the effective hard stop. It starts at the initial stop
	// and is raised to the entry price on breakeven promotion.
	StopLossPrice            float64 `json:"stop_loss_price"`
	HighestPriceSinceEntry   float64 `json:"highest_price_since_entry"`
	BreakevenPromoted        bool    `json:"breakeven_promoted"`
	TrailingStopActive       bool    `json:"trailing_stop_active"`
	CurrentTrailingStopPrice float64 `json:"current_trailing_stop_price"`
	// LastPrice is the most recent close used for mark-to-market.
	LastPrice float64       `json:"last_price"`
	LastDate  time.Time     `json:"last_date"`
	Stage     PositionStage `json:"stage"`
	Status    string        `json:"status"`
}

// EntryValue is the cost basis before fees.
func (p Position) EntryValue() float64 {
	return p.EntryPrice * float64(p.Shares)
}

// MarkPrice returns the last seen close, falling back to the entry price.
func (p Position) MarkPrice() float64 {
	if p.LastPrice > 0 {
		return p.LastPrice
	}

	return p.EntryPrice
}

// MarketValue is shares times the mark price.
func (p Position) MarketValue() float64 {
	return p.MarkPrice() * float64(p.Shares)
}

// UnrealizedPnL is the gross mark-to-market gain before costs.
func (p Position) UnrealizedPnL() float64 {
	return (p.MarkPrice() - p.EntryPrice) * float64(p.Shares)
}

// InitialRiskPerShare is the distance between entry and the initial stop.
func (p Position) InitialRiskPerShare() float64 {
	return p.EntryPrice - p.InitialStopLossPrice
}
