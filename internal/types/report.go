package types

import "time"

// ScanStatus distinguishes a quiet day from a day with actions.
type ScanStatus string

const (
	ScanStatusSignals   ScanStatus = "signals"
	ScanStatusNoSignals ScanStatus = "no_signals"
)

// Report is the document handed to the dashboard and the HTML renderer.
// Field names are part of the dashboard contract and must stay stable.
type Report struct {
	RunID              string             `json:"run_id"`
	GeneratedAt        time.Time          `json:"generated_at"`
	ScanDate           time.Time          `json:"scan_date"`
	Summary            ScanSummary        `json:"summary"`
	Overview           Overview           `json:"overview"`
	Holdings           []HoldingView      `json:"holdings"`
	BuySignals         []BuySignal        `json:"buy_signals"`
	SellSignals        []SellSignal       `json:"sell_signals"`
	PerformanceMetrics PerformanceMetrics `json:"performance_metrics"`
	Skipped            []SkippedSymbol    `json:"skipped"`
}

// ScanSummary is a short account of what the cycle did.
type ScanSummary struct {
	Status          ScanStatus `json:"status"`
	MarketBullish   bool       `json:"market_bullish"`
	SymbolsScanned  int        `json:"symbols_scanned"`
	SymbolsSkipped  int        `json:"symbols_skipped"`
	EntriesOpened   int        `json:"entries_opened"`
	EntriesRejected int        `json:"entries_rejected"`
	ExitsClosed     int        `json:"exits_closed"`
	StateRecovered  bool       `json:"state_recovered"`
	Message         string     `json:"message"`
}

type Overview struct {
	Cash           float64 `json:"cash"`
	HoldingsValue  float64 `json:"holdings_value"`
	TotalEquity    float64 `json:"total_equity"`
	NetPnL         float64 `json:"net_pnl"`
	InitialCapital float64 `json:"initial_capital"`
	OpenPositions  int     `json:"open_positions"`
	MaxPositions   int     `json:"max_positions"`
}

// HoldingView is a display projection of a Position.
type HoldingView struct {
	Symbol               string        `json:"symbol"`
	EntryDate            time.Time     `json:"entry_date"`
	EntryPrice           float64       `json:"entry_price"`
	Shares               int64         `json:"shares"`
	CurrentPrice         float64       `json:"current_price"`
	MarketValue          float64       `json:"market_value"`
	UnrealizedPnL        float64       `json:"unrealized_pnl"`
	UnrealizedPct        float64       `json:"unrealized_pct"`
	InitialStopLossPrice float64       `json:"initial_stop_loss_price"`
	StopLossPrice        float64       `json:"stop_loss_price"`
	TrailingStopActive   bool          `json:"trailing_stop_active"`
	TrailingStopPrice    float64       `json:"current_trailing_stop_price"`
	HighestPrice         float64       `json:"highest_price_since_entry"`
	Stage                PositionStage `json:"stage"`
	Status               string        `json:"status"`
}

type BuySignal struct {
	Symbol        string  `json:"symbol"`
	StopLoss      float64 `json:"stop_loss"`
	SignalPrice   float64 `json:"signal_price"`
	SharesToBuy   int64   `json:"shares_to_buy"`
	EstimatedCost float64 `json:"estimated_cost"`
}

type SellSignal struct {
	Symbol    string     `json:"symbol"`
	Reason    ExitReason `json:"reason"`
	ExitPrice float64    `json:"exit_price"`
	NetPnL    float64    `json:"net_pnl"`
}

// SkippedSymbol records a symbol left out of the cycle and why.
type SkippedSymbol struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// NewHoldingView projects a position for display.
func NewHoldingView(p Position) HoldingView {
	pct := 0.0
	if p.EntryValue() > 0 {
		pct = p.UnrealizedPnL() / p.EntryValue() * 100
	}

	return HoldingView{
		Symbol:               p.Symbol,
		EntryDate:            p.EntryDate,
		EntryPrice:           p.EntryPrice,
		Shares:               p.Shares,
		CurrentPrice:         p.MarkPrice(),
		MarketValue:          p.MarketValue(),
		UnrealizedPnL:        p.UnrealizedPnL(),
		UnrealizedPct:        pct,
		InitialStopLossPrice: p.InitialStopLossPrice,
		StopLossPrice:        p.StopLossPrice,
		TrailingStopActive:   p.TrailingStopActive,
		TrailingStopPrice:    p.CurrentTrailingStopPrice,
		HighestPrice:         p.HighestPriceSinceEntry,
		Stage:                p.Stage,
		Status:               p.Status,
	}
}
