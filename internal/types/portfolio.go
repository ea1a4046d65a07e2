package types

import (
	"sort"
	"time"
)

// StateSchemaVersion is written into every persisted PortfolioState.
const StateSchemaVersion = "2.0.0"

// EquityPoint is the total equity at the close of a scan day.
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
}

// PortfolioState is the persisted unit of the paper portfolio.
type PortfolioState struct {
	SchemaVersion  string               `json:"schema_version"`
	Cash           float64              `json:"cash"`
	InitialCapital float64              `json:"initial_capital"`
	StartDate      time.Time            `json:"start_date"`
	LastScanDate   time.Time            `json:"last_scan_date,omitempty"`
	Positions      map[string]*Position `json:"positions"`
	TradeHistory   []ClosedTrade        `json:"trade_history"`
	EquityCurve    []EquityPoint        `json:"equity_curve"`
}

// NewPortfolioState creates the state of a first run.
func NewPortfolioState(initialCapital float64, startDate time.Time) *PortfolioState {
	return &PortfolioState{
		SchemaVersion:  StateSchemaVersion,
		Cash:           initialCapital,
		InitialCapital: initialCapital,
		StartDate:      TradingDay(startDate),
		Positions:      make(map[string]*Position),
		TradeHistory:   []ClosedTrade{},
		EquityCurve:    []EquityPoint{},
	}
}

// Clone returns a deep copy so a scan can work on a scratch state and only
// replace the persisted one when the whole cycle succeeds.
func (s *PortfolioState) Clone() *PortfolioState {
	out := *s

	out.Positions = make(map[string]*Position, len(s.Positions))
	for symbol, p := range s.Positions {
		cp := *p
		out.Positions[symbol] = &cp
	}

	out.TradeHistory = append([]ClosedTrade{}, s.TradeHistory...)
	out.EquityCurve = append([]EquityPoint{}, s.EquityCurve...)

	return &out
}

// HeldSymbols returns the symbols of the open positions in sorted order.
func (s *PortfolioState) HeldSymbols() []string {
	symbols := make([]string, 0, len(s.Positions))
	for symbol := range s.Positions {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols
}

// EnsureInitialized fills nil collections after decoding a sparse document.
func (s *PortfolioState) EnsureInitialized() {
	if s.Positions == nil {
		s.Positions = make(map[string]*Position)
	}

	if s.TradeHistory == nil {
		s.TradeHistory = []ClosedTrade{}
	}

	if s.EquityCurve == nil {
		s.EquityCurve = []EquityPoint{}
	}

	if s.SchemaVersion == "" {
		s.SchemaVersion = StateSchemaVersion
	}
}
