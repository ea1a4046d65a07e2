package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/twstock-scanner/internal/ledger"
	"github.com/rxtech-lab/twstock-scanner/internal/ledger/commission_fee"
	"github.com/rxtech-lab/twstock-scanner/internal/position"
	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/internal/version"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
)

// Dialect names a state document layout.
type Dialect string

const (
	DialectCurrent Dialect = "current"
	// DialectUnversioned has the current fields but no usable schema_version.
	DialectUnversioned Dialect = "unversioned"
	// DialectHoldings is the daily scanner layout: cash plus a holdings map
	// keyed by symbol with breakeven_stop_set flags.
	DialectHoldings Dialect = "holdings"
	// DialectBerserker is a bare map of symbol to position without cash. Share
	// counts are optional and sized from the risk limits when missing.
	DialectBerserker Dialect = "berserker"
)

// Sizing is used to size legacy positions stored without a share count.
type Sizing struct {
	Risk ledger.Params
	Fee  commission_fee.CommissionFee
}

// DefaultSizing sizes with the production risk limits and Taiwan costs.
func DefaultSizing() Sizing {
	return Sizing{
		Risk: ledger.DefaultParams(),
		Fee:  commission_fee.NewTaiwanStandardCommissionFee(),
	}
}

type holdingsDocument struct {
	Cash     *float64                 `json:"cash"`
	Holdings map[string]legacyHolding `json:"holdings"`
}

type legacyHolding struct {
	Ticker           string  `json:"ticker"`
	Name             string  `json:"name"`
	Shares           int64   `json:"shares"`
	EntryPrice       float64 `json:"entryPrice"`
	EntryDate        string  `json:"entry_date"`
	StopLossPrice    float64 `json:"stop_loss_price"`
	BreakevenStopSet bool    `json:"breakeven_stop_set"`
	Status           string  `json:"status"`
}

type berserkerPosition struct {
	StockID                  string  `json:"stock_id"`
	Shares                   int64   `json:"shares"`
	EntryDate                string  `json:"entry_date"`
	EntryPrice               float64 `json:"entry_price"`
	InitialStopLossPrice     float64 `json:"initial_stop_loss_price"`
	HighestPriceSinceEntry   float64 `json:"highest_price_since_entry"`
	TrailingStopActive       bool    `json:"trailing_stop_active"`
	CurrentTrailingStopPrice float64 `json:"current_trailing_stop_price"`
}

// Decode parses a state document in any known dialect and converts it to the
// current PortfolioState. Undecodable documents return ErrCodeStateCorrupt.
// Documents from a newer schema return ErrCodeStateMigrationFailed.
// sizing is only read for berserker documents.
func Decode(data []byte, initialCapital float64, now time.Time, sizing Sizing) (*types.PortfolioState, Dialect, []string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, "", nil, errors.Wrap(errors.ErrCodeStateCorrupt, "state is not a JSON object", err)
	}

	if rawVersion, ok := raw["schema_version"]; ok {
		var stored string
		if err := json.Unmarshal(rawVersion, &stored); err != nil {
			return nil, "", nil, errors.Wrap(errors.ErrCodeStateCorrupt, "schema_version is not a string", err)
		}

		if version.IsOlderMajor(types.StateSchemaVersion, stored) {
			state, err := decodeCurrent(data)

			return state, DialectUnversioned, nil, err
		}

		if err := checkSchema(stored); err != nil {
			return nil, "", nil, err
		}

		state, err := decodeCurrent(data)

		return state, DialectCurrent, nil, err
	}

	if _, ok := raw["holdings"]; ok {
		state, warnings, err := decodeHoldings(data, initialCapital, now)

		return state, DialectHoldings, warnings, err
	}

	if _, ok := raw["positions"]; ok {
		state, err := decodeCurrent(data)

		return state, DialectUnversioned, nil, err
	}

	if _, ok := raw["cash"]; ok {
		state, err := decodeCurrent(data)

		return state, DialectUnversioned, nil, err
	}

	state, warnings, err := decodeBerserker(raw, initialCapital, now, sizing)

	return state, DialectBerserker, warnings, err
}

func decodeCurrent(data []byte) (*types.PortfolioState, error) {
	var state types.PortfolioState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStateCorrupt, "failed to decode state", err)
	}

	state.EnsureInitialized()
	state.SchemaVersion = types.StateSchemaVersion

	if state.InitialCapital <= 0 {
		state.InitialCapital = state.Cash
	}

	for symbol, p := range state.Positions {
		if p == nil {
			return nil, errors.Newf(errors.ErrCodeStateCorrupt, "position %s is null", symbol)
		}

		if p.Symbol == "" {
			p.Symbol = symbol
		}

		if p.Stage == "" {
			p.Stage = position.Stage(*p)
		}
	}

	if err := validateState(&state); err != nil {
		return nil, err
	}

	return &state, nil
}

func decodeHoldings(data []byte, initialCapital float64, now time.Time) (*types.PortfolioState, []string, error) {
	var doc holdingsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeStateCorrupt, "failed to decode holdings state", err)
	}

	state := types.NewPortfolioState(initialCapital, now)
	if doc.Cash != nil {
		state.Cash = *doc.Cash
	}

	var warnings []string

	for symbol, h := range doc.Holdings {
		entryDate, warning := parseLegacyDate(h.EntryDate, now)
		if warning != "" {
			warnings = append(warnings, fmt.Sprintf("%s: %s", symbol, warning))
		}

		p := position.NewPosition(symbol, entryDate, h.EntryPrice, h.Shares, h.StopLossPrice)
		p.BreakevenPromoted = h.BreakevenStopSet
		p.Stage = position.Stage(p)

		state.Positions[symbol] = &p
	}

	if err := validateState(state); err != nil {
		return nil, nil, err
	}

	return state, warnings, nil
}

// decodeBerserker converts the bare symbol map. Positions are taken in
// symbol order and paid for out of initialCapital. A position without a share
// count is sized by risk between its entry and initial stop. A position that
// cannot be sized makes the document corrupt.
func decodeBerserker(raw map[string]json.RawMessage, initialCapital float64, now time.Time, sizing Sizing) (*types.PortfolioState, []string, error) {
	state := types.NewPortfolioState(initialCapital, now)
	cash := decimal.NewFromFloat(initialCapital)

	symbols := make([]string, 0, len(raw))
	for symbol := range raw {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	var warnings []string

	for _, symbol := range symbols {
		var b berserkerPosition
		if err := json.Unmarshal(raw[symbol], &b); err != nil {
			return nil, nil, errors.Wrapf(errors.ErrCodeStateCorrupt, err, "failed to decode position %s", symbol)
		}

		if b.EntryPrice <= 0 {
			return nil, nil, errors.Newf(errors.ErrCodeStateCorrupt, "position %s has no entry price", symbol)
		}

		entryDate, warning := parseLegacyDate(b.EntryDate, now)
		if warning != "" {
			warnings = append(warnings, fmt.Sprintf("%s: %s", symbol, warning))
		}

		shares := b.Shares
		if shares <= 0 {
			sized, err := ledger.SizePosition(ledger.SizingInput{
				SignalPrice: b.EntryPrice,
				StopPrice:   b.InitialStopLossPrice,
				TotalEquity: initialCapital,
				RiskPct:     sizing.Risk.RiskPerTrade,
				LotSize:     sizing.Risk.LotSize,
				Cash:        cash.InexactFloat64(),
			}, sizing.Fee)
			if err != nil {
				return nil, nil, errors.Wrapf(errors.ErrCodeStateCorrupt, err,
					"position %s has no share count and cannot be sized; add \"shares\" to the file", symbol)
			}

			shares = sized
			warnings = append(warnings, fmt.Sprintf("%s: no share count, sized to %d shares", symbol, shares))
		}

		value := decimal.NewFromInt(shares).Mul(decimal.NewFromFloat(b.EntryPrice))
		cash = cash.Sub(value.Add(sizing.Fee.BuyCost(value)))

		if cash.IsNegative() {
			return nil, nil, errors.Newf(errors.ErrCodeStateCorrupt,
				"positions up to %s cost more than the initial capital %.2f", symbol, initialCapital)
		}

		p := position.NewPosition(symbol, entryDate, b.EntryPrice, shares, b.InitialStopLossPrice)
		p.HighestPriceSinceEntry = math.Max(b.HighestPriceSinceEntry, b.EntryPrice)
		p.TrailingStopActive = b.TrailingStopActive
		p.CurrentTrailingStopPrice = b.CurrentTrailingStopPrice
		p.Stage = position.Stage(p)

		state.Positions[symbol] = &p
	}

	state.Cash = cash.Round(2).InexactFloat64()

	if err := validateState(state); err != nil {
		return nil, nil, err
	}

	return state, warnings, nil
}

// parseLegacyDate reads a YYYY-MM-DD date. A missing date is replaced by the
// day before now so the position is evaluated on the next scan.
func parseLegacyDate(value string, now time.Time) (time.Time, string) {
	if value != "" {
		if t, err := time.Parse(time.DateOnly, value); err == nil {
			return t, ""
		}
	}

	assumed := types.TradingDay(now).AddDate(0, 0, -1)

	return assumed, fmt.Sprintf("entry date %q unknown, assuming %s", value, assumed.Format(time.DateOnly))
}

func validateState(state *types.PortfolioState) error {
	if math.IsNaN(state.Cash) || math.IsInf(state.Cash, 0) || state.Cash < 0 {
		return errors.Newf(errors.ErrCodeStateCorrupt, "cash %v is invalid", state.Cash)
	}

	for symbol, p := range state.Positions {
		if p.Shares <= 0 {
			return errors.Newf(errors.ErrCodeStateCorrupt, "position %s has %d shares", symbol, p.Shares)
		}

		if p.EntryPrice <= 0 || math.IsNaN(p.EntryPrice) {
			return errors.Newf(errors.ErrCodeStateCorrupt, "position %s has invalid entry price %v", symbol, p.EntryPrice)
		}
	}

	return nil
}

// Migrate loads the state file in whatever dialect it is written and saves it
// back in the current schema.
func (s *FileStore) Migrate() (*LoadResult, error) {
	result, err := s.Load()
	if err != nil {
		return nil, err
	}

	if result.Fresh {
		return result, nil
	}

	if err := s.Save(result.State); err != nil {
		return nil, err
	}

	return result, nil
}
