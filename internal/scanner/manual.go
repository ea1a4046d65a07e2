package scanner

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/twstock-scanner/internal/position"
	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
)

// ManualEntry is a holding bought outside the scanner.
type ManualEntry struct {
	Symbol string
	Date   time.Time
	Price  float64
	// Shares of zero sizes the position from the risk limits.
	Shares int64
	// HighestPrice seeds the high-water mark when the holding already ran up.
	HighestPrice float64
}

// AddPosition records a manual holding. The initial stop comes from the ATR
// of the last bar on or before the entry date, the same way a scanned entry
// is stopped.
func (s *Scanner) AddPosition(ctx context.Context, entry ManualEntry) (types.Position, error) {
	if entry.Symbol == "" {
		return types.Position{}, errors.New(errors.ErrCodeMissingParameter, "symbol is required")
	}

	if entry.Price <= 0 || math.IsNaN(entry.Price) {
		return types.Position{}, errors.Newf(errors.ErrCodeInvalidParameter, "entry price must be positive, got %v", entry.Price)
	}

	day := types.TradingDay(entry.Date)
	if entry.Date.IsZero() {
		day = types.TradingDay(s.now())
	}

	atr, err := s.atrOn(ctx, entry.Symbol, day)
	if err != nil {
		return types.Position{}, err
	}

	stop, err := position.InitialStop(entry.Price, atr, s.cfg.Stops)
	if err != nil {
		return types.Position{}, err
	}

	_, l, err := s.loadLedger()
	if err != nil {
		return types.Position{}, err
	}

	state := l.State()

	shares := entry.Shares
	if shares == 0 {
		if shares, err = l.Size(entry.Price, stop); err != nil {
			return types.Position{}, err
		}
	}

	if err := l.OpenPosition(entry.Symbol, day, entry.Price, stop, shares); err != nil {
		return types.Position{}, err
	}

	p := state.Positions[entry.Symbol]
	if entry.HighestPrice > p.HighestPriceSinceEntry {
		p.HighestPriceSinceEntry = entry.HighestPrice
	}

	if err := s.store.Save(state); err != nil {
		return types.Position{}, errors.Wrap(errors.ErrCodeStateWriteFailed, "failed to save portfolio state", err)
	}

	s.logger.Info("Added manual position",
		zap.String("symbol", p.Symbol),
		zap.Time("entry_date", p.EntryDate),
		zap.Float64("atr", atr),
		zap.Float64("stop", p.StopLossPrice),
		zap.Int64("shares", p.Shares),
	)

	return *p, nil
}

// ClosePosition sells a holding by hand at price and records the trade with
// the manual exit reason.
func (s *Scanner) ClosePosition(symbol string, price float64, date time.Time) (types.ClosedTrade, error) {
	day := types.TradingDay(date)
	if date.IsZero() {
		day = types.TradingDay(s.now())
	}

	_, l, err := s.loadLedger()
	if err != nil {
		return types.ClosedTrade{}, err
	}

	trade, err := l.ClosePosition(symbol, price, types.ExitReasonManual, day)
	if err != nil {
		return types.ClosedTrade{}, err
	}

	if err := s.store.Save(l.State()); err != nil {
		return types.ClosedTrade{}, errors.Wrap(errors.ErrCodeStateWriteFailed, "failed to save portfolio state", err)
	}

	s.logger.Info("Closed manual position",
		zap.String("symbol", trade.Symbol),
		zap.Float64("exit_price", trade.ExitPrice),
		zap.Float64("net_pnl", trade.NetPnL),
	)

	return trade, nil
}

// atrOn returns the ATR of the last bar on or before day.
func (s *Scanner) atrOn(ctx context.Context, symbol string, day time.Time) (float64, error) {
	start := day.AddDate(0, 0, -s.cfg.Scan.LookbackDays)

	bars, err := s.source.FetchDailyBars(ctx, symbol, start, day)
	if err != nil {
		return 0, err
	}

	series, err := s.annotator.Annotate(symbol, bars)
	if err != nil {
		return 0, err
	}

	row := sort.Search(series.Len(), func(i int) bool {
		return types.TradingDay(series.Bars[i].Time).After(day)
	}) - 1
	if row < 0 {
		return 0, errors.Newf(errors.ErrCodeNoDataFound, "no %s bar on or before %s", symbol, day.Format(time.DateOnly))
	}

	atr := series.Value(types.ColumnATR, row)
	if math.IsNaN(atr) || atr <= 0 {
		return 0, errors.Newf(errors.ErrCodeInsufficientData, "ATR of %s is undefined on %s", symbol, series.Bars[row].Time.Format(time.DateOnly))
	}

	return atr, nil
}
