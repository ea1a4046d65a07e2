// Package scanner runs one daily screening cycle over the paper portfolio.
//
// A cycle loads the persisted state, fetches and annotates history for the
// universe, the held symbols and the market index, closes positions whose
// exit rules fire, opens new positions while the market regime is bullish,
// records the equity point, computes analytics, saves the state and builds
// the report.
package scanner

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rxtech-lab/twstock-scanner/internal/analytics"
	"github.com/rxtech-lab/twstock-scanner/internal/config"
	"github.com/rxtech-lab/twstock-scanner/internal/indicator"
	"github.com/rxtech-lab/twstock-scanner/internal/ledger"
	"github.com/rxtech-lab/twstock-scanner/internal/ledger/commission_fee"
	"github.com/rxtech-lab/twstock-scanner/internal/logger"
	"github.com/rxtech-lab/twstock-scanner/internal/metrics"
	"github.com/rxtech-lab/twstock-scanner/internal/position"
	"github.com/rxtech-lab/twstock-scanner/internal/signal"
	"github.com/rxtech-lab/twstock-scanner/internal/storage"
	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
	"github.com/rxtech-lab/twstock-scanner/pkg/marketdata/provider"
)

// Publisher receives the report and the saved state of a finished cycle.
type Publisher interface {
	Publish(report *types.Report, state *types.PortfolioState) error
}

type Option func(*Scanner)

// WithAnnotator replaces the indicator provider built from the config.
func WithAnnotator(annotator indicator.Annotator) Option {
	return func(s *Scanner) {
		s.annotator = annotator
	}
}

// WithClock sets the time source used for the fetch window and report stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		s.now = now
	}
}

func WithMetrics(registry *metrics.Registry) Option {
	return func(s *Scanner) {
		s.metrics = registry
	}
}

func WithPublisher(publisher Publisher) Option {
	return func(s *Scanner) {
		s.publisher = publisher
	}
}

// WithUniverse fixes the screened symbols instead of reading the universe file.
func WithUniverse(symbols []string) Option {
	return func(s *Scanner) {
		s.universe = symbols
	}
}

type Scanner struct {
	cfg       config.Config
	source    provider.Source
	store     storage.Store
	annotator indicator.Annotator
	fee       commission_fee.CommissionFee
	publisher Publisher
	metrics   *metrics.Registry
	logger    *logger.Logger
	now       func() time.Time
	newRunID  func() string
	universe  []string
}

// New builds a scanner. The indicator provider is built from cfg unless
// WithAnnotator is given.
func New(cfg config.Config, source provider.Source, store storage.Store, log *logger.Logger, opts ...Option) (*Scanner, error) {
	s := &Scanner{
		cfg:      cfg,
		source:   source,
		store:    store,
		fee:      commission_fee.GetCommissionFeeHandler(cfg.Costs),
		logger:   log,
		now:      time.Now,
		newRunID: func() string { return uuid.New().String() },
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.annotator == nil {
		annotator, err := indicator.NewProvider(cfg.Indicators)
		if err != nil {
			return nil, err
		}

		s.annotator = annotator
	}

	return s, nil
}

// cycle carries the working data of one Run.
type cycle struct {
	load      *storage.LoadResult
	ledger    *ledger.Ledger
	universe  []string
	series    map[string]*types.IndicatedSeries
	skipped   []types.SkippedSymbol
	scanDate  time.Time
	bullish   bool
	regime    string
	buys      []types.BuySignal
	sells     []types.SellSignal
	rejected  int
	heldStart map[string]bool
}

// Run executes one cycle. The state is saved before the report is
// published. A failed save aborts the run with an error.
func (s *Scanner) Run(ctx context.Context) (*types.Report, error) {
	started := s.now()

	report, err := s.run(ctx)
	if err != nil {
		s.metrics.ObserveFailure()

		return nil, err
	}

	s.metrics.ObserveReport(report, s.now().Sub(started))

	return report, nil
}

func (s *Scanner) run(ctx context.Context) (*types.Report, error) {
	universe := s.universe
	if len(universe) == 0 {
		loaded, err := LoadUniverse(s.cfg.Universe.File, s.cfg.Universe.Symbols)
		if err != nil {
			return nil, err
		}

		universe = loaded
	}

	load, l, err := s.loadLedger()
	if err != nil {
		return nil, err
	}

	state := l.State()
	c := &cycle{
		load:      load,
		ledger:    l,
		universe:  universe,
		heldStart: make(map[string]bool, len(state.Positions)),
	}

	for _, symbol := range state.HeldSymbols() {
		c.heldStart[symbol] = true
	}

	s.logger.Info("Starting scan",
		zap.Int("universe", len(universe)),
		zap.Int("held", len(c.heldStart)),
		zap.Float64("cash", state.Cash),
	)

	if err := s.fetchAll(ctx, c, s.symbols(c)); err != nil {
		return nil, err
	}

	c.scanDate = s.scanDate(c)

	s.evaluateExits(c)
	s.evaluateEntries(c)

	c.ledger.RecordEquity(c.scanDate)
	performance := analytics.Compute(state.TradeHistory, state.EquityCurve, state.InitialCapital, state.StartDate)

	if err := s.store.Save(state); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStateWriteFailed, "failed to save portfolio state", err)
	}

	report := s.buildReport(c, performance)

	s.logger.Info("Scan finished",
		zap.String("run_id", report.RunID),
		zap.Time("scan_date", report.ScanDate),
		zap.Int("buys", len(report.BuySignals)),
		zap.Int("sells", len(report.SellSignals)),
		zap.Float64("equity", report.Overview.TotalEquity),
	)

	if s.publisher != nil {
		if err := s.publisher.Publish(report, state); err != nil {
			return nil, errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to publish report", err)
		}
	}

	return report, nil
}

// loadLedger loads the saved state and wraps a copy of it in a ledger.
func (s *Scanner) loadLedger() (*storage.LoadResult, *ledger.Ledger, error) {
	load, err := s.store.Load()
	if err != nil {
		return nil, nil, err
	}

	if load.Recovered {
		s.logger.Error("Portfolio state was unreadable, started from a fresh state",
			zap.String("backup", load.BackupPath),
		)
	}

	for _, warning := range load.Warnings {
		s.logger.Warn("State load warning", zap.String("warning", warning))
	}

	return load, ledger.New(load.State.Clone(), s.cfg.Risk, s.fee, s.logger), nil
}

// symbols returns the universe, then held symbols outside it, then the index.
func (s *Scanner) symbols(c *cycle) []string {
	seen := make(map[string]bool)
	out := []string{}

	add := func(symbol string) {
		if !seen[symbol] {
			seen[symbol] = true
			out = append(out, symbol)
		}
	}

	for _, symbol := range c.universe {
		add(symbol)
	}

	for _, symbol := range c.ledger.State().HeldSymbols() {
		add(symbol)
	}

	add(s.cfg.Data.IndexSymbol)

	return out
}

// fetchAll loads and annotates every symbol with bounded concurrency. A
// symbol that fails is skipped. Only cancellation aborts the cycle.
func (s *Scanner) fetchAll(ctx context.Context, c *cycle, symbols []string) error {
	end := types.TradingDay(s.now())
	start := end.AddDate(0, 0, -s.cfg.Scan.LookbackDays)

	var mu sync.Mutex

	c.series = make(map[string]*types.IndicatedSeries, len(symbols))

	skip := func(symbol string, err error) {
		s.metrics.ObserveFetchFailure(strconv.Itoa(int(errors.GetCode(err))))
		if errors.IsDataUnavailable(err) {
			s.logger.Warn("Skipping symbol", zap.String("symbol", symbol), zap.Error(err))
		} else {
			s.logger.Error("Skipping symbol", zap.String("symbol", symbol), zap.Error(err))
		}

		mu.Lock()
		c.skipped = append(c.skipped, types.SkippedSymbol{Symbol: symbol, Reason: err.Error()})
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Fetch.Concurrency)

	for _, symbol := range symbols {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			bars, err := s.source.FetchDailyBars(gctx, symbol, start, end)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}

				skip(symbol, err)

				return nil
			}

			series, err := s.annotator.Annotate(symbol, bars)
			if err != nil {
				skip(symbol, err)

				return nil
			}

			mu.Lock()
			c.series[symbol] = series
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("scan cancelled: %w", err)
	}

	sort.Slice(c.skipped, func(i, j int) bool {
		return c.skipped[i].Symbol < c.skipped[j].Symbol
	})

	return nil
}

// scanDate is the latest index bar, else the latest bar of any symbol, else
// today.
func (s *Scanner) scanDate(c *cycle) time.Time {
	if bar, ok := c.series[s.cfg.Data.IndexSymbol].LastBar(); ok {
		return types.TradingDay(bar.Time)
	}

	var latest time.Time

	for _, series := range c.series {
		if bar, ok := series.LastBar(); ok && bar.Time.After(latest) {
			latest = bar.Time
		}
	}

	if latest.IsZero() {
		return types.TradingDay(s.now())
	}

	return types.TradingDay(latest)
}

func (s *Scanner) evaluateExits(c *cycle) {
	state := c.ledger.State()

	for _, symbol := range state.HeldSymbols() {
		p := state.Positions[symbol]

		series, ok := c.series[symbol]
		if !ok {
			s.logger.Warn("No data for held position, keeping last mark", zap.String("symbol", symbol))

			continue
		}

		bar, ok := series.LastBar()
		if !ok || !types.TradingDay(bar.Time).After(p.EntryDate) {
			continue
		}

		updated := position.Update(*p, bar, s.cfg.Stops)
		*p = updated

		decision, err := signal.EvaluateExit(updated, series, s.cfg.Strategy).Take()
		if err != nil {
			continue
		}

		trade, err := c.ledger.ClosePosition(symbol, decision.Price, decision.Reason, decision.Date)
		if err != nil {
			s.logger.Error("Failed to close position", zap.String("symbol", symbol), zap.Error(err))

			continue
		}

		c.sells = append(c.sells, types.SellSignal{
			Symbol:    symbol,
			Reason:    trade.ExitReason,
			ExitPrice: trade.ExitPrice,
			NetPnL:    trade.NetPnL,
		})
	}
}

func (s *Scanner) evaluateEntries(c *cycle) {
	c.bullish, c.regime = signal.MarketRegimeBullish(c.series[s.cfg.Data.IndexSymbol])
	if !c.bullish {
		s.logger.Info("Market regime is not bullish, no entries", zap.String("reason", c.regime))

		return
	}

	for _, symbol := range c.universe {
		if c.heldStart[symbol] || symbol == s.cfg.Data.IndexSymbol {
			continue
		}

		if _, held := c.ledger.State().Positions[symbol]; held {
			continue
		}

		series, ok := c.series[symbol]
		if !ok {
			continue
		}

		if series.Len() < s.cfg.Scan.MinHistoryBars {
			c.skipped = append(c.skipped, types.SkippedSymbol{
				Symbol: symbol,
				Reason: fmt.Sprintf("insufficient history: %d bars, need %d", series.Len(), s.cfg.Scan.MinHistoryBars),
			})

			continue
		}

		bar, _ := series.LastBar()
		if !types.TradingDay(bar.Time).Equal(c.scanDate) {
			s.logger.Debug("Latest bar is not on the scan date", zap.String("symbol", symbol), zap.Time("bar", bar.Time))

			continue
		}

		decision := signal.EvaluateEntry(series, s.cfg.Strategy)
		if !decision.Triggered {
			s.logger.Debug("No entry", zap.String("symbol", symbol), zap.String("reason", decision.Reason))

			continue
		}

		if err := s.enter(c, decision); err != nil {
			c.rejected++

			if errors.IsInvariantViolation(err) {
				s.logger.Info("Entry rejected", zap.String("symbol", symbol), zap.Error(err))
			} else {
				s.logger.Error("Entry rejected", zap.String("symbol", symbol), zap.Error(err))
			}
		}
	}
}

func (s *Scanner) enter(c *cycle, decision signal.EntryDecision) error {
	if c.ledger.AvailableSlots() == 0 {
		return errors.Newf(errors.ErrCodeMaxPositionsReached, "no free position slot for %s", decision.Symbol)
	}

	stop, err := position.InitialStop(decision.Price, decision.ATR, s.cfg.Stops)
	if err != nil {
		return err
	}

	shares, err := c.ledger.Size(decision.Price, stop)
	if err != nil {
		return err
	}

	if err := c.ledger.OpenPosition(decision.Symbol, decision.Date, decision.Price, stop, shares); err != nil {
		return err
	}

	c.buys = append(c.buys, types.BuySignal{
		Symbol:        decision.Symbol,
		StopLoss:      stop,
		SignalPrice:   decision.Price,
		SharesToBuy:   shares,
		EstimatedCost: c.ledger.EstimatedCost(decision.Price, shares),
	})

	return nil
}

func (s *Scanner) buildReport(c *cycle, performance types.PerformanceMetrics) *types.Report {
	state := c.ledger.State()

	holdings := make([]types.HoldingView, 0, len(state.Positions))
	for _, symbol := range state.HeldSymbols() {
		holdings = append(holdings, types.NewHoldingView(*state.Positions[symbol]))
	}

	status := types.ScanStatusNoSignals
	message := "No buy or sell signals today"

	if len(c.buys)+len(c.sells) > 0 {
		status = types.ScanStatusSignals
		message = fmt.Sprintf("%d buy and %d sell signals", len(c.buys), len(c.sells))
	}

	if !c.bullish {
		message += "; " + c.regime
	}

	equity := c.ledger.TotalEquity()

	return &types.Report{
		RunID:       s.newRunID(),
		GeneratedAt: s.now(),
		ScanDate:    c.scanDate,
		Summary: types.ScanSummary{
			Status:          status,
			MarketBullish:   c.bullish,
			SymbolsScanned:  len(c.series),
			SymbolsSkipped:  len(c.skipped),
			EntriesOpened:   len(c.buys),
			EntriesRejected: c.rejected,
			ExitsClosed:     len(c.sells),
			StateRecovered:  c.load.Recovered,
			Message:         message,
		},
		Overview: types.Overview{
			Cash:           state.Cash,
			HoldingsValue:  c.ledger.HoldingsValue(),
			TotalEquity:    equity,
			NetPnL:         equity - state.InitialCapital,
			InitialCapital: state.InitialCapital,
			OpenPositions:  len(state.Positions),
			MaxPositions:   s.cfg.Risk.MaxPositions,
		},
		Holdings:           holdings,
		BuySignals:         nonNil(c.buys),
		SellSignals:        nonNil(c.sells),
		PerformanceMetrics: performance,
		Skipped:            nonNil(c.skipped),
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}
