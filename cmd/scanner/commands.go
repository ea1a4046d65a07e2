package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/twstock-scanner/internal/config"
	"github.com/rxtech-lab/twstock-scanner/internal/dashboard"
	"github.com/rxtech-lab/twstock-scanner/internal/ledger/commission_fee"
	"github.com/rxtech-lab/twstock-scanner/internal/logger"
	"github.com/rxtech-lab/twstock-scanner/internal/metrics"
	"github.com/rxtech-lab/twstock-scanner/internal/report"
	"github.com/rxtech-lab/twstock-scanner/internal/scanner"
	"github.com/rxtech-lab/twstock-scanner/internal/storage"
	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/mocks"
	"github.com/rxtech-lab/twstock-scanner/pkg/marketdata"
	"github.com/rxtech-lab/twstock-scanner/pkg/marketdata/provider"
	"github.com/rxtech-lab/twstock-scanner/pkg/marketdata/writer"
)

const (
	schemaFile       = "twscan-config.json"
	sampleConfigFile = "twscan-config.yaml"
)

// loadConfig reads --config. A missing default config file is not an error.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	path := cmd.String("config")
	if path == defaultConfigPath && !cmd.IsSet("config") {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if level := cmd.String("log-level"); level != "" {
		cfg.Log.Level = level
	}

	return cfg, nil
}

func setup(cmd *cli.Command) (config.Config, *logger.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return config.Config{}, nil, err
	}

	log, err := logger.NewLoggerWithOptions(logger.Options{Level: cfg.Log.Level, LogDir: cfg.Log.Dir})
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return cfg, log, nil
}

func newScanner(cfg config.Config, log *logger.Logger, registry *metrics.Registry) (*scanner.Scanner, func(), error) {
	source, err := marketdata.NewSource(cfg.Fetch.Provider, cfg.ProviderConfig(), log)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if closer, ok := source.(io.Closer); ok {
			_ = closer.Close()
		}
	}

	store := newStore(cfg, log)
	publisher := report.NewWriter(report.Options{
		Dir:           cfg.Output.ReportDir,
		LogDir:        cfg.Log.Dir,
		ExportParquet: cfg.Output.ExportParquet,
	}, log)

	s, err := scanner.New(cfg, source, store, log,
		scanner.WithPublisher(publisher),
		scanner.WithMetrics(registry),
	)
	if err != nil {
		cleanup()

		return nil, nil, err
	}

	return s, cleanup, nil
}

func scanAction(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	s, cleanup, err := newScanner(cfg, log, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := s.Run(ctx)
	if err != nil {
		log.Error("Scan failed", zap.Error(err))

		return err
	}

	printSummary(cmd.Root().Writer, result)

	return nil
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	symbols, err := commandSymbols(cmd, cfg)
	if err != nil {
		return err
	}

	providerType := cfg.Fetch.Provider
	if name := cmd.String("provider"); name != "" {
		providerType = provider.ProviderType(name)
	}

	csvDir := cmd.String("from-csv")
	if csvDir == "" && providerType == provider.ProviderLocal {
		return fmt.Errorf("provider %q has nothing to download; pass --provider or --from-csv", providerType)
	}

	if csvDir != "" {
		providerType = provider.ProviderLocal
	}

	client, err := marketdata.NewClient(marketdata.ClientConfig{
		ProviderType: providerType,
		DataPath:     cfg.Data.Dir,
		Provider:     cfg.ProviderConfig(),
	}, log)
	if err != nil {
		return err
	}

	var result marketdata.DownloadResult

	if csvDir != "" {
		result, err = client.ConvertCSV(ctx, csvDir, symbols)
	} else {
		lookback := cmd.Int("lookback")
		if lookback <= 0 {
			lookback = cfg.Scan.LookbackDays
		}

		result, err = client.Download(ctx, marketdata.DownloadParams{
			Symbols:      symbols,
			EndDate:      types.TradingDay(cmd.Timestamp("end")),
			LookbackDays: lookback,
		})
	}

	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	for _, res := range result.Symbols {
		switch {
		case res.Err != nil:
			fmt.Fprintf(out, "%-8s failed: %v\n", res.Symbol, res.Err)
		case res.Skipped:
			fmt.Fprintf(out, "%-8s up to date\n", res.Symbol)
		default:
			fmt.Fprintf(out, "%-8s +%d bars -> %s\n", res.Symbol, res.Added, res.Path)
		}
	}

	if failed := result.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d symbols failed", len(failed), len(result.Symbols))
	}

	return nil
}

func reportAction(_ context.Context, cmd *cli.Command) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	plan, err := report.ReadPlan(cfg.Output.ReportDir)
	if err != nil {
		return err
	}

	w := report.NewWriter(report.Options{Dir: cfg.Output.ReportDir, LogDir: cfg.Log.Dir}, log)
	if err := w.WriteHTML(plan); err != nil {
		return err
	}

	printSummary(cmd.Root().Writer, plan)

	return nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	registry := metrics.NewRegistry()

	s, cleanup, err := newScanner(cfg, log, registry)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := dashboard.DefaultOptions()
	opts.Addr = cfg.Dashboard.Addr
	opts.ReportDir = cfg.Output.ReportDir
	opts.LogDir = cfg.Log.Dir

	if addr := cmd.String("addr"); addr != "" {
		opts.Addr = addr
	}

	store := newStore(cfg, log)
	server := dashboard.NewServer(opts, store, s.Run, registry, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	}
}

func positionAddAction(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	s, cleanup, err := newScanner(cfg, log, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := s.AddPosition(ctx, scanner.ManualEntry{
		Symbol:       cmd.String("symbol"),
		Date:         cmd.Timestamp("date"),
		Price:        cmd.Float("price"),
		Shares:       cmd.Int64("shares"),
		HighestPrice: cmd.Float("highest"),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "Added %s: %d shares @ %.2f on %s, stop %.2f\n",
		p.Symbol, p.Shares, p.EntryPrice, p.EntryDate.Format(time.DateOnly), p.StopLossPrice)

	return nil
}

func positionCloseAction(_ context.Context, cmd *cli.Command) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	s, cleanup, err := newScanner(cfg, log, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	trade, err := s.ClosePosition(cmd.String("symbol"), cmd.Float("price"), cmd.Timestamp("date"))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "Closed %s: %d shares @ %.2f, net %.0f (%.2f%%)\n",
		trade.Symbol, trade.Shares, trade.ExitPrice, trade.NetPnL, trade.ReturnPct)

	return nil
}

func migrateAction(_ context.Context, cmd *cli.Command) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	store := newStore(cfg, log)

	result, err := store.Migrate()
	if err != nil {
		return err
	}

	out := cmd.Root().Writer

	switch {
	case result.Fresh:
		fmt.Fprintf(out, "No state file at %s, nothing to migrate\n", store.Path())
	case result.Recovered:
		fmt.Fprintf(out, "State file was unreadable and moved to %s\n", result.BackupPath)
	default:
		fmt.Fprintf(out, "Migrated %s from %s: %d positions, %d trades\n",
			store.Path(), result.MigratedFrom, len(result.State.Positions), len(result.State.TradeHistory))
	}

	for _, warning := range result.Warnings {
		fmt.Fprintln(out, "warning:", warning)
	}

	return nil
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	dir := cmd.String("out")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	schema, err := config.GenerateSchema()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	schemaPath := filepath.Join(dir, schemaFile)
	if err := os.WriteFile(schemaPath, []byte(schema), 0o644); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}

	out := cmd.Root().Writer
	fmt.Fprintf(out, "Schema written to %s\n", schemaPath)

	samplePath := filepath.Join(dir, sampleConfigFile)
	if _, err := os.Stat(samplePath); err == nil {
		return nil
	}

	sample, err := yaml.Marshal(config.Default())
	if err != nil {
		return fmt.Errorf("failed to marshal sample config: %w", err)
	}

	sample = append([]byte("# yaml-language-server: $schema="+schemaFile+"\n"), sample...)
	if err := os.WriteFile(samplePath, sample, 0o644); err != nil {
		return fmt.Errorf("failed to write sample config: %w", err)
	}

	fmt.Fprintf(out, "Sample config written to %s\n", samplePath)

	return nil
}

func generateAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	symbols, err := commandSymbols(cmd, cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	count := cmd.Int("bars")
	end := types.TradingDay(cmd.Timestamp("end"))
	generator := mocks.NewDataGenerator(cmd.Int64("seed"))

	for _, symbol := range symbols {
		gen := mocks.DefaultConfig()
		gen.Symbol = symbol
		gen.Count = count
		gen.StartDate = sessionsBefore(end, count)

		path := provider.HistoryPath(cfg.Data.Dir, symbol, ".parquet")
		if err := writeBars(path, generator.Generate(gen)); err != nil {
			return fmt.Errorf("failed to write %s: %w", symbol, err)
		}

		fmt.Fprintf(cmd.Root().Writer, "%-8s %d bars -> %s\n", symbol, count, path)
	}

	return nil
}

// commandSymbols returns --symbols, or the universe followed by the index.
func commandSymbols(cmd *cli.Command, cfg config.Config) ([]string, error) {
	if symbols := cmd.StringSlice("symbols"); len(symbols) > 0 {
		return symbols, nil
	}

	universe, err := scanner.LoadUniverse(cfg.Universe.File, cfg.Universe.Symbols)
	if err != nil {
		return nil, err
	}

	return append(universe, cfg.Data.IndexSymbol), nil
}

// sessionsBefore returns the weekday that starts a run of count weekdays
// ending on end.
func sessionsBefore(end time.Time, count int) time.Time {
	day := end
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, -1)
	}

	for i := 1; i < count; i++ {
		day = day.AddDate(0, 0, -1)
		for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			day = day.AddDate(0, 0, -1)
		}
	}

	return day
}

func writeBars(path string, bars []types.MarketData) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}

	w := writer.NewDuckDBWriter(path)
	if err := w.Initialize(); err != nil {
		return err
	}
	defer w.Close()

	for _, bar := range bars {
		if err := w.Write(bar); err != nil {
			return err
		}
	}

	_, err := w.Finalize()

	return err
}

func printSummary(out io.Writer, r *types.Report) {
	fmt.Fprintf(out, "Scan %s (%s): %s\n", r.ScanDate.Format(time.DateOnly), r.Summary.Status, r.Summary.Message)
	fmt.Fprintf(out, "Equity %.0f  Cash %.0f  Positions %d/%d\n",
		r.Overview.TotalEquity, r.Overview.Cash, r.Overview.OpenPositions, r.Overview.MaxPositions)

	for _, sell := range r.SellSignals {
		fmt.Fprintf(out, "  SELL %-8s %-18s @ %.2f  net %.0f\n", sell.Symbol, sell.Reason, sell.ExitPrice, sell.NetPnL)
	}

	for _, buy := range r.BuySignals {
		fmt.Fprintf(out, "  BUY  %-8s %d shares @ %.2f  stop %.2f  cost %.0f\n",
			buy.Symbol, buy.SharesToBuy, buy.SignalPrice, buy.StopLoss, buy.EstimatedCost)
	}

	if r.Summary.StateRecovered {
		fmt.Fprintln(out, "  WARNING: the state file was corrupt and a fresh portfolio was started")
	}
}

func newStore(cfg config.Config, log *logger.Logger) *storage.FileStore {
	return storage.NewFileStore(cfg.Output.StateFile, cfg.Risk.InitialCapital, log, storage.WithSizing(storage.Sizing{
		Risk: cfg.Risk,
		Fee:  commission_fee.GetCommissionFeeHandler(cfg.Costs),
	}))
}
