package marketdata

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/rxtech-lab/twstock-scanner/internal/logger"
	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
	"github.com/rxtech-lab/twstock-scanner/pkg/marketdata/provider"
	"github.com/rxtech-lab/twstock-scanner/pkg/marketdata/writer"
)

// SymbolResult is the outcome of updating one symbol's history file.
type SymbolResult struct {
	Symbol  string
	Path    string
	Added   int
	Skipped bool
	Err     error
}

// DownloadResult collects the per-symbol outcomes of a history update.
type DownloadResult struct {
	Symbols []SymbolResult
}

// Failed returns the symbols whose update returned an error.
func (r DownloadResult) Failed() []SymbolResult {
	var failed []SymbolResult

	for _, s := range r.Symbols {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}

	return failed
}

// Client updates per-symbol history files from a provider.
type Client struct {
	source    provider.Source
	config    ClientConfig
	validate  *validator.Validate
	logger    *logger.Logger
	newWriter func(path string) writer.MarketDataWriter
}

// NewClient creates a new market data client with the given configuration.
func NewClient(config ClientConfig, log *logger.Logger) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid client configuration: %w", err)
	}

	source, err := NewSource(config.ProviderType, config.Provider, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s source: %w", config.ProviderType, err)
	}

	return NewClientWithSource(source, config, log), nil
}

// NewClientWithSource creates a client around an existing source.
func NewClientWithSource(source provider.Source, config ClientConfig, log *logger.Logger) *Client {
	return &Client{
		source:    source,
		config:    config,
		validate:  validator.New(),
		logger:    log,
		newWriter: writer.NewDuckDBWriter,
	}
}

// Download brings each symbol's history up to params.EndDate. A symbol with
// history is fetched from the day after its last stored bar, a new symbol
// from EndDate minus LookbackDays. A failing symbol is recorded and the
// update continues. The context cancels the remaining symbols.
func (c *Client) Download(ctx context.Context, params DownloadParams) (DownloadResult, error) {
	if err := c.validate.Struct(params); err != nil {
		return DownloadResult{}, fmt.Errorf("invalid download parameters: %w", err)
	}

	if err := os.MkdirAll(c.config.DataPath, 0o755); err != nil {
		return DownloadResult{}, fmt.Errorf("failed to create data directory: %w", err)
	}

	bar := c.progressBar(len(params.Symbols), "Updating history")
	result := DownloadResult{}

	for _, symbol := range params.Symbols {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		bar.Describe("Updating " + symbol)

		res := c.updateSymbol(ctx, symbol, types.TradingDay(params.EndDate), params.LookbackDays)
		if res.Err != nil {
			c.logger.Warn("History update failed", zap.String("symbol", symbol), zap.Error(res.Err))
		} else {
			c.logger.Info("History updated",
				zap.String("symbol", symbol),
				zap.Int("added", res.Added),
				zap.Bool("up_to_date", res.Skipped),
			)
		}

		result.Symbols = append(result.Symbols, res)
		_ = bar.Add(1)
	}

	_ = bar.Finish()

	return result, nil
}

// ConvertCSV imports <csvDir>/<symbol>_history.csv files into parquet
// history in the data directory, merging with any existing parquet file.
func (c *Client) ConvertCSV(ctx context.Context, csvDir string, symbols []string) (DownloadResult, error) {
	csvSource, err := provider.NewLocalSource(csvDir, c.logger)
	if err != nil {
		return DownloadResult{}, err
	}

	if closer, ok := csvSource.(io.Closer); ok {
		defer closer.Close()
	}

	if err := os.MkdirAll(c.config.DataPath, 0o755); err != nil {
		return DownloadResult{}, fmt.Errorf("failed to create data directory: %w", err)
	}

	source := NewNormalizingSource(csvSource, c.logger)
	bar := c.progressBar(len(symbols), "Converting CSV")
	result := DownloadResult{}

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		res := SymbolResult{Symbol: symbol, Path: provider.HistoryPath(c.config.DataPath, symbol, ".parquet")}

		bars, err := source.FetchDailyBars(ctx, symbol, time.Time{}, time.Time{})
		if err == nil {
			res.Added, err = c.write(res.Path, bars)
		}

		res.Err = err
		result.Symbols = append(result.Symbols, res)
		_ = bar.Add(1)
	}

	_ = bar.Finish()

	return result, nil
}

func (c *Client) updateSymbol(ctx context.Context, symbol string, end time.Time, lookbackDays int) SymbolResult {
	res := SymbolResult{Symbol: symbol, Path: provider.HistoryPath(c.config.DataPath, symbol, ".parquet")}

	w := c.newWriter(res.Path)
	if err := w.Initialize(); err != nil {
		res.Err = errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to open history", err)

		return res
	}
	defer w.Close()

	last, err := w.LastDate()
	if err != nil {
		res.Err = errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to read history", err)

		return res
	}

	start := end.AddDate(0, 0, -lookbackDays)
	if last.IsSome() {
		start = last.Unwrap().AddDate(0, 0, 1)
	}

	if start.After(end) {
		res.Skipped = true

		return res
	}

	bars, err := c.source.FetchDailyBars(ctx, symbol, start, end)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeNoDataFound) {
			// holidays and weekends return nothing
			res.Skipped = true

			return res
		}

		res.Err = err

		return res
	}

	res.Added, res.Err = stage(w, bars)

	return res
}

func (c *Client) write(path string, bars []types.MarketData) (int, error) {
	w := c.newWriter(path)
	if err := w.Initialize(); err != nil {
		return 0, errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to open history", err)
	}
	defer w.Close()

	return stage(w, bars)
}

func stage(w writer.MarketDataWriter, bars []types.MarketData) (int, error) {
	for _, bar := range bars {
		if err := w.Write(bar); err != nil {
			return 0, errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to stage bar", err)
		}
	}

	if _, err := w.Finalize(); err != nil {
		return 0, errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to write history", err)
	}

	return len(bars), nil
}

func (c *Client) progressBar(total int, description string) *progressbar.ProgressBar {
	out := c.config.ProgressOutput
	if out == nil {
		out = os.Stderr
	}

	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
	)
}
