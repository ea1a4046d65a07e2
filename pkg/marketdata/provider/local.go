package provider

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/twstock-scanner/internal/logger"
	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
	"github.com/rxtech-lab/twstock-scanner/pkg/marketdata/normalize"
)

// HistorySuffix is appended to the symbol to name its local history file.
const HistorySuffix = "_history"

// HistoryPath returns <dir>/<symbol>_history<ext>.
func HistoryPath(dir, symbol, ext string) string {
	return filepath.Join(dir, symbol+HistorySuffix+ext)
}

// LocalSource reads per-symbol history files from a data directory. Parquet
// is preferred, CSV is the fallback. Column names are mapped through the
// normalize aliases so FinMind exports load without conversion.
type LocalSource struct {
	db      *sql.DB
	dataDir string
	logger  *logger.Logger
	sq      squirrel.StatementBuilderType
}

func NewLocalSource(dataDir string, log *logger.Logger) (Source, error) {
	if dataDir == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "data directory is required")
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	return &LocalSource{
		db:      db,
		dataDir: dataDir,
		logger:  log,
		sq:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Close releases the in-memory database.
func (s *LocalSource) Close() error {
	return s.db.Close()
}

// FetchDailyBars implements Source.
func (s *LocalSource) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]types.MarketData, error) {
	reader, path, err := s.resolve(symbol)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Reading local history", zap.String("symbol", symbol), zap.String("path", path))

	mapping, err := s.columns(ctx, reader)
	if err != nil {
		return nil, errors.Wrapf(errors.GetCode(err), err, "history file %s", path)
	}

	lower := optional.None[time.Time]()
	if !start.IsZero() {
		lower = optional.Some(types.TradingDay(start))
	}

	upper := optional.None[time.Time]()
	if !end.IsZero() {
		upper = optional.Some(types.TradingDay(end))
	}

	return s.read(ctx, symbol, reader, mapping, lower, upper)
}

func (s *LocalSource) resolve(symbol string) (string, string, error) {
	candidates := []struct {
		path   string
		reader string
	}{
		{HistoryPath(s.dataDir, symbol, ".parquet"), "read_parquet('%s')"},
		{HistoryPath(s.dataDir, symbol, ".csv"), "read_csv_auto('%s', header=true)"},
	}

	for _, c := range candidates {
		if _, err := os.Stat(c.path); err == nil {
			return fmt.Sprintf(c.reader, escapeLiteral(c.path)), c.path, nil
		}
	}

	return "", "", errors.Newf(errors.ErrCodeNoDataFound, "no local history for %s in %s", symbol, s.dataDir)
}

func (s *LocalSource) columns(ctx context.Context, reader string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+reader+" LIMIT 0")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read history header", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to list history columns", err)
	}

	return normalize.Columns(names)
}

func (s *LocalSource) read(
	ctx context.Context,
	symbol, reader string,
	mapping map[string]string,
	start, end optional.Option[time.Time],
) ([]types.MarketData, error) {
	inner := s.sq.Select(
		fmt.Sprintf("CAST(%s AS TIMESTAMP) AS time", quoteIdent(mapping[normalize.ColumnTime])),
		fmt.Sprintf("CAST(%s AS DOUBLE) AS open", quoteIdent(mapping[normalize.ColumnOpen])),
		fmt.Sprintf("CAST(%s AS DOUBLE) AS high", quoteIdent(mapping[normalize.ColumnHigh])),
		fmt.Sprintf("CAST(%s AS DOUBLE) AS low", quoteIdent(mapping[normalize.ColumnLow])),
		fmt.Sprintf("CAST(%s AS DOUBLE) AS close", quoteIdent(mapping[normalize.ColumnClose])),
		fmt.Sprintf("CAST(%s AS DOUBLE) AS volume", quoteIdent(mapping[normalize.ColumnVolume])),
	).From(reader)

	query := s.sq.Select("time", "open", "high", "low", "close", "volume").
		FromSelect(inner, "bars").
		Where(squirrel.NotEq{"time": nil})

	if start.IsSome() {
		query = query.Where(squirrel.GtOrEq{"time": start.Unwrap()})
	}

	if end.IsSome() {
		// bars carry intraday timestamps in some exports
		query = query.Where(squirrel.Lt{"time": end.Unwrap().AddDate(0, 0, 1)})
	}

	sqlQuery, args, err := query.OrderBy("time ASC").ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build history query", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to query history of %s", symbol)
	}
	defer rows.Close()

	var bars []types.MarketData

	for rows.Next() {
		var (
			ts                             time.Time
			open, high, low, close, volume sql.NullFloat64
		)

		if err := rows.Scan(&ts, &open, &high, &low, &close, &volume); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to scan history of %s", symbol)
		}

		// null cells become NaN and are dropped during normalization
		bars = append(bars, types.MarketData{
			Time:   ts,
			Symbol: symbol,
			Open:   nullToNaN(open),
			High:   nullToNaN(high),
			Low:    nullToNaN(low),
			Close:  nullToNaN(close),
			Volume: nullToNaN(volume),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to iterate history of %s", symbol)
	}

	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeNoDataFound, "local history of %s has no bars in range", symbol)
	}

	return bars, nil
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}

	return v.Float64
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func escapeLiteral(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}
