package writer

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/twstock-scanner/internal/types"
)

// DuckDBWriter keeps one symbol's history in a parquet file. Existing rows are
// loaded on Initialize, new rows are staged in a transaction and Finalize
// rewrites the file with one row per day, the most recently written row
// winning.
type DuckDBWriter struct {
	db         *sql.DB
	tx         *sql.Tx
	stmt       *sql.Stmt
	seq        int64
	outputPath string
}

// NewDuckDBWriter creates a new DuckDBWriter for the parquet file at outputPath.
func NewDuckDBWriter(outputPath string) MarketDataWriter {
	return &DuckDBWriter{
		outputPath: outputPath,
	}
}

// Initialize opens an in-memory database, loads the existing history and
// prepares the insert statement.
func (w *DuckDBWriter) Initialize() (err error) {
	w.db, err = sql.Open("duckdb", ":memory:")
	if err != nil {
		return fmt.Errorf("failed to open DuckDB connection: %w", err)
	}

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS market_data (
			seq BIGINT,
			time TIMESTAMP,
			symbol TEXT,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE
		)
	`)
	if err != nil {
		w.db.Close()

		return fmt.Errorf("failed to create table: %w", err)
	}

	if _, statErr := os.Stat(w.outputPath); statErr == nil {
		_, err = w.db.Exec(fmt.Sprintf(`
			INSERT INTO market_data
			SELECT 0, CAST(time AS TIMESTAMP), symbol, open, high, low, close, volume
			FROM read_parquet('%s')
		`, escape(w.outputPath)))
		if err != nil {
			w.db.Close()

			return fmt.Errorf("failed to load existing history %s: %w", w.outputPath, err)
		}
	}

	w.tx, err = w.db.Begin()
	if err != nil {
		w.db.Close()

		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	w.stmt, err = w.tx.Prepare(`
		INSERT INTO market_data (seq, time, symbol, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		w.tx.Rollback()
		w.db.Close()

		return fmt.Errorf("failed to prepare statement: %w", err)
	}

	return nil
}

// LastDate implements MarketDataWriter.
func (w *DuckDBWriter) LastDate() (optional.Option[time.Time], error) {
	if w.tx == nil {
		return optional.None[time.Time](), fmt.Errorf("writer not initialized or transaction is nil")
	}

	var last sql.NullTime

	if err := w.tx.QueryRow(`SELECT max(time) FROM market_data`).Scan(&last); err != nil {
		return optional.None[time.Time](), fmt.Errorf("failed to read last stored date: %w", err)
	}

	if !last.Valid {
		return optional.None[time.Time](), nil
	}

	return optional.Some(types.TradingDay(last.Time)), nil
}

// Write stages a single bar in the open transaction.
func (w *DuckDBWriter) Write(data types.MarketData) error {
	if w.stmt == nil {
		return fmt.Errorf("writer not initialized or statement is nil")
	}

	w.seq++

	_, err := w.stmt.Exec(
		w.seq,
		types.TradingDay(data.Time),
		data.Symbol,
		data.Open,
		data.High,
		data.Low,
		data.Close,
		data.Volume,
	)
	if err != nil {
		return fmt.Errorf("failed to insert data: %w", err)
	}

	return nil
}

// Finalize commits the staged rows and replaces the parquet file with the
// deduplicated history.
func (w *DuckDBWriter) Finalize() (outputPath string, err error) {
	if w.tx == nil {
		return "", fmt.Errorf("writer not initialized or transaction is nil")
	}

	if err = w.tx.Commit(); err != nil {
		w.tx.Rollback()

		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.tx = nil

	tmpPath := w.outputPath + ".tmp"

	_, err = w.db.Exec(fmt.Sprintf(`
		COPY (
			SELECT time, symbol, open, high, low, close, volume
			FROM market_data
			QUALIFY row_number() OVER (PARTITION BY CAST(time AS DATE) ORDER BY seq DESC) = 1
			ORDER BY time
		) TO '%s' (FORMAT PARQUET)
	`, escape(tmpPath)))
	if err != nil {
		os.Remove(tmpPath)

		return "", fmt.Errorf("failed to export to Parquet: %w", err)
	}

	if err = os.Rename(tmpPath, w.outputPath); err != nil {
		os.Remove(tmpPath)

		return "", fmt.Errorf("failed to replace %s: %w", w.outputPath, err)
	}

	return w.outputPath, nil
}

// Close cleans up resources used by the writer.
func (w *DuckDBWriter) Close() error {
	var closeErrors []string

	if w.stmt != nil {
		if err := w.stmt.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Sprintf("failed to close statement: %v", err))
		}

		w.stmt = nil
	}

	if w.tx != nil {
		if err := w.tx.Rollback(); err != nil {
			closeErrors = append(closeErrors, fmt.Sprintf("failed to rollback transaction: %v", err))
		}

		w.tx = nil
	}

	if w.db != nil {
		if err := w.db.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Sprintf("failed to close db connection: %v", err))
		}

		w.db = nil
	}

	if len(closeErrors) > 0 {
		return fmt.Errorf("errors occurred during close:\n- %s", strings.Join(closeErrors, "\n- "))
	}

	return nil
}

// GetOutputPath implements MarketDataWriter.
func (w *DuckDBWriter) GetOutputPath() string {
	return w.outputPath
}

func escape(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}
