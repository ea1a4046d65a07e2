package report

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
)

// ExportParquet writes the trade history and the equity curve of state to
// trades.parquet and equity_curve.parquet in dir.
func ExportParquet(dir string, state *types.PortfolioState) error {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to open duckdb", err)
	}
	defer db.Close()

	if err := createExportTables(db); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to begin transaction", err)
	}

	if err := insertTrades(tx, state.TradeHistory); err != nil {
		tx.Rollback()

		return err
	}

	if err := insertEquity(tx, state.EquityCurve); err != nil {
		tx.Rollback()

		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to commit export", err)
	}

	// squirrel has no COPY statement
	exports := []struct{ table, file string }{
		{"trades", TradesFile},
		{"equity_curve", EquityFile},
	}

	for _, export := range exports {
		path := filepath.Join(dir, export.file)

		_, err := db.Exec(fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, export.table, strings.ReplaceAll(path, "'", "''")))
		if err != nil {
			return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to export %s to Parquet", export.table)
		}
	}

	return nil
}

func createExportTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE trades (
			id TEXT,
			symbol TEXT,
			entry_date DATE,
			exit_date DATE,
			entry_price DOUBLE,
			exit_price DOUBLE,
			shares BIGINT,
			entry_value DOUBLE,
			exit_value DOUBLE,
			gross_pnl DOUBLE,
			transaction_cost DOUBLE,
			net_pnl DOUBLE,
			return_pct DOUBLE,
			holding_days INTEGER,
			exit_reason TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to create trades table", err)
	}

	_, err = db.Exec(`
		CREATE TABLE equity_curve (
			date DATE,
			equity DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to create equity_curve table", err)
	}

	return nil
}

func insertTrades(tx *sql.Tx, trades []types.ClosedTrade) error {
	if len(trades) == 0 {
		return nil
	}

	insert := squirrel.Insert("trades").
		Columns(
			"id", "symbol", "entry_date", "exit_date", "entry_price", "exit_price", "shares",
			"entry_value", "exit_value", "gross_pnl", "transaction_cost", "net_pnl",
			"return_pct", "holding_days", "exit_reason",
		).
		PlaceholderFormat(squirrel.Question)

	for _, t := range trades {
		insert = insert.Values(
			t.ID, t.Symbol, t.EntryDate, t.ExitDate, t.EntryPrice, t.ExitPrice, t.Shares,
			t.EntryValue, t.ExitValue, t.GrossPnL, t.TransactionCost, t.NetPnL,
			t.ReturnPct, t.HoldingDays, string(t.ExitReason),
		)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to build trades insert", err)
	}

	if _, err := tx.Exec(query, args...); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to insert trades", err)
	}

	return nil
}

func insertEquity(tx *sql.Tx, curve []types.EquityPoint) error {
	if len(curve) == 0 {
		return nil
	}

	insert := squirrel.Insert("equity_curve").
		Columns("date", "equity").
		PlaceholderFormat(squirrel.Question)

	for _, p := range curve {
		insert = insert.Values(p.Date, p.Equity)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to build equity insert", err)
	}

	if _, err := tx.Exec(query, args...); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to insert equity curve", err)
	}

	return nil
}
