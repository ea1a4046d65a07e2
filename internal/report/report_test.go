package report

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/twstock-scanner/internal/logger"
	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
)

type ReportTestSuite struct {
	suite.Suite
	dir    string
	logDir string
	report *types.Report
	state  *types.PortfolioState
}

func TestReportSuite(t *testing.T) {
	suite.Run(t, new(ReportTestSuite))
}

func (suite *ReportTestSuite) SetupTest() {
	suite.dir = filepath.Join(suite.T().TempDir(), "reports")
	suite.logDir = suite.T().TempDir()

	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	suite.state = types.NewPortfolioState(5_000_000, day.AddDate(0, -1, 0))
	suite.state.TradeHistory = []types.ClosedTrade{{
		ID:         "t-1",
		Symbol:     "2454",
		EntryDate:  day.AddDate(0, 0, -20),
		ExitDate:   day,
		EntryPrice: 100,
		ExitPrice:  120,
		Shares:     1000,
		NetPnL:     19500,
		ExitReason: types.ExitReasonMACDDeathCross,
	}}
	suite.state.EquityCurve = []types.EquityPoint{
		{Date: day.AddDate(0, 0, -1), Equity: 5_000_000},
		{Date: day, Equity: 5_019_500},
	}

	suite.report = &types.Report{
		RunID:       "run-1",
		GeneratedAt: day.Add(15 * time.Hour),
		ScanDate:    day,
		Summary: types.ScanSummary{
			Status:        types.ScanStatusSignals,
			MarketBullish: true,
			Message:       "1 buy and 1 sell signals",
		},
		Overview: types.Overview{
			Cash:           4_719_500,
			HoldingsValue:  300_000,
			TotalEquity:    5_019_500,
			NetPnL:         19_500,
			InitialCapital: 5_000_000,
			OpenPositions:  1,
			MaxPositions:   6,
		},
		Holdings:    []types.HoldingView{{Symbol: "2330", EntryPrice: 100, Shares: 3000, CurrentPrice: 100}},
		BuySignals:  []types.BuySignal{{Symbol: "2330", StopLoss: 80, SignalPrice: 100, SharesToBuy: 3000, EstimatedCost: 300427.5}},
		SellSignals: []types.SellSignal{{Symbol: "2454", Reason: types.ExitReasonMACDDeathCross, ExitPrice: 120, NetPnL: 19500}},
		PerformanceMetrics: types.PerformanceMetrics{
			TotalTrades:   1,
			WinningTrades: 1,
			ProfitFactor:  types.Metric(math.Inf(1)),
			PayoffRatio:   types.Metric(math.Inf(1)),
		},
		Skipped: []types.SkippedSymbol{{Symbol: "9999", Reason: "no data"}},
	}
}

func (suite *ReportTestSuite) writer(exportParquet bool) *Writer {
	return NewWriter(Options{Dir: suite.dir, LogDir: suite.logDir, ExportParquet: exportParquet}, logger.NewNopLogger())
}

func (suite *ReportTestSuite) TestPublishWritesOutputs() {
	log := filepath.Join(suite.logDir, "scan_20240610.log")
	suite.Require().NoError(os.WriteFile(log, []byte("first line\nscan finished <ok>\n"), 0o644))

	suite.Require().NoError(suite.writer(false).Publish(suite.report, suite.state))

	for _, name := range []string{PlanFile, HTMLFile, MetricsFile} {
		suite.FileExists(filepath.Join(suite.dir, name))
	}

	suite.NoFileExists(filepath.Join(suite.dir, TradesFile))

	html, err := os.ReadFile(filepath.Join(suite.dir, HTMLFile))
	suite.Require().NoError(err)
	suite.Contains(string(html), "2330")
	suite.Contains(string(html), "macd death cross")
	suite.Contains(string(html), "5,019,500")
	suite.Contains(string(html), "Infinity")
	suite.Contains(string(html), "scan finished &lt;ok&gt;", "log lines are escaped")

	metrics, err := os.ReadFile(filepath.Join(suite.dir, MetricsFile))
	suite.Require().NoError(err)
	suite.Contains(string(metrics), "profit_factor: Infinity")
}

func (suite *ReportTestSuite) TestReadPlanRoundTrip() {
	suite.Require().NoError(suite.writer(false).Publish(suite.report, suite.state))

	loaded, err := ReadPlan(suite.dir)
	suite.Require().NoError(err)
	suite.Equal("run-1", loaded.RunID)
	suite.True(loaded.PerformanceMetrics.ProfitFactor.Inf())
	suite.Equal(suite.report.BuySignals, loaded.BuySignals)
	suite.Equal(suite.report.Summary, loaded.Summary)
}

func (suite *ReportTestSuite) TestReadPlanMissing() {
	_, err := ReadPlan(suite.dir)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataNotFound))
}

func (suite *ReportTestSuite) TestReadPlanInvalid() {
	suite.Require().NoError(os.MkdirAll(suite.dir, 0o755))
	suite.Require().NoError(os.WriteFile(filepath.Join(suite.dir, PlanFile), []byte("{"), 0o644))

	_, err := ReadPlan(suite.dir)
	suite.Error(err)
}

func (suite *ReportTestSuite) TestExportParquet() {
	suite.Require().NoError(suite.writer(true).Publish(suite.report, suite.state))

	db, err := sql.Open("duckdb", ":memory:")
	suite.Require().NoError(err)
	defer db.Close()

	count := func(file string) int {
		var n int
		row := db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM read_parquet('%s')`, filepath.Join(suite.dir, file)))
		suite.Require().NoError(row.Scan(&n))

		return n
	}

	suite.Equal(1, count(TradesFile))
	suite.Equal(2, count(EquityFile))

	var reason string
	row := db.QueryRow(fmt.Sprintf(`SELECT exit_reason FROM read_parquet('%s')`, filepath.Join(suite.dir, TradesFile)))
	suite.Require().NoError(row.Scan(&reason))
	suite.Equal("macd death cross", reason)
}

func (suite *ReportTestSuite) TestExportParquetEmptyState() {
	suite.Require().NoError(os.MkdirAll(suite.dir, 0o755))

	state := types.NewPortfolioState(1_000_000, time.Now())
	suite.Require().NoError(ExportParquet(suite.dir, state))
	suite.FileExists(filepath.Join(suite.dir, TradesFile))
	suite.FileExists(filepath.Join(suite.dir, EquityFile))
}

func (suite *ReportTestSuite) TestRenderHTMLWithoutSignals() {
	suite.report.BuySignals = []types.BuySignal{}
	suite.report.SellSignals = []types.SellSignal{}
	suite.report.Holdings = []types.HoldingView{}
	suite.report.Summary.StateRecovered = true

	html, err := RenderHTML(suite.report, nil)
	suite.Require().NoError(err)
	suite.Contains(string(html), "No open positions.")
	suite.Contains(string(html), "fresh portfolio was started")
	suite.NotContains(string(html), "<h2>Log</h2>")
}

func (suite *ReportTestSuite) TestFormatNumber() {
	suite.Equal("1,234,568", formatNumber(1234567.8, 0))
	suite.Equal("-1,234.50", formatNumber(-1234.5, 2))
	suite.Equal("0.00", formatNumber(0, 2))
	suite.Equal("Infinity", formatNumber(math.Inf(1), 2))
	suite.Equal("N/A", formatNumber(math.NaN(), 0))
}
