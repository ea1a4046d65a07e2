package dashboard

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/twstock-scanner/internal/logger"
	"github.com/rxtech-lab/twstock-scanner/internal/metrics"
	"github.com/rxtech-lab/twstock-scanner/internal/report"
	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
)

type stubState struct {
	state *types.PortfolioState
	err   error
}

func (s *stubState) Read() (*types.PortfolioState, error) {
	return s.state, s.err
}

type DashboardTestSuite struct {
	suite.Suite
	opts     Options
	state    *stubState
	registry *metrics.Registry
	plan     *types.Report
}

func TestDashboardSuite(t *testing.T) {
	suite.Run(t, new(DashboardTestSuite))
}

func (suite *DashboardTestSuite) SetupTest() {
	suite.opts = DefaultOptions()
	suite.opts.ReportDir = suite.T().TempDir()
	suite.opts.LogDir = suite.T().TempDir()

	state := types.NewPortfolioState(5_000_000, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC))
	state.Positions["2330"] = &types.Position{Symbol: "2330", EntryPrice: 100, Shares: 1000}
	suite.state = &stubState{state: state}
	suite.registry = metrics.NewRegistry()

	suite.plan = &types.Report{
		RunID:       "run-42",
		GeneratedAt: time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC),
		ScanDate:    time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		Summary:     types.ScanSummary{Status: types.ScanStatusNoSignals, Message: "No buy or sell signals today"},
		BuySignals:  []types.BuySignal{},
		SellSignals: []types.SellSignal{},
		Holdings:    []types.HoldingView{},
		Skipped:     []types.SkippedSymbol{},
	}
}

func (suite *DashboardTestSuite) server(scan ScanFunc) *Server {
	return NewServer(suite.opts, suite.state, scan, suite.registry, logger.NewNopLogger())
}

func (suite *DashboardTestSuite) do(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	return rec
}

func (suite *DashboardTestSuite) writePlan() {
	suite.Require().NoError(report.WritePlan(filepath.Join(suite.opts.ReportDir, report.PlanFile), suite.plan))
}

func (suite *DashboardTestSuite) TestHealth() {
	rec := suite.do(suite.server(nil), http.MethodGet, "/health")
	suite.Equal(http.StatusOK, rec.Code)
	suite.NotEmpty(rec.Header().Get("X-Request-ID"))
}

func (suite *DashboardTestSuite) TestReportBeforeFirstScan() {
	rec := suite.do(suite.server(nil), http.MethodGet, "/api/report")
	suite.Equal(http.StatusNotFound, rec.Code)

	rec = suite.do(suite.server(nil), http.MethodGet, "/")
	suite.Equal(http.StatusNotFound, rec.Code)
}

func (suite *DashboardTestSuite) TestReport() {
	suite.writePlan()

	rec := suite.do(suite.server(nil), http.MethodGet, "/api/report")
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Equal("application/json", rec.Header().Get("Content-Type"))

	var got types.Report
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
	suite.Equal("run-42", got.RunID)
}

func (suite *DashboardTestSuite) TestIndexRendersHTML() {
	suite.writePlan()
	suite.Require().NoError(os.WriteFile(filepath.Join(suite.opts.LogDir, "scan_20240610.log"), []byte("scan started\n"), 0o644))

	rec := suite.do(suite.server(nil), http.MethodGet, "/")
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Contains(rec.Header().Get("Content-Type"), "text/html")
	suite.Contains(rec.Body.String(), "run-42")
	suite.Contains(rec.Body.String(), "scan started")
}

func (suite *DashboardTestSuite) TestState() {
	rec := suite.do(suite.server(nil), http.MethodGet, "/api/state")
	suite.Require().Equal(http.StatusOK, rec.Code)

	var got types.PortfolioState
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
	suite.Contains(got.Positions, "2330")
}

func (suite *DashboardTestSuite) TestStateError() {
	suite.state.err = errors.New(errors.ErrCodeStateMigrationFailed, "newer schema")

	rec := suite.do(suite.server(nil), http.MethodGet, "/api/state")
	suite.Equal(http.StatusConflict, rec.Code)
	suite.Contains(rec.Body.String(), "newer schema")
}

func (suite *DashboardTestSuite) TestLatestLog() {
	rec := suite.do(suite.server(nil), http.MethodGet, "/api/logs/latest")
	suite.Equal(http.StatusNotFound, rec.Code)

	suite.Require().NoError(os.WriteFile(filepath.Join(suite.opts.LogDir, "scan_20240607.log"), []byte("old\n"), 0o644))
	suite.Require().NoError(os.WriteFile(filepath.Join(suite.opts.LogDir, "scan_20240610.log"), []byte("a\nb\nc\n"), 0o644))

	rec = suite.do(suite.server(nil), http.MethodGet, "/api/logs/latest?lines=2")
	suite.Require().Equal(http.StatusOK, rec.Code)

	var got logResponse
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
	suite.True(strings.HasSuffix(got.Path, "scan_20240610.log"))
	suite.Equal([]string{"b", "c"}, got.Lines)

	rec = suite.do(suite.server(nil), http.MethodGet, "/api/logs/latest?lines=abc")
	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *DashboardTestSuite) TestScan() {
	scan := func(context.Context) (*types.Report, error) {
		return suite.plan, nil
	}

	rec := suite.do(suite.server(scan), http.MethodPost, "/api/scan")
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Contains(rec.Body.String(), "run-42")

	rec = suite.do(suite.server(scan), http.MethodGet, "/api/scan")
	suite.Equal(http.StatusMethodNotAllowed, rec.Code)
}

func (suite *DashboardTestSuite) TestScanDisabledAndFailing() {
	rec := suite.do(suite.server(nil), http.MethodPost, "/api/scan")
	suite.Equal(http.StatusNotImplemented, rec.Code)

	failing := func(context.Context) (*types.Report, error) {
		return nil, stderrors.New("provider down")
	}

	rec = suite.do(suite.server(failing), http.MethodPost, "/api/scan")
	suite.Equal(http.StatusInternalServerError, rec.Code)
	suite.Contains(rec.Body.String(), "provider down")
}

func (suite *DashboardTestSuite) TestConcurrentScanIsRejected() {
	started := make(chan struct{})
	release := make(chan struct{})

	s := suite.server(func(context.Context) (*types.Report, error) {
		close(started)
		<-release

		return suite.plan, nil
	})

	var wg sync.WaitGroup

	var first *httptest.ResponseRecorder

	wg.Add(1)

	go func() {
		defer wg.Done()
		first = suite.do(s, http.MethodPost, "/api/scan")
	}()

	<-started

	second := suite.do(s, http.MethodPost, "/api/scan")
	suite.Equal(http.StatusConflict, second.Code)

	close(release)
	wg.Wait()
	suite.Equal(http.StatusOK, first.Code)
}

func (suite *DashboardTestSuite) TestMetrics() {
	suite.registry.ObserveFailure()

	rec := suite.do(suite.server(nil), http.MethodGet, "/metrics")
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Contains(rec.Body.String(), "twscan_scans_total")
}
