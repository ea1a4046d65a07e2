package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/twstock-scanner/internal/types"
)

type MetricsTestSuite struct {
	suite.Suite
	registry *Registry
}

func TestMetricsSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

func (suite *MetricsTestSuite) SetupTest() {
	suite.registry = NewRegistry()
}

func (suite *MetricsTestSuite) TestObserveReport() {
	report := &types.Report{
		GeneratedAt: time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC),
		Summary:     types.ScanSummary{Status: types.ScanStatusSignals},
		Overview: types.Overview{
			Cash:          4_000_000,
			TotalEquity:   5_100_000,
			OpenPositions: 2,
		},
		BuySignals:         []types.BuySignal{{Symbol: "2330"}},
		SellSignals:        []types.SellSignal{{Symbol: "2454"}, {Symbol: "2317"}},
		Skipped:            []types.SkippedSymbol{{Symbol: "9999"}},
		PerformanceMetrics: types.PerformanceMetrics{MaxDrawdown: 3.5},
	}

	suite.registry.ObserveReport(report, 2*time.Second)

	suite.Equal(1.0, testutil.ToFloat64(suite.registry.Scans.WithLabelValues("signals")))
	suite.Equal(1.0, testutil.ToFloat64(suite.registry.Signals.WithLabelValues("buy")))
	suite.Equal(2.0, testutil.ToFloat64(suite.registry.Signals.WithLabelValues("sell")))
	suite.Equal(1.0, testutil.ToFloat64(suite.registry.SkippedTotal))
	suite.Equal(5_100_000.0, testutil.ToFloat64(suite.registry.Equity))
	suite.Equal(4_000_000.0, testutil.ToFloat64(suite.registry.Cash))
	suite.Equal(2.0, testutil.ToFloat64(suite.registry.OpenPositions))
	suite.Equal(3.5, testutil.ToFloat64(suite.registry.MaxDrawdown))
	suite.Equal(float64(report.GeneratedAt.Unix()), testutil.ToFloat64(suite.registry.LastScan))
}

func (suite *MetricsTestSuite) TestFailures() {
	suite.registry.ObserveFailure()
	suite.registry.ObserveFetchFailure("705")
	suite.registry.ObserveFetchFailure("705")

	suite.Equal(1.0, testutil.ToFloat64(suite.registry.Scans.WithLabelValues("failed")))
	suite.Equal(2.0, testutil.ToFloat64(suite.registry.FetchFailures.WithLabelValues("705")))
}

func (suite *MetricsTestSuite) TestNilRegistryIsNoop() {
	var registry *Registry

	suite.NotPanics(func() {
		registry.ObserveReport(&types.Report{}, time.Second)
		registry.ObserveFailure()
		registry.ObserveFetchFailure("1")
	})
}

func (suite *MetricsTestSuite) TestHandler() {
	suite.registry.ObserveFailure()

	server := httptest.NewServer(suite.registry.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Contains(string(body), `twscan_scans_total{status="failed"} 1`)
}
