// Package metrics exposes scan and portfolio gauges to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rxtech-lab/twstock-scanner/internal/types"
)

const namespace = "twscan"

// Registry holds every collector of the scanner. Each Registry owns its own
// prometheus.Registry so tests and the CLI never share global state.
type Registry struct {
	registry *prometheus.Registry

	ScanDuration  prometheus.Histogram
	Scans         *prometheus.CounterVec
	Signals       *prometheus.CounterVec
	SkippedTotal  prometheus.Counter
	FetchFailures *prometheus.CounterVec

	Equity        prometheus.Gauge
	Cash          prometheus.Gauge
	OpenPositions prometheus.Gauge
	MaxDrawdown   prometheus.Gauge
	LastScan      prometheus.Gauge
}

func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall time of one scan cycle",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		Scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Scan cycles by outcome",
		}, []string{"status"}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Executed signals by side",
		}, []string{"side"}),
		SkippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "symbols_skipped_total",
			Help:      "Symbols left out of a cycle",
		}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Failed market data fetches by error code",
		}, []string{"code"}),

		Equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portfolio_equity",
			Help:      "Total equity after the last scan",
		}),
		Cash: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portfolio_cash",
			Help:      "Cash after the last scan",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portfolio_open_positions",
			Help:      "Open positions after the last scan",
		}),
		MaxDrawdown: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portfolio_max_drawdown_pct",
			Help:      "Maximum drawdown of the equity curve in percent",
		}),
		LastScan: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_scan_timestamp_seconds",
			Help:      "Unix time of the last completed scan",
		}),
	}

	r.registry.MustRegister(
		r.ScanDuration, r.Scans, r.Signals, r.SkippedTotal, r.FetchFailures,
		r.Equity, r.Cash, r.OpenPositions, r.MaxDrawdown, r.LastScan,
	)

	return r
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveReport records the outcome of a finished scan.
func (r *Registry) ObserveReport(report *types.Report, took time.Duration) {
	if r == nil || report == nil {
		return
	}

	r.ScanDuration.Observe(took.Seconds())
	r.Scans.WithLabelValues(string(report.Summary.Status)).Inc()
	r.Signals.WithLabelValues("buy").Add(float64(len(report.BuySignals)))
	r.Signals.WithLabelValues("sell").Add(float64(len(report.SellSignals)))
	r.SkippedTotal.Add(float64(len(report.Skipped)))

	r.Equity.Set(report.Overview.TotalEquity)
	r.Cash.Set(report.Overview.Cash)
	r.OpenPositions.Set(float64(report.Overview.OpenPositions))
	r.MaxDrawdown.Set(report.PerformanceMetrics.MaxDrawdown)
	r.LastScan.Set(float64(report.GeneratedAt.Unix()))
}

// ObserveFailure counts a scan that ended in an error.
func (r *Registry) ObserveFailure() {
	if r == nil {
		return
	}

	r.Scans.WithLabelValues("failed").Inc()
}

// ObserveFetchFailure counts one failed symbol fetch.
func (r *Registry) ObserveFetchFailure(code string) {
	if r == nil {
		return
	}

	r.FetchFailures.WithLabelValues(code).Inc()
}
