// Package report writes the outputs of a scan: the trading plan JSON the
// dashboard reads, a static HTML report, the performance metrics YAML and,
// optionally, parquet exports of the trade history and equity curve.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/rxtech-lab/twstock-scanner/internal/logger"
	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
	"github.com/rxtech-lab/twstock-scanner/pkg/utils"
)

// Output file names inside the report directory.
const (
	PlanFile    = "trading_plan.json"
	HTMLFile    = "report.html"
	MetricsFile = "performance_metrics.yaml"
	TradesFile  = "trades.parquet"
	EquityFile  = "equity_curve.parquet"
)

// LogTailLines is how many log lines the HTML report embeds.
const LogTailLines = 200

type Options struct {
	Dir           string
	LogDir        string
	ExportParquet bool
}

// Writer publishes a finished scan to the report directory.
type Writer struct {
	opts   Options
	logger *logger.Logger
}

func NewWriter(opts Options, log *logger.Logger) *Writer {
	return &Writer{opts: opts, logger: log}
}

// Publish writes every report output. The JSON plan is written first since
// the dashboard depends on it.
func (w *Writer) Publish(report *types.Report, state *types.PortfolioState) error {
	if err := os.MkdirAll(w.opts.Dir, 0o755); err != nil {
		return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to create report directory %s", w.opts.Dir)
	}

	if err := WritePlan(filepath.Join(w.opts.Dir, PlanFile), report); err != nil {
		return err
	}

	if err := types.WritePerformanceMetrics(filepath.Join(w.opts.Dir, MetricsFile), report.PerformanceMetrics); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to write performance metrics", err)
	}

	if err := w.WriteHTML(report); err != nil {
		return err
	}

	if w.opts.ExportParquet {
		if err := ExportParquet(w.opts.Dir, state); err != nil {
			return err
		}
	}

	w.logger.Info("Report written", zap.String("dir", w.opts.Dir), zap.String("run_id", report.RunID))

	return nil
}

// WriteHTML renders report.html with the tail of the newest log file.
func (w *Writer) WriteHTML(report *types.Report) error {
	var tail []string

	if w.opts.LogDir != "" {
		path, err := logger.LatestLogFile(w.opts.LogDir)
		if err != nil {
			w.logger.Warn("Failed to find latest log file", zap.Error(err))
		}

		if path != "" {
			tail, err = utils.TailLines(path, LogTailLines)
			if err != nil {
				w.logger.Warn("Failed to read log tail", zap.String("path", path), zap.Error(err))
			}
		}
	}

	html, err := RenderHTML(report, tail)
	if err != nil {
		return err
	}

	if err := utils.WriteFileAtomic(filepath.Join(w.opts.Dir, HTMLFile), html); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to write html report", err)
	}

	return nil
}

// WritePlan writes report as indented JSON.
func WritePlan(path string, report *types.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to encode trading plan", err)
	}

	if err := utils.WriteFileAtomic(path, data); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to write trading plan", err)
	}

	return nil
}

// ReadPlan loads the trading plan written by the last scan in dir.
func ReadPlan(dir string) (*types.Report, error) {
	path := filepath.Join(dir, PlanFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrCodeDataNotFound, "no trading plan at %s, run a scan first", path)
		}

		return nil, fmt.Errorf("failed to read trading plan: %w", err)
	}

	var report types.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("trading plan %s is not valid JSON: %w", path, err)
	}

	return &report, nil
}
