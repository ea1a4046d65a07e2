package types

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const infinityLiteral = "Infinity"

// Metric is a ratio that may legitimately be +Inf (no losing trades). It
// encodes infinities as the string "Infinity" so JSON output stays valid.
type Metric float64

// Inf reports whether the metric is positive infinity.
func (m Metric) Inf() bool {
	return math.IsInf(float64(m), 1)
}

func (m Metric) String() string {
	f := float64(m)

	switch {
	case math.IsInf(f, 1):
		return infinityLiteral
	case math.IsInf(f, -1):
		return "-" + infinityLiteral
	case math.IsNaN(f):
		return "N/A"
	default:
		return strconv.FormatFloat(f, 'f', 2, 64)
	}
}

func (m Metric) MarshalJSON() ([]byte, error) {
	f := float64(m)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return json.Marshal(m.String())
	}

	return json.Marshal(f)
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		switch text {
		case infinityLiteral:
			*m = Metric(math.Inf(1))
		case "-" + infinityLiteral:
			*m = Metric(math.Inf(-1))
		default:
			*m = 0
		}

		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to decode metric: %w", err)
	}

	*m = Metric(f)

	return nil
}

func (m Metric) MarshalYAML() (interface{}, error) {
	f := float64(m)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return m.String(), nil
	}

	return f, nil
}

// PerformanceMetrics summarizes the realized trades and the equity curve.
// Every field is finite except ProfitFactor and PayoffRatio, which may be
// +Inf when there are wins but no losses.
type PerformanceMetrics struct {
	TotalTrades   int `json:"total_trades" yaml:"total_trades"`
	WinningTrades int `json:"winning_trades" yaml:"winning_trades"`
	LosingTrades  int `json:"losing_trades" yaml:"losing_trades"`
	// WinRate is a percentage.
	WinRate              float64 `json:"win_rate" yaml:"win_rate"`
	GrossProfit          float64 `json:"gross_profit" yaml:"gross_profit"`
	GrossLoss            float64 `json:"gross_loss" yaml:"gross_loss"`
	TotalNetPnL          float64 `json:"total_net_pnl" yaml:"total_net_pnl"`
	TotalTransactionCost float64 `json:"total_transaction_cost" yaml:"total_transaction_cost"`
	ProfitFactor         Metric  `json:"profit_factor" yaml:"profit_factor"`
	PayoffRatio          Metric  `json:"payoff_ratio" yaml:"payoff_ratio"`
	AverageHoldingDays   float64 `json:"average_holding_days" yaml:"average_holding_days"`
	// MaxDrawdown is a positive percentage.
	MaxDrawdown    float64 `json:"max_drawdown" yaml:"max_drawdown"`
	CAGR           float64 `json:"cagr" yaml:"cagr"`
	SharpeRatio    float64 `json:"sharpe_ratio" yaml:"sharpe_ratio"`
	TotalReturnPct float64 `json:"total_return_pct" yaml:"total_return_pct"`
}

// WritePerformanceMetrics writes the metrics to a YAML file.
func WritePerformanceMetrics(path string, metrics PerformanceMetrics) error {
	data, err := yaml.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal performance metrics: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write performance metrics: %w", err)
	}

	return nil
}
