// Package analytics derives performance metrics from the trade history and
// the equity curve. Nothing here mutates the portfolio.
package analytics

import (
	"math"
	"time"

	"github.com/rxtech-lab/twstock-scanner/internal/types"
)

// TradingDaysPerYear annualizes the daily Sharpe ratio.
const TradingDaysPerYear = 252

const daysPerYear = 365.25

// Compute returns the metrics for history and curve. Undefined inputs give
// neutral values: zero for rates and ratios, +Inf only for a profit factor
// or payoff ratio with wins and no losses.
func Compute(history []types.ClosedTrade, curve []types.EquityPoint, initialCapital float64, startDate time.Time) types.PerformanceMetrics {
	metrics := tradeMetrics(history)

	metrics.MaxDrawdown = MaxDrawdown(curve)
	metrics.SharpeRatio = Sharpe(curve)

	if len(curve) > 0 && initialCapital > 0 {
		final := curve[len(curve)-1].Equity
		metrics.TotalReturnPct = (final/initialCapital - 1) * 100

		start := startDate
		if start.IsZero() {
			start = curve[0].Date
		}

		metrics.CAGR = CAGR(initialCapital, final, types.DaysBetween(start, curve[len(curve)-1].Date))
	}

	return metrics
}

func tradeMetrics(history []types.ClosedTrade) types.PerformanceMetrics {
	var (
		metrics                 types.PerformanceMetrics
		winReturns, lossReturns float64
		holdingDays             int
	)

	metrics.TotalTrades = len(history)

	for _, trade := range history {
		metrics.TotalNetPnL += trade.NetPnL
		metrics.TotalTransactionCost += trade.TransactionCost
		holdingDays += trade.HoldingDays

		if trade.IsWin() {
			metrics.WinningTrades++
			metrics.GrossProfit += trade.NetPnL
			winReturns += trade.ReturnPct

			continue
		}

		metrics.LosingTrades++
		metrics.GrossLoss += math.Abs(trade.NetPnL)
		lossReturns += trade.ReturnPct
	}

	if metrics.TotalTrades == 0 {
		return metrics
	}

	metrics.WinRate = float64(metrics.WinningTrades) / float64(metrics.TotalTrades) * 100
	metrics.AverageHoldingDays = float64(holdingDays) / float64(metrics.TotalTrades)
	metrics.ProfitFactor = ratio(metrics.GrossProfit, metrics.GrossLoss, metrics.WinningTrades > 0)

	var meanWin, meanLoss float64
	if metrics.WinningTrades > 0 {
		meanWin = winReturns / float64(metrics.WinningTrades)
	}

	if metrics.LosingTrades > 0 {
		meanLoss = lossReturns / float64(metrics.LosingTrades)
	}

	metrics.PayoffRatio = ratio(math.Abs(meanWin), math.Abs(meanLoss), metrics.WinningTrades > 0)

	return metrics
}

// ratio divides wins by losses, returning +Inf for wins without losses and
// zero when there are no wins.
func ratio(wins, losses float64, hasWins bool) types.Metric {
	if !hasWins {
		return 0
	}

	if losses == 0 {
		return types.Metric(math.Inf(1))
	}

	return types.Metric(wins / losses)
}

// MaxDrawdown is the deepest fall from a running peak, as a positive percentage.
func MaxDrawdown(curve []types.EquityPoint) float64 {
	var peak, maxDD float64

	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}

		if peak <= 0 {
			continue
		}

		if dd := (peak - point.Equity) / peak; dd > maxDD {
			maxDD = dd
		}
	}

	return maxDD * 100
}

// CAGR annualizes the growth from initial to final over days calendar days,
// as a percentage.
func CAGR(initial, final float64, days int) float64 {
	if days <= 0 || final <= 0 || initial <= 0 {
		return 0
	}

	return (math.Pow(final/initial, daysPerYear/float64(days)) - 1) * 100
}

// Sharpe is the annualized mean over sample standard deviation of the daily
// returns of curve, with a zero risk-free rate.
func Sharpe(curve []types.EquityPoint) float64 {
	returns := DailyReturns(curve)
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}

	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	variance /= float64(len(returns) - 1)

	stdev := math.Sqrt(variance)
	if stdev == 0 || math.IsNaN(stdev) {
		return 0
	}

	return mean / stdev * math.Sqrt(TradingDaysPerYear)
}

// DailyReturns returns the simple returns between consecutive curve points.
// Points following a non-positive equity are skipped.
func DailyReturns(curve []types.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(curve)-1)

	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			continue
		}

		returns = append(returns, curve[i].Equity/prev-1)
	}

	return returns
}
