package ledger

import (
	"math"

	"github.com/rxtech-lab/twstock-scanner/internal/ledger/commission_fee"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
	"github.com/shopspring/decimal"
)

// SizingInput describes one risk-based sizing request.
type SizingInput struct {
	SignalPrice float64
	StopPrice   float64
	TotalEquity float64
	RiskPct     float64
	LotSize     int64
	Cash        float64
}

// SizePosition risks RiskPct of TotalEquity between the signal price and the
// stop, rounded down to whole lots. It fails when no whole lot fits the risk
// budget or the purchase would exceed cash.
func SizePosition(in SizingInput, fee commission_fee.CommissionFee) (int64, error) {
	if in.LotSize <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "lot size must be positive, got %d", in.LotSize)
	}

	riskPerShare := in.SignalPrice - in.StopPrice
	if riskPerShare <= 0 || math.IsNaN(riskPerShare) {
		return 0, errors.Newf(errors.ErrCodeNonPositiveRiskPerSh, "risk per share %.4f is not positive", riskPerShare)
	}

	dollarsToRisk := decimal.NewFromFloat(in.TotalEquity).Mul(decimal.NewFromFloat(in.RiskPct))
	lots := dollarsToRisk.Div(decimal.NewFromFloat(riskPerShare)).Div(decimal.NewFromInt(in.LotSize)).Floor()
	shares := lots.IntPart() * in.LotSize

	if shares <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidPositionSize,
			"risk budget %s does not cover one lot at %.4f risk per share", dollarsToRisk.StringFixed(2), riskPerShare)
	}

	value := decimal.NewFromInt(shares).Mul(decimal.NewFromFloat(in.SignalPrice))
	cost := value.Add(fee.BuyCost(value))

	if cost.GreaterThan(decimal.NewFromFloat(in.Cash)) {
		return 0, errors.Newf(errors.ErrCodeInsufficientCash,
			"%d shares cost %s but only %.2f cash is available", shares, cost.StringFixed(2), in.Cash)
	}

	return shares, nil
}
