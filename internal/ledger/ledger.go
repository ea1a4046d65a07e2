// Package ledger owns the cash and holdings of the paper portfolio.
//
// Every mutation goes through the Ledger so that cash never goes negative,
// a symbol is held at most once and the slot cap holds. Money arithmetic is
// done in decimal and rounded back to float64 only when stored.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/twstock-scanner/internal/ledger/commission_fee"
	"github.com/rxtech-lab/twstock-scanner/internal/logger"
	"github.com/rxtech-lab/twstock-scanner/internal/position"
	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Params are the portfolio risk limits.
type Params struct {
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting cash of a fresh portfolio in TWD,default=5000000" validate:"gt=0"`
	RiskPerTrade   float64 `yaml:"risk_per_trade" json:"risk_per_trade" jsonschema:"title=Risk Per Trade,description=Fraction of total equity risked on one entry,default=0.015" validate:"gt=0,lte=1"`
	MaxPositions   int     `yaml:"max_positions" json:"max_positions" jsonschema:"title=Max Positions,description=Maximum simultaneously open positions,default=6" validate:"gte=1"`
	LotSize        int64   `yaml:"lot_size" json:"lot_size" jsonschema:"title=Lot Size,description=Shares per board lot,default=1000" validate:"gte=1"`
}

// DefaultParams returns the production risk limits.
func DefaultParams() Params {
	return Params{
		InitialCapital: 5_000_000,
		RiskPerTrade:   0.015,
		MaxPositions:   6,
		LotSize:        1000,
	}
}

type Ledger struct {
	state  *types.PortfolioState
	params Params
	fee    commission_fee.CommissionFee
	logger *logger.Logger
	newID  func() string
}

// New wraps state. The ledger mutates state in place.
func New(state *types.PortfolioState, params Params, fee commission_fee.CommissionFee, log *logger.Logger) *Ledger {
	state.EnsureInitialized()

	return &Ledger{
		state:  state,
		params: params,
		fee:    fee,
		logger: log,
		newID:  func() string { return uuid.New().String() },
	}
}

// State returns the wrapped portfolio state.
func (l *Ledger) State() *types.PortfolioState {
	return l.state
}

func (l *Ledger) Params() Params {
	return l.params
}

// OpenPosition buys shares of symbol at price and records the stop.
func (l *Ledger) OpenPosition(symbol string, date time.Time, price, stop float64, shares int64) error {
	if _, held := l.state.Positions[symbol]; held {
		return errors.Newf(errors.ErrCodeDuplicatePosition, "position in %s already open", symbol)
	}

	if l.AvailableSlots() <= 0 {
		return errors.Newf(errors.ErrCodeMaxPositionsReached, "all %d position slots are taken", l.params.MaxPositions)
	}

	if shares <= 0 || shares%l.params.LotSize != 0 {
		return errors.Newf(errors.ErrCodeInvalidPositionSize, "shares %d is not a positive multiple of lot size %d", shares, l.params.LotSize)
	}

	if price <= 0 || stop <= 0 || stop >= price {
		return errors.Newf(errors.ErrCodeInvalidStopLoss, "stop %.4f is invalid for price %.4f", stop, price)
	}

	cost := l.purchaseCost(price, shares)
	cash := decimal.NewFromFloat(l.state.Cash)

	if cost.GreaterThan(cash) {
		return errors.Newf(errors.ErrCodeInsufficientCash, "buying %d %s costs %s but only %s cash is available",
			shares, symbol, cost.StringFixed(2), cash.StringFixed(2))
	}

	p := position.NewPosition(symbol, date, price, shares, stop)
	l.state.Positions[symbol] = &p
	l.state.Cash = cash.Sub(cost).InexactFloat64()

	l.logger.Info("Opened position",
		zap.String("symbol", symbol),
		zap.Float64("price", price),
		zap.Float64("stop", stop),
		zap.Int64("shares", shares),
		zap.Float64("cash", l.state.Cash),
	)

	return nil
}

// ClosePosition sells the whole position in symbol at exitPrice and appends
// the realized trade to the history.
func (l *Ledger) ClosePosition(symbol string, exitPrice float64, reason types.ExitReason, date time.Time) (types.ClosedTrade, error) {
	p, held := l.state.Positions[symbol]
	if !held {
		return types.ClosedTrade{}, errors.Newf(errors.ErrCodePositionNotFound, "no open position in %s", symbol)
	}

	if exitPrice <= 0 {
		return types.ClosedTrade{}, errors.Newf(errors.ErrCodeInvalidParameter, "exit price must be positive, got %v", exitPrice)
	}

	shares := decimal.NewFromInt(p.Shares)
	entryValue := shares.Mul(decimal.NewFromFloat(p.EntryPrice))
	exitValue := shares.Mul(decimal.NewFromFloat(exitPrice))

	buyCost := l.fee.BuyCost(entryValue)
	sellCost := l.fee.SellCost(exitValue)
	gross := exitValue.Sub(entryValue)
	cost := buyCost.Add(sellCost)
	net := gross.Sub(cost)

	returnPct := decimal.Zero
	if entryValue.IsPositive() {
		returnPct = net.Div(entryValue).Mul(decimal.NewFromInt(100))
	}

	exitDay := types.TradingDay(date)
	trade := types.ClosedTrade{
		ID:              l.newID(),
		Symbol:          symbol,
		EntryDate:       p.EntryDate,
		ExitDate:        exitDay,
		EntryPrice:      p.EntryPrice,
		ExitPrice:       exitPrice,
		Shares:          p.Shares,
		EntryValue:      entryValue.InexactFloat64(),
		ExitValue:       exitValue.InexactFloat64(),
		GrossPnL:        gross.InexactFloat64(),
		TransactionCost: cost.InexactFloat64(),
		NetPnL:          net.InexactFloat64(),
		ReturnPct:       returnPct.Round(4).InexactFloat64(),
		HoldingDays:     types.DaysBetween(p.EntryDate, exitDay),
		ExitReason:      reason,
	}

	l.state.Cash = decimal.NewFromFloat(l.state.Cash).Add(exitValue.Sub(sellCost)).InexactFloat64()
	l.state.TradeHistory = append(l.state.TradeHistory, trade)
	delete(l.state.Positions, symbol)

	l.logger.Info("Closed position",
		zap.String("symbol", symbol),
		zap.String("reason", string(reason)),
		zap.Float64("exit_price", exitPrice),
		zap.Float64("net_pnl", trade.NetPnL),
		zap.Float64("cash", l.state.Cash),
	)

	return trade, nil
}

// Size returns the shares to buy for a signal using the current equity and
// cash of the ledger.
func (l *Ledger) Size(signalPrice, stopPrice float64) (int64, error) {
	return SizePosition(SizingInput{
		SignalPrice: signalPrice,
		StopPrice:   stopPrice,
		TotalEquity: l.TotalEquity(),
		RiskPct:     l.params.RiskPerTrade,
		LotSize:     l.params.LotSize,
		Cash:        l.state.Cash,
	}, l.fee)
}

// HoldingsValue is the mark-to-market value of every open position.
func (l *Ledger) HoldingsValue() float64 {
	total := decimal.Zero
	for _, p := range l.state.Positions {
		total = total.Add(decimal.NewFromInt(p.Shares).Mul(decimal.NewFromFloat(p.MarkPrice())))
	}

	return total.InexactFloat64()
}

// TotalEquity is cash plus holdings value.
func (l *Ledger) TotalEquity() float64 {
	return decimal.NewFromFloat(l.state.Cash).Add(decimal.NewFromFloat(l.HoldingsValue())).InexactFloat64()
}

func (l *Ledger) AvailableSlots() int {
	free := l.params.MaxPositions - len(l.state.Positions)
	if free < 0 {
		return 0
	}

	return free
}

// RecordEquity appends today's equity point. A second call for the same day
// replaces the earlier point.
func (l *Ledger) RecordEquity(date time.Time) types.EquityPoint {
	point := types.EquityPoint{Date: types.TradingDay(date), Equity: l.TotalEquity()}

	curve := l.state.EquityCurve
	if n := len(curve); n > 0 && !curve[n-1].Date.Before(point.Date) {
		if curve[n-1].Date.Equal(point.Date) {
			curve[n-1] = point

			return point
		}

		l.logger.Warn("Equity point is older than the last recorded point, ignoring",
			zap.Time("date", point.Date),
			zap.Time("last", curve[n-1].Date),
		)

		return point
	}

	l.state.EquityCurve = append(curve, point)
	l.state.LastScanDate = point.Date

	return point
}

func (l *Ledger) purchaseCost(price float64, shares int64) decimal.Decimal {
	value := decimal.NewFromInt(shares).Mul(decimal.NewFromFloat(price))

	return value.Add(l.fee.BuyCost(value))
}

// EstimatedCost is the cash a purchase of shares at price would consume,
// fees included.
func (l *Ledger) EstimatedCost(price float64, shares int64) float64 {
	return l.purchaseCost(price, shares).Round(2).InexactFloat64()
}
