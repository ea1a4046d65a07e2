package ledger

import (
	"testing"
	"time"

	"github.com/rxtech-lab/twstock-scanner/internal/ledger/commission_fee"
	"github.com/rxtech-lab/twstock-scanner/internal/logger"
	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type LedgerTestSuite struct {
	suite.Suite
	day    time.Time
	ledger *Ledger
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func (suite *LedgerTestSuite) SetupTest() {
	suite.day = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	suite.ledger = suite.newLedger(1_000_000, DefaultParams())
}

func (suite *LedgerTestSuite) newLedger(cash float64, params Params) *Ledger {
	state := types.NewPortfolioState(cash, suite.day)
	l := New(state, params, commission_fee.NewTaiwanStandardCommissionFee(), logger.NewNopLogger())
	l.newID = func() string { return "trade-1" }

	return l
}

func (suite *LedgerTestSuite) TestSizeAndOpenScenario() {
	shares, err := suite.ledger.Size(100, 90)
	suite.Require().NoError(err)
	suite.Equal(int64(1000), shares)

	suite.Require().NoError(suite.ledger.OpenPosition("2330", suite.day, 100, 90, shares))
	suite.InDelta(899_857.5, suite.ledger.State().Cash, 1e-6)

	p := suite.ledger.State().Positions["2330"]
	suite.Require().NotNil(p)
	suite.Equal(90.0, p.InitialStopLossPrice)
	suite.Equal(types.PositionStageInitialStop, p.Stage)

	suite.InDelta(100_000, suite.ledger.HoldingsValue(), 1e-6)
	suite.InDelta(999_857.5, suite.ledger.TotalEquity(), 1e-6)
	suite.Equal(5, suite.ledger.AvailableSlots())
}

func (suite *LedgerTestSuite) TestOpenRejections() {
	tests := []struct {
		name   string
		setup  func(l *Ledger)
		symbol string
		price  float64
		stop   float64
		shares int64
		code   errors.ErrorCode
	}{
		{
			name:   "insufficient cash",
			symbol: "2330", price: 1000, stop: 900, shares: 1000,
			code: errors.ErrCodeInsufficientCash,
		},
		{
			name: "duplicate symbol",
			setup: func(l *Ledger) {
				suite.Require().NoError(l.OpenPosition("2330", suite.day, 100, 90, 1000))
			},
			symbol: "2330", price: 100, stop: 90, shares: 1000,
			code: errors.ErrCodeDuplicatePosition,
		},
		{
			name:   "odd lot",
			symbol: "2330", price: 100, stop: 90, shares: 1500,
			code: errors.ErrCodeInvalidPositionSize,
		},
		{
			name:   "zero shares",
			symbol: "2330", price: 100, stop: 90, shares: 0,
			code: errors.ErrCodeInvalidPositionSize,
		},
		{
			name:   "stop above price",
			symbol: "2330", price: 100, stop: 110, shares: 1000,
			code: errors.ErrCodeInvalidStopLoss,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			l := suite.newLedger(1_000_000, DefaultParams())
			if tc.setup != nil {
				tc.setup(l)
			}

			cashBefore := l.State().Cash
			openBefore := len(l.State().Positions)

			err := l.OpenPosition(tc.symbol, suite.day, tc.price, tc.stop, tc.shares)
			suite.Require().Error(err)
			suite.Equal(tc.code, errors.GetCode(err))
			suite.True(errors.IsInvariantViolation(err))
			suite.Equal(cashBefore, l.State().Cash)
			suite.Len(l.State().Positions, openBefore)
		})
	}
}

func (suite *LedgerTestSuite) TestSlotCap() {
	params := DefaultParams()
	params.MaxPositions = 2
	l := suite.newLedger(1_000_000, params)

	suite.Require().NoError(l.OpenPosition("2330", suite.day, 10, 9, 1000))
	suite.Require().NoError(l.OpenPosition("2317", suite.day, 10, 9, 1000))
	suite.Equal(0, l.AvailableSlots())

	err := l.OpenPosition("2454", suite.day, 10, 9, 1000)
	suite.Equal(errors.ErrCodeMaxPositionsReached, errors.GetCode(err))
	suite.Len(l.State().Positions, 2)

	_, err = l.ClosePosition("2330", 11, types.ExitReasonRSIExhaustion, suite.day.AddDate(0, 0, 1))
	suite.Require().NoError(err)
	suite.Equal(1, l.AvailableSlots())
	suite.NoError(l.OpenPosition("2454", suite.day, 10, 9, 1000))
}

func (suite *LedgerTestSuite) TestClosePosition() {
	suite.Require().NoError(suite.ledger.OpenPosition("2330", suite.day, 100, 90, 1000))

	exitDay := suite.day.AddDate(0, 0, 10)
	trade, err := suite.ledger.ClosePosition("2330", 120, types.ExitReasonTrailingStop, exitDay.Add(14*time.Hour))
	suite.Require().NoError(err)

	suite.Equal("trade-1", trade.ID)
	suite.Equal(exitDay, trade.ExitDate)
	suite.InDelta(100_000, trade.EntryValue, 1e-9)
	suite.InDelta(120_000, trade.ExitValue, 1e-9)
	suite.InDelta(20_000, trade.GrossPnL, 1e-9)
	suite.InDelta(673.5, trade.TransactionCost, 1e-9)
	suite.InDelta(19_326.5, trade.NetPnL, 1e-9)
	suite.InDelta(19.3265, trade.ReturnPct, 1e-9)
	suite.Equal(10, trade.HoldingDays)
	suite.Equal(types.ExitReasonTrailingStop, trade.ExitReason)

	suite.InDelta(1_019_326.5, suite.ledger.State().Cash, 1e-6)
	suite.Empty(suite.ledger.State().Positions)
	suite.Len(suite.ledger.State().TradeHistory, 1)
}

func (suite *LedgerTestSuite) TestCloseMissingPosition() {
	_, err := suite.ledger.ClosePosition("2330", 100, types.ExitReasonStopLoss, suite.day)
	suite.Equal(errors.ErrCodePositionNotFound, errors.GetCode(err))
	suite.Empty(suite.ledger.State().TradeHistory)
}

func (suite *LedgerTestSuite) TestCashNeverNegative() {
	params := DefaultParams()
	params.MaxPositions = 10
	l := suite.newLedger(300_000, params)

	symbols := []string{"1101", "1216", "2303", "2308", "2330", "2412"}
	for i, symbol := range symbols {
		err := l.OpenPosition(symbol, suite.day, 95, 80, 1000)
		if err != nil {
			suite.Equal(errors.ErrCodeInsufficientCash, errors.GetCode(err))
		}

		suite.GreaterOrEqual(l.State().Cash, 0.0)

		if i%2 == 1 {
			if _, held := l.State().Positions[symbol]; held {
				_, err := l.ClosePosition(symbol, 40, types.ExitReasonStopLoss, suite.day.AddDate(0, 0, 1))
				suite.Require().NoError(err)
			}
		}

		suite.GreaterOrEqual(l.State().Cash, 0.0)
	}
}

func (suite *LedgerTestSuite) TestRecordEquity() {
	suite.Require().NoError(suite.ledger.OpenPosition("2330", suite.day, 100, 90, 1000))

	first := suite.ledger.RecordEquity(suite.day)
	suite.InDelta(999_857.5, first.Equity, 1e-6)

	suite.ledger.State().Positions["2330"].LastPrice = 110
	suite.ledger.RecordEquity(suite.day.Add(15 * time.Hour))
	suite.Require().Len(suite.ledger.State().EquityCurve, 1)
	suite.InDelta(1_009_857.5, suite.ledger.State().EquityCurve[0].Equity, 1e-6)

	suite.ledger.RecordEquity(suite.day.AddDate(0, 0, 1))
	suite.Len(suite.ledger.State().EquityCurve, 2)
	suite.Equal(suite.day.AddDate(0, 0, 1), suite.ledger.State().LastScanDate)

	suite.ledger.RecordEquity(suite.day.AddDate(0, 0, -5))
	suite.Len(suite.ledger.State().EquityCurve, 2)
}

func (suite *LedgerTestSuite) TestSizePosition() {
	fee := commission_fee.NewTaiwanStandardCommissionFee()

	tests := []struct {
		name     string
		input    SizingInput
		expected int64
		code     errors.ErrorCode
	}{
		{
			name:     "whole lots",
			input:    SizingInput{SignalPrice: 100, StopPrice: 90, TotalEquity: 1_000_000, RiskPct: 0.015, LotSize: 1000, Cash: 1_000_000},
			expected: 1000,
		},
		{
			name:     "rounds down",
			input:    SizingInput{SignalPrice: 50, StopPrice: 45, TotalEquity: 1_000_000, RiskPct: 0.015, LotSize: 1000, Cash: 1_000_000},
			expected: 3000,
		},
		{
			name:  "stop above price",
			input: SizingInput{SignalPrice: 100, StopPrice: 100, TotalEquity: 1_000_000, RiskPct: 0.015, LotSize: 1000, Cash: 1_000_000},
			code:  errors.ErrCodeNonPositiveRiskPerSh,
		},
		{
			name:  "risk budget below one lot",
			input: SizingInput{SignalPrice: 100, StopPrice: 80, TotalEquity: 1_000_000, RiskPct: 0.015, LotSize: 1000, Cash: 1_000_000},
			code:  errors.ErrCodeInvalidPositionSize,
		},
		{
			name:  "cost above cash",
			input: SizingInput{SignalPrice: 100, StopPrice: 99, TotalEquity: 1_000_000, RiskPct: 0.015, LotSize: 1000, Cash: 200_000},
			code:  errors.ErrCodeInsufficientCash,
		},
		{
			name:  "bad lot size",
			input: SizingInput{SignalPrice: 100, StopPrice: 90, TotalEquity: 1_000_000, RiskPct: 0.015, LotSize: 0, Cash: 1_000_000},
			code:  errors.ErrCodeInvalidParameter,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			shares, err := SizePosition(tc.input, fee)
			if tc.code != 0 {
				suite.Require().Error(err)
				suite.Equal(tc.code, errors.GetCode(err))
				suite.Zero(shares)

				return
			}

			suite.Require().NoError(err)
			suite.Equal(tc.expected, shares)
			suite.Zero(shares % tc.input.LotSize)
		})
	}
}
