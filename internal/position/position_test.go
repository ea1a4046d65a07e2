package position

import (
	"testing"
	"time"

	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type PositionTestSuite struct {
	suite.Suite
	entryDay time.Time
}

func TestPositionSuite(t *testing.T) {
	suite.Run(t, new(PositionTestSuite))
}

func (suite *PositionTestSuite) SetupTest() {
	suite.entryDay = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
}

func (suite *PositionTestSuite) bar(offset int, high, low, closePrice float64) types.MarketData {
	return types.MarketData{
		Time:  suite.entryDay.AddDate(0, 0, offset),
		Open:  closePrice,
		High:  high,
		Low:   low,
		Close: closePrice,
	}
}

func (suite *PositionTestSuite) TestInitialStop() {
	tests := []struct {
		name     string
		entry    float64
		atr      float64
		expected float64
		code     errors.ErrorCode
	}{
		{name: "atr stop tighter", entry: 100, atr: 2, expected: 80},
		{name: "hard stop tighter", entry: 100, atr: 5, expected: 60},
		{name: "zero atr", entry: 100, atr: 0, code: errors.ErrCodeInvalidStopLoss},
		{name: "non positive entry", entry: 0, atr: 2, code: errors.ErrCodeInvalidParameter},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			stop, err := InitialStop(tc.entry, tc.atr, DefaultParams())
			if tc.code != 0 {
				suite.Require().Error(err)
				suite.Equal(tc.code, errors.GetCode(err))

				return
			}

			suite.Require().NoError(err)
			suite.InDelta(tc.expected, stop, 1e-9)
			suite.Less(stop, tc.entry)
		})
	}
}

func (suite *PositionTestSuite) TestNewPosition() {
	p := NewPosition("2330", suite.entryDay.Add(13*time.Hour), 100, 2000, 80)

	suite.Equal(suite.entryDay, p.EntryDate)
	suite.Equal(80.0, p.InitialStopLossPrice)
	suite.Equal(80.0, p.StopLossPrice)
	suite.Equal(100.0, p.HighestPriceSinceEntry)
	suite.Equal(types.PositionStageInitialStop, p.Stage)
	suite.False(p.TrailingStopActive)
}

func (suite *PositionTestSuite) TestTrailingActivationAndRatchet() {
	p := NewPosition("2330", suite.entryDay, 100, 1000, 80)
	params := DefaultParams()

	p = Update(p, suite.bar(1, 150, 140, 145), params)
	suite.False(p.TrailingStopActive)
	suite.Equal(150.0, p.HighestPriceSinceEntry)

	p = Update(p, suite.bar(2, 180, 170, 175), params)
	suite.True(p.TrailingStopActive)
	suite.InDelta(72.0, p.CurrentTrailingStopPrice, 1e-9)
	suite.Equal(types.PositionStageTrailingActive, p.Stage)

	p = Update(p, suite.bar(3, 200, 190, 195), params)
	suite.InDelta(80.0, p.CurrentTrailingStopPrice, 1e-9)

	// a pullback leaves the highest price and the trail in place
	p = Update(p, suite.bar(4, 130, 100, 110), params)
	suite.True(p.TrailingStopActive)
	suite.Equal(200.0, p.HighestPriceSinceEntry)
	suite.InDelta(80.0, p.CurrentTrailingStopPrice, 1e-9)
	suite.Equal(110.0, p.LastPrice)
}

func (suite *PositionTestSuite) TestBreakevenPromotion() {
	params := DefaultParams()
	params.BreakevenRR = 1

	p := NewPosition("2330", suite.entryDay, 100, 1000, 90)

	p = Update(p, suite.bar(1, 105, 99, 104), params)
	suite.False(p.BreakevenPromoted)
	suite.Equal(90.0, p.StopLossPrice)

	p = Update(p, suite.bar(2, 110, 101, 108), params)
	suite.True(p.BreakevenPromoted)
	suite.Equal(100.0, p.StopLossPrice)
	suite.Equal(90.0, p.InitialStopLossPrice)
	suite.Equal(types.PositionStageBreakevenPromoted, p.Stage)

	p = Update(p, suite.bar(3, 102, 95, 96), params)
	suite.True(p.BreakevenPromoted)
	suite.Equal(100.0, p.StopLossPrice)
}

func (suite *PositionTestSuite) TestBreakevenDisabledByDefault() {
	p := NewPosition("2330", suite.entryDay, 100, 1000, 90)
	p = Update(p, suite.bar(1, 150, 120, 140), DefaultParams())

	suite.False(p.BreakevenPromoted)
	suite.Equal(90.0, p.StopLossPrice)
}

func (suite *PositionTestSuite) TestMonotoneOverPath() {
	params := DefaultParams()
	params.BreakevenRR = 2

	highs := []float64{105, 130, 125, 190, 170, 210, 160, 150, 220, 100}
	p := NewPosition("2330", suite.entryDay, 100, 1000, 80)

	for i, high := range highs {
		prev := p
		p = Update(p, suite.bar(i+1, high, high-20, high-10), params)

		suite.GreaterOrEqual(p.HighestPriceSinceEntry, prev.HighestPriceSinceEntry)
		suite.GreaterOrEqual(p.StopLossPrice, prev.StopLossPrice)
		suite.GreaterOrEqual(p.CurrentTrailingStopPrice, prev.CurrentTrailingStopPrice)
		suite.GreaterOrEqual(p.Stage.Rank(), prev.Stage.Rank())

		if prev.BreakevenPromoted {
			suite.True(p.BreakevenPromoted)
		}

		if prev.TrailingStopActive {
			suite.True(p.TrailingStopActive)
		}
	}
}

func (suite *PositionTestSuite) TestStage() {
	suite.Equal(types.PositionStageInitialStop, Stage(types.Position{}))
	suite.Equal(types.PositionStageBreakevenPromoted, Stage(types.Position{BreakevenPromoted: true}))
	suite.Equal(types.PositionStageTrailingActive, Stage(types.Position{BreakevenPromoted: true, TrailingStopActive: true}))
	suite.Equal(types.PositionStageClosed, Stage(types.Position{Stage: types.PositionStageClosed, TrailingStopActive: true}))
}

func (suite *PositionTestSuite) TestStageNeverMovesBack() {
	// a migrated position may carry a stage ahead of its flags
	p := NewPosition("2330", suite.entryDay, 100, 1000, 80)
	p.Stage = types.PositionStageTrailingActive

	p = Update(p, suite.bar(1, 101, 99, 100), DefaultParams())
	suite.False(p.TrailingStopActive)
	suite.Equal(types.PositionStageTrailingActive, p.Stage)

	p.Stage = ""
	p = Update(p, suite.bar(2, 101, 99, 100), DefaultParams())
	suite.Equal(types.PositionStageInitialStop, p.Stage)
}
