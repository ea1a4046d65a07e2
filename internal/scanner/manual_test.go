package scanner

import (
	"context"
	"math"
	"time"

	"github.com/rxtech-lab/twstock-scanner/internal/position"
	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
)

func (suite *ScannerTestSuite) TestAddPositionSizesAndStopsFromATR() {
	suite.expectBars("2330", suite.bars("2330", 40))

	p, err := suite.newScanner(nil).AddPosition(context.Background(), ManualEntry{
		Symbol: "2330",
		Price:  100,
	})
	suite.Require().NoError(err)

	expectedStop, err := position.InitialStop(100, 2, suite.cfg.Stops)
	suite.Require().NoError(err)

	suite.Equal("2330", p.Symbol)
	suite.Equal(types.TradingDay(suite.now), p.EntryDate)
	suite.InDelta(expectedStop, p.StopLossPrice, 1e-9)
	suite.InDelta(expectedStop, p.InitialStopLossPrice, 1e-9)
	suite.Equal(int64(3000), p.Shares)
	suite.Equal(types.PositionStageInitialStop, p.Stage)
	suite.False(p.TrailingStopActive)

	loaded, err := suite.store.Load()
	suite.Require().NoError(err)
	suite.Require().Contains(loaded.State.Positions, "2330")
	suite.InDelta(suite.cfg.Risk.InitialCapital-300000*1.001425, loaded.State.Cash, 0.01)
}

func (suite *ScannerTestSuite) TestAddPositionUsesATROnEntryDate() {
	suite.annotator.columns["2330"] = map[string][2]float64{types.ColumnATR: {3, 9}}
	bars := suite.bars("2330", 40)
	suite.expectBars("2330", bars)

	entryDay := bars[len(bars)-3].Time

	p, err := suite.newScanner(nil).AddPosition(context.Background(), ManualEntry{
		Symbol:       "2330",
		Date:         entryDay,
		Price:        100,
		Shares:       2000,
		HighestPrice: 130,
	})
	suite.Require().NoError(err)

	suite.Equal(entryDay, p.EntryDate)
	suite.InDelta(70.0, p.StopLossPrice, 1e-9, "ATR 3 on the entry day, not the latest 9")
	suite.Equal(int64(2000), p.Shares)
	suite.Equal(130.0, p.HighestPriceSinceEntry)
}

func (suite *ScannerTestSuite) TestAddPositionRejections() {
	s := suite.newScanner(nil)

	_, err := s.AddPosition(context.Background(), ManualEntry{Price: 100})
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))

	_, err = s.AddPosition(context.Background(), ManualEntry{Symbol: "2330", Price: -1})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	suite.annotator.columns["3008"] = map[string][2]float64{types.ColumnATR: {math.NaN(), math.NaN()}}
	suite.expectBars("3008", suite.bars("3008", 5))

	_, err = s.AddPosition(context.Background(), ManualEntry{Symbol: "3008", Price: 100})
	suite.True(errors.HasCode(err, errors.ErrCodeInsufficientData))

	suite.expectBars("2330", suite.bars("2330", 40))
	_, err = s.AddPosition(context.Background(), ManualEntry{
		Symbol: "2330",
		Date:   types.TradingDay(suite.now).AddDate(0, 0, -100),
		Price:  100,
	})
	suite.True(errors.HasCode(err, errors.ErrCodeNoDataFound), "entry before the first bar")

	suite.expectBars("2330", suite.bars("2330", 40))
	_, err = s.AddPosition(context.Background(), ManualEntry{Symbol: "2330", Price: 100, Shares: 1500})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPositionSize))

	suite.expectBars("2330", suite.bars("2330", 40))
	_, err = s.AddPosition(context.Background(), ManualEntry{Symbol: "2330", Price: 100, Shares: 1000})
	suite.Require().NoError(err)

	suite.expectBars("2330", suite.bars("2330", 40))
	_, err = s.AddPosition(context.Background(), ManualEntry{Symbol: "2330", Price: 100, Shares: 1000})
	suite.True(errors.HasCode(err, errors.ErrCodeDuplicatePosition))

	loaded, err := suite.store.Load()
	suite.Require().NoError(err)
	suite.Len(loaded.State.Positions, 1)
}

func (suite *ScannerTestSuite) TestClosePositionRecordsManualExit() {
	suite.seedPosition(types.Position{
		Symbol:                 "2454",
		EntryDate:              time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC),
		EntryPrice:             100,
		Shares:                 1000,
		InitialStopLossPrice:   80,
		StopLossPrice:          80,
		HighestPriceSinceEntry: 100,
		LastPrice:              100,
		Stage:                  types.PositionStageInitialStop,
		Status:                 "open",
	})

	s := suite.newScanner(nil)

	trade, err := s.ClosePosition("2454", 110, time.Time{})
	suite.Require().NoError(err)

	suite.Equal(types.ExitReasonManual, trade.ExitReason)
	suite.Equal(types.TradingDay(suite.now), trade.ExitDate)
	suite.Equal(110.0, trade.ExitPrice)
	suite.True(trade.IsWin())

	loaded, err := suite.store.Load()
	suite.Require().NoError(err)
	suite.Empty(loaded.State.Positions)
	suite.Require().Len(loaded.State.TradeHistory, 1)
	suite.Equal(trade.ID, loaded.State.TradeHistory[0].ID)

	_, err = s.ClosePosition("2454", 110, time.Time{})
	suite.True(errors.HasCode(err, errors.ErrCodePositionNotFound))

	_, err = s.ClosePosition("2330", 0, time.Time{})
	suite.True(errors.HasCode(err, errors.ErrCodePositionNotFound))
}
