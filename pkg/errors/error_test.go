package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeInsufficientCash, "not enough cash")
	suite.NotNil(err)
	suite.Equal(ErrCodeInsufficientCash, err.Code)
	suite.Equal("not enough cash", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeDuplicatePosition, "position already open for %s", "2330")
	suite.Equal(ErrCodeDuplicatePosition, err.Code)
	suite.Equal("position already open for 2330", err.Message)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("disk full")
	err := Wrapf(ErrCodeStateWriteFailed, cause, "failed to write %s", "portfolio_state.json")
	suite.Equal(ErrCodeStateWriteFailed, err.Code)
	suite.Equal(cause, err.Unwrap())
	suite.Equal("[602] failed to write portfolio_state.json: disk full", err.Error())
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Equal("[100] invalid parameter", err.Error())
}

func (suite *ErrorTestSuite) TestGetCodeFromWrapped() {
	cause := New(ErrCodeNoDataFound, "no rows")
	err := Wrap(ErrCodeMarketDataFetchFailed, "fetch failed", cause)
	suite.Equal(ErrCodeMarketDataFetchFailed, GetCode(err))
	suite.Equal(ErrCodeUnknown, GetCode(errors.New("plain")))
}

func (suite *ErrorTestSuite) TestGetCodeThroughFmtWrap() {
	err := fmt.Errorf("scan 2330: %w", New(ErrCodeNoDataFound, "no rows"))
	suite.True(HasCode(err, ErrCodeNoDataFound))
}

func (suite *ErrorTestSuite) TestIsAndAs() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeDataNotFound, "data not found", cause)
	suite.True(Is(err, cause))

	var typed *Error
	suite.True(As(err, &typed))
	suite.Equal(ErrCodeDataNotFound, typed.Code)
}

func (suite *ErrorTestSuite) TestIsDataUnavailable() {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "no data", err: New(ErrCodeNoDataFound, "x"), expected: true},
		{name: "fetch failed", err: New(ErrCodeMarketDataFetchFailed, "x"), expected: true},
		{name: "circuit open", err: New(ErrCodeCircuitOpen, "x"), expected: true},
		{name: "insufficient history", err: NewInsufficientDataError(350, 20, "2330", "short"), expected: true},
		{name: "ledger rejection", err: New(ErrCodeInsufficientCash, "x"), expected: false},
		{name: "state write", err: New(ErrCodeStateWriteFailed, "x"), expected: false},
		{name: "plain error", err: errors.New("x"), expected: false},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expected, IsDataUnavailable(tc.err))
		})
	}
}

func (suite *ErrorTestSuite) TestIsInvariantViolation() {
	suite.True(IsInvariantViolation(New(ErrCodeMaxPositionsReached, "full")))
	suite.True(IsInvariantViolation(New(ErrCodeDuplicatePosition, "held")))
	suite.False(IsInvariantViolation(New(ErrCodeStateCorrupt, "bad json")))
	suite.False(IsInvariantViolation(nil))
}

func (suite *ErrorTestSuite) TestErrorCodeValues() {
	suite.Equal(ErrorCode(1), ErrCodeUnknown)
	suite.Equal(ErrorCode(100), ErrCodeInvalidParameter)
	suite.Equal(ErrorCode(200), ErrCodeDataNotFound)
	suite.Equal(ErrorCode(300), ErrCodeIndicatorNotFound)
	suite.Equal(ErrorCode(400), ErrCodeSignalUndefined)
	suite.Equal(ErrorCode(500), ErrCodeOrderFailed)
	suite.Equal(ErrorCode(600), ErrCodeStateCorrupt)
	suite.Equal(ErrorCode(700), ErrCodeMarketDataFetchFailed)
}

func (suite *ErrorTestSuite) TestNewInsufficientDataErrorf() {
	err := NewInsufficientDataErrorf(350, 120, "2330", "need %d bars, got %d", 350, 120)
	suite.Equal(350, err.Required)
	suite.Equal(120, err.Actual)
	suite.Equal("2330", err.Symbol)
	suite.Equal("need 350 bars, got 120", err.Error())
	suite.True(IsInsufficientDataError(fmt.Errorf("wrapped: %w", err)))
	suite.False(IsInsufficientDataError(New(ErrCodeInvalidParameter, "x")))
}
