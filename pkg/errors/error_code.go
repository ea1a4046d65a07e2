package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInsufficientData     ErrorCode = 106
	ErrCodeInvalidPeriod        ErrorCode = 108
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeInvalidVersion       ErrorCode = 110

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeNoDataFound           ErrorCode = 204
	ErrCodeInvalidBar            ErrorCode = 205

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound      ErrorCode = 300
	ErrCodeIndicatorAlreadyExists ErrorCode = 301
	ErrCodeIndicatorCalculation   ErrorCode = 302

	// Signal errors (400-499)
	ErrCodeSignalUndefined ErrorCode = 400
	ErrCodeMarketBearish   ErrorCode = 401

	// Trading/ledger errors (500-599)
	ErrCodeOrderFailed          ErrorCode = 500
	ErrCodePositionNotFound     ErrorCode = 501
	ErrCodeMarketDataMissing    ErrorCode = 502
	ErrCodeInsufficientCash     ErrorCode = 503
	ErrCodeDuplicatePosition    ErrorCode = 504
	ErrCodeMaxPositionsReached  ErrorCode = 505
	ErrCodeInvalidStopLoss      ErrorCode = 506
	ErrCodeInvalidPositionSize  ErrorCode = 507
	ErrCodeNonPositiveRiskPerSh ErrorCode = 508

	// State errors (600-699)
	ErrCodeStateCorrupt         ErrorCode = 600
	ErrCodeStateReadFailed      ErrorCode = 601
	ErrCodeStateWriteFailed     ErrorCode = 602
	ErrCodeStateMigrationFailed ErrorCode = 603
	ErrCodeReportWriteFailed    ErrorCode = 604

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataWriteFailed ErrorCode = 701
	ErrCodeMarketDataParseFailed ErrorCode = 702
	ErrCodeInvalidProvider       ErrorCode = 704
	ErrCodeRateLimited           ErrorCode = 705
	ErrCodeCircuitOpen           ErrorCode = 706
)
