package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Parse/config errors (100-199)
	ErrCodeParse              ErrorCode = 100
	ErrCodeInvalidConfig      ErrorCode = 101
	ErrCodeInvalidOrder       ErrorCode = 102
	ErrCodeInvalidTransition  ErrorCode = 103
	ErrCodeUnknownOrderStatus ErrorCode = 104
	ErrCodeUnknownOrderType   ErrorCode = 105

	// Ledger errors (200-299)
	ErrCodeUnknownCurrency   ErrorCode = 200
	ErrCodeDuplicateCurrency ErrorCode = 201
	ErrCodeMissingRate       ErrorCode = 202

	// Feed errors (300-399)
	ErrCodeFeedUnavailable ErrorCode = 300

	// Adapter errors (400-499)
	ErrCodeAdapterRejected       ErrorCode = 400
	ErrCodeAdapterUnavailable    ErrorCode = 401
	ErrCodeUnknownExchange       ErrorCode = 402
	ErrCodeExchangeOrderNotFound ErrorCode = 403

	// Record errors (500-599)
	ErrCodeStoreFailed      ErrorCode = 500
	ErrCodeSnapshotNotFound ErrorCode = 501
)
