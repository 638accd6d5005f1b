package token

// ErrorCode identifies a fatal validation failure. Any error code on a result
// makes the attempt invalid.
type ErrorCode string

const (
	CodeDecryptionFailed    ErrorCode = "TOKEN_DECRYPTION_FAILED"
	CodeTokenExpired        ErrorCode = "TOKEN_EXPIRED"
	CodeInvalidTimestamp    ErrorCode = "INVALID_TIMESTAMP"
	CodeFingerprintMismatch ErrorCode = "NETWORK_FINGERPRINT_MISMATCH"
	CodeMACMismatch         ErrorCode = "MAC_ADDRESS_MISMATCH"
	CodeExcessiveDrift      ErrorCode = "EXCESSIVE_LOCATION_DRIFT"
	CodeRateLimitExceeded   ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeIntegrityViolation  ErrorCode = "SESSION_INTEGRITY_VIOLATION"
)

// WarningCode identifies an advisory finding. Warnings reduce the security
// score but never invalidate an attempt on their own.
type WarningCode string

const (
	CodePartialNetworkMatch WarningCode = "PARTIAL_NETWORK_MATCH"
	CodeModerateDrift       WarningCode = "MODERATE_LOCATION_DRIFT"
)
