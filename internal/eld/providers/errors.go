package providers

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedVendor   = errors.New("unsupported ELD vendor")
	ErrVendorNotConfigured = errors.New("ELD vendor not configured")
)

// ErrorCategory is the normalized vendor failure taxonomy. Adapters pick one per
// failure; the engine only ever looks at the category, never at vendor payloads.
type ErrorCategory string

const (
	ErrorTimeout          ErrorCategory = "timeout"
	ErrorBadData          ErrorCategory = "bad_data"          // out-of-range minutes, unparseable fields
	ErrorAuthentication   ErrorCategory = "authentication"    // rejected token or secret header
	ErrorProviderOutage   ErrorCategory = "provider_outage"   // 5xx, connection refused, breaker open
	ErrorContractMismatch ErrorCategory = "contract_mismatch" // response shape no longer matches
	ErrorNotFound         ErrorCategory = "not_found"         // vendor knows no such device or driver
	ErrorRateLimited      ErrorCategory = "rate_limited"
	ErrorInternal         ErrorCategory = "internal"
)

// Retryable reports whether a later call for the same device may succeed.
func (c ErrorCategory) Retryable() bool {
	switch c {
	case ErrorTimeout, ErrorProviderOutage, ErrorRateLimited:
		return true
	}
	return false
}

// ProviderError is the only error type adapters return. Transport and decode
// errors stay in Underlying for logging.
type ProviderError struct {
	Vendor     string
	Category   ErrorCategory
	Message    string
	Underlying error
	Retryable  bool
}

// NewProviderError builds a ProviderError whose retryability follows its category.
func NewProviderError(category ErrorCategory, vendor, message string, underlying error) *ProviderError {
	return &ProviderError{
		Vendor:     vendor,
		Category:   category,
		Message:    message,
		Underlying: underlying,
		Retryable:  category.Retryable(),
	}
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("eld vendor %s [%s]: %s", e.Vendor, e.Category, e.Message)
	if e.Underlying == nil {
		return msg
	}
	return msg + ": " + e.Underlying.Error()
}

func (e *ProviderError) Unwrap() error { return e.Underlying }

func asProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	ok := errors.As(err, &pe)
	return pe, ok
}

// IsRetryable is false for anything that is not a ProviderError.
func IsRetryable(err error) bool {
	pe, ok := asProviderError(err)
	return ok && pe.Retryable
}

// GetCategory returns ErrorInternal for non-provider errors.
func GetCategory(err error) ErrorCategory {
	if pe, ok := asProviderError(err); ok {
		return pe.Category
	}
	return ErrorInternal
}
