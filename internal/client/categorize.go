package client

import (
	"context"
	"errors"
	"net"
)

// ErrorCategory is a stable label for error classification in metrics and logs.
type ErrorCategory string

const (
	ErrorCategoryTimeout             ErrorCategory = "timeout"
	ErrorCategoryNetwork             ErrorCategory = "network"
	ErrorCategoryInvalidAPIKey       ErrorCategory = "invalid_api_key"
	ErrorCategoryCityNotFound        ErrorCategory = "city_not_found"
	ErrorCategoryLocationUnavailable ErrorCategory = "location_unavailable"
	ErrorCategoryRateLimited         ErrorCategory = "rate_limited"
	ErrorCategoryUpstream5xx         ErrorCategory = "upstream_5xx"
	ErrorCategoryCircuitOpen         ErrorCategory = "circuit_open"
	ErrorCategoryFetchFailed         ErrorCategory = "fetch_failed"
	ErrorCategoryUnknown             ErrorCategory = "unknown"
)

// CategorizeError maps an error to a stable ErrorCategory. More specific sentinels are checked first.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrorCategoryTimeout
	case errors.Is(err, ErrInvalidAPIKey):
		return ErrorCategoryInvalidAPIKey
	case errors.Is(err, ErrLocationUnavailable):
		return ErrorCategoryLocationUnavailable
	case errors.Is(err, ErrCityNotFound):
		return ErrorCategoryCityNotFound
	case errors.Is(err, ErrRateLimited):
		return ErrorCategoryRateLimited
	case errors.Is(err, ErrUpstreamFailure):
		return ErrorCategoryUpstream5xx
	case errors.Is(err, ErrCircuitOpen):
		return ErrorCategoryCircuitOpen
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorCategoryTimeout
		}
		return ErrorCategoryNetwork
	}

	if errors.Is(err, ErrFetchFailed) {
		return ErrorCategoryFetchFailed
	}
	return ErrorCategoryUnknown
}
