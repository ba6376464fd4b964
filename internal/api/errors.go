package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// ErrProviderUnavailable marks a call that exhausted its retry budget on
// transient failures. Callers decide whether that is fatal for their phase.
var ErrProviderUnavailable = errors.New("stats provider unavailable")

// ProviderError is a non-2xx HTTP response from the stats provider.
type ProviderError struct {
	StatusCode int
	Status     string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned HTTP %d (%s)", e.StatusCode, e.Status)
}

// Class is the retry classification of a provider call failure.
type Class int

const (
	// ClassPermanent errors are never retried (4xx other than 429,
	// malformed response bodies).
	ClassPermanent Class = iota
	// ClassTransient errors get the standard exponential backoff
	// (timeouts, network errors, 5xx).
	ClassTransient
	// ClassRateLimit errors (HTTP 429) get a longer, jittered backoff.
	ClassRateLimit
)

// Classify maps an error from a provider call to its retry class.
func Classify(err error) Class {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		switch {
		case provErr.StatusCode == 429:
			return ClassRateLimit
		case provErr.StatusCode >= 500 && provErr.StatusCode <= 504:
			return ClassTransient
		default:
			return ClassPermanent
		}
	}

	// Cancellation must not be retried away.
	if errors.Is(err, context.Canceled) {
		return ClassPermanent
	}

	// Timeouts and network-level failures are transient.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return ClassTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}

	return ClassPermanent
}
