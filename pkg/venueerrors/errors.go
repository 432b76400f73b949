// Package venueerrors defines the closed error taxonomy surfaced by the
// transport and execution layers. Callers classify with errors.As/errors.Is
// rather than string-sniffing.
package venueerrors

import (
	"fmt"
	"time"
)

// ConfigurationError signals a fatal, startup-time misconfiguration.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// AuthenticationError wraps a 401/403 response from the venue. Never retried.
type AuthenticationError struct {
	StatusCode int
	Message    string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication error (%d): %s", e.StatusCode, e.Message)
}

// RateLimitError wraps a 429 response. RetryAfter is the duration the caller
// should wait before retrying; it is zero if the venue did not send one.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// OrderError wraps a 400 / rejected-leg response.
type OrderError struct {
	Code    string
	Message string
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order error %s: %s", e.Code, e.Message)
}

// InsufficientFundsError is a special-case OrderError (a 400 whose body
// mentions insufficient funds) reported as its own type.
type InsufficientFundsError struct {
	Message string
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: %s", e.Message)
}

// NotFoundError wraps a 404 response.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.Resource)
}

// CircuitBreakerOpenError is returned by the circuit breaker gate when it is
// denying trades. It is not an error in the taxonomy sense but a gate signal
// callers must honor.
type CircuitBreakerOpenError struct {
	CooldownRemaining time.Duration
}

func (e *CircuitBreakerOpenError) Error() string {
	return fmt.Sprintf("circuit breaker open, cooldown remaining %s", e.CooldownRemaining)
}

// VenueError is the generic fallback for any other non-2xx response.
type VenueError struct {
	StatusCode int
	Message    string
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("venue error (%d): %s", e.StatusCode, e.Message)
}
