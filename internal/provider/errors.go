package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Reason identifies why a provider attempt failed
type Reason string

const (
	ReasonQuotaExhausted Reason = "quota_exhausted"
	ReasonAuthFailed     Reason = "auth_failed"
	ReasonNotFound       Reason = "not_found"
	ReasonRateLimited    Reason = "rate_limited"
	ReasonTransport      Reason = "transport"
	ReasonGeneric        Reason = "generic"
	ReasonJobFailed      Reason = "job_failed"
	ReasonTimeout        Reason = "timeout"
	ReasonCircuitOpen    Reason = "circuit_open"
	ReasonUnusable       Reason = "unusable_result"
	ReasonNoData         Reason = "no_data"
	ReasonPrivate        Reason = "private_account"
)

// Class groups reasons by how a caller should react to them
type Class int

const (
	// ClassUnavailable means the provider could not serve the request; try another or retry later
	ClassUnavailable Class = iota
	// ClassBadInput means the target itself cannot be analyzed
	ClassBadInput
)

// String returns the class name
func (c Class) String() string {
	if c == ClassBadInput {
		return "bad_input"
	}
	return "unavailable"
}

// Class returns the class the reason belongs to
func (r Reason) Class() Class {
	switch r {
	case ReasonNoData, ReasonPrivate:
		return ClassBadInput
	default:
		return ClassUnavailable
	}
}

// ProviderError is the typed failure of one provider call
type ProviderError struct {
	Provider   string
	Reason     Reason
	StatusCode int
	Detail     string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	b.WriteString(": ")
	b.WriteString(string(e.Reason))
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Class returns the class of the underlying reason
func (e *ProviderError) Class() Class {
	return e.Reason.Class()
}

// NewError creates a provider error without an HTTP status
func NewError(providerID string, reason Reason, detail string, err error) *ProviderError {
	return &ProviderError{
		Provider: providerID,
		Reason:   reason,
		Detail:   detail,
		Err:      err,
	}
}

// AsProviderError extracts a *ProviderError from err's chain
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// ReasonOf returns the reason carried by err, generic when err is not a provider error
func ReasonOf(err error) Reason {
	if pe, ok := AsProviderError(err); ok {
		return pe.Reason
	}
	return ReasonGeneric
}

var quotaMarkers = []string{"credit", "usage limit", "quota", "insufficient balance", "monthly limit"}

// classifyHTTP maps a non-2xx provider response to a typed error
func classifyHTTP(providerID string, status int, body []byte) *ProviderError {
	detail := truncate(strings.TrimSpace(string(body)), 300)
	lower := strings.ToLower(detail)

	reason := ReasonGeneric
	switch {
	case status == http.StatusPaymentRequired:
		reason = ReasonQuotaExhausted
	case containsAny(lower, quotaMarkers):
		reason = ReasonQuotaExhausted
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		reason = ReasonAuthFailed
	case status == http.StatusNotFound:
		reason = ReasonNotFound
	case status == http.StatusTooManyRequests:
		reason = ReasonRateLimited
	case status >= 500:
		reason = ReasonTransport
	}

	return &ProviderError{
		Provider:   providerID,
		Reason:     reason,
		StatusCode: status,
		Detail:     detail,
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
