package pipeline

import (
	"errors"
	"fmt"
	"time"

	"socialprobe/internal/provider"
)

var (
	// ErrBadInput means the target cannot be analyzed, e.g. a private account or no data
	ErrBadInput = errors.New("profile cannot be analyzed")
	// ErrProviderUnavailable means no provider could serve the request; retry later
	ErrProviderUnavailable = errors.New("service temporarily unavailable")
	// ErrAllProvidersFailed is matched by every terminal chain failure
	ErrAllProvidersFailed = errors.New("all providers failed")
)

// Attempt records one provider's outcome within a chain walk
type Attempt struct {
	Provider string          `json:"provider"`
	Reason   provider.Reason `json:"reason"`
	Error    string          `json:"error"`
	Duration time.Duration   `json:"duration"`

	err error
}

// Err returns the error the attempt ended with
func (a Attempt) Err() error {
	return a.err
}

// AllProvidersFailedError is returned when the chain is exhausted without a usable result
type AllProvidersFailedError struct {
	Attempts []Attempt
	Last     error
}

func (e *AllProvidersFailedError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("all providers failed after %d attempts", len(e.Attempts))
	}
	return fmt.Sprintf("all providers failed after %d attempts: %v", len(e.Attempts), e.Last)
}

// Unwrap exposes ErrAllProvidersFailed, the class sentinel and the last concrete error
func (e *AllProvidersFailedError) Unwrap() []error {
	errs := []error{ErrAllProvidersFailed, classSentinel(e.Last)}
	if e.Last != nil {
		errs = append(errs, e.Last)
	}
	return errs
}

// Class returns ErrBadInput or ErrProviderUnavailable for the terminal failure
func (e *AllProvidersFailedError) Class() error {
	return classSentinel(e.Last)
}

func classSentinel(err error) error {
	if pe, ok := provider.AsProviderError(err); ok && pe.Class() == provider.ClassBadInput {
		return ErrBadInput
	}
	return ErrProviderUnavailable
}

// IsBadInput reports whether err means the target itself cannot be analyzed
func IsBadInput(err error) bool {
	return errors.Is(err, ErrBadInput)
}
