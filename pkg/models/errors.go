package models

import (
	"errors"
	"fmt"
)

// ErrMalformedRecord marks a raw transfer sub-entry that failed shape validation.
// It never reaches callers of the analysis entry points; offending entries are dropped.
var ErrMalformedRecord = errors.New("malformed transfer record")

// FetchError is returned when an external source answers with a non-success
// status or an undecodable payload. It is fatal to the analysis run.
type FetchError struct {
	Source     string // "helius", "flipside"
	StatusCode int    // 0 when the request never completed
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s fetch failed (status %d): %s", e.Source, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s fetch failed: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s fetch failed: %s", e.Source, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ConfigurationError reports a missing or invalid setting.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Key, e.Reason)
}

// ScoringUnavailableError is produced when an input to the transaction-level
// scorer (e.g. the sender's funding time) cannot be obtained. The affected
// transaction is scored as Clean.
type ScoringUnavailableError struct {
	Subject string // transaction signature or sender address
	Err     error
}

func (e *ScoringUnavailableError) Error() string {
	return fmt.Sprintf("scoring unavailable for %s: %v", e.Subject, e.Err)
}

func (e *ScoringUnavailableError) Unwrap() error { return e.Err }
