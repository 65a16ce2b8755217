package errors

import (
	"errors"
	"fmt"
)

// Common error types
var (
	// Validation errors
	ErrMissingHost = errors.New("profile host is empty")
	ErrInvalidPort = errors.New("profile port must be an integer between 1 and 65535")

	// Profile errors
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileKeyEmpty = errors.New("profile key is empty")

	// Proxy errors
	ErrProxyUnsupported = errors.New("system proxy configuration not supported on this platform")
)

// ProfileError carries the profile key alongside a validation or lookup error.
type ProfileError struct {
	Key string
	Err error
}

func (e *ProfileError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("profile '%s': %v", e.Key, e.Err)
	}
	return fmt.Sprintf("profile: %v", e.Err)
}

func (e *ProfileError) Unwrap() error {
	return e.Err
}

// ApplyError reports that the host proxy capability rejected a configuration.
// It always triggers a fail-safe fallback to a direct connection.
type ApplyError struct {
	Target string // "direct" or "scheme://host:port"
	Err    error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("failed to apply proxy configuration (%s): %v", e.Target, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// StoreError reports a failed persistence read or write. The surrounding
// operation is aborted without partial state changes.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("settings store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
