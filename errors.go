package ddns

import (
	"errors"
	"fmt"
)

// ErrRecordNotFound is returned by a resync when the provider has no address record for the target.
var ErrRecordNotFound = errors.New("record not found")

// NetworkError is returned by resolvers when the public IP could not be fetched.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("resolving public IP: %s", e.Err)
	}
	return fmt.Sprintf("resolving public IP from %s: %s", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProviderError is returned by providers when an API call fails.
// Op is the operation that was attempted, e.g. "lookup" or "update".
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
