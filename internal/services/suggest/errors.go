package suggest

import (
	"errors"
	"fmt"
)

// BackendError is returned when the backend answers with a non-2xx status or with a
// body that cannot be decoded into a suggestion.
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("AI backend error: %d - %s", e.StatusCode, e.Message)
}

// NetworkError is returned when the request never produced a response
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("AI backend unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsBackendError reports whether err is (or wraps) a BackendError
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}

// IsNetworkError reports whether err is (or wraps) a NetworkError
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
