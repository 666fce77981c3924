// Package errs provides the error types returned by the web api and the
// mapping of blocktree failures to HTTP status codes.
package errs

import (
	"errors"
	"net/http"

	"github.com/ardanlabs/blocktree/business/sys/validate"
	"github.com/ardanlabs/blocktree/foundation/blocktree/database"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (te *Trusted) Error() string {
	return te.Err.Error()
}

// Unwrap returns the wrapped error.
func (te *Trusted) Unwrap() error {
	return te.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var te *Trusted
	return errors.As(err, &te)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var te *Trusted
	if !errors.As(err, &te) {
		return nil
	}
	return te
}

// =============================================================================

// FromLedger marks the blocktree failures a client can act on as trusted.
// Any other error is returned as is and reported as an internal failure.
func FromLedger(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, database.ErrBranchNotFound), errors.Is(err, database.ErrBlockNotFound), errors.Is(err, database.ErrTxNotFound):
		return NewTrusted(err, http.StatusNotFound)

	case errors.Is(err, database.ErrTransaction), validate.IsFieldErrors(err):
		return NewTrusted(err, http.StatusBadRequest)

	case errors.Is(err, database.ErrMiningTimeout), errors.Is(err, database.ErrNetwork):
		return NewTrusted(err, http.StatusServiceUnavailable)
	}

	return err
}
