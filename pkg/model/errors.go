package model

import "github.com/m-mizutani/goerr/v2"

// Error kinds shared by adapters, repositories and use cases. Callers classify
// failures with errors.Is against these values.
var (
	ErrValidation       = goerr.New("validation error")
	ErrNotFound         = goerr.New("not found")
	ErrUnsupportedModel = goerr.New("unsupported model")
	ErrStorage          = goerr.New("storage error")
	ErrPersistence      = goerr.New("persistence error")
	ErrEmptyResult      = goerr.New("empty result")
)

type kindError struct {
	kind  error
	cause error
}

func (x *kindError) Error() string   { return x.cause.Error() }
func (x *kindError) Unwrap() []error { return []error{x.kind, x.cause} }

// WithKind marks cause with one of the error kinds above. errors.Is matches
// both kind and anything in the cause chain.
func WithKind(kind, cause error) error {
	if cause == nil {
		return nil
	}
	return &kindError{kind: kind, cause: cause}
}
