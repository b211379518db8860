package errors

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalid              = errors.New("invalid")
	ErrConflict             = errors.New("conflict")
	ErrTooMany              = errors.New("too many requests")
	ErrInternal             = errors.New("internal")
	ErrNoProvider           = errors.New("no extract provider usable")
	ErrProviderFailed       = errors.New("extract provider failed")
	ErrParse                = errors.New("malformed provider output")
	ErrValidation           = errors.New("candidate missing required fields")
	ErrEmbeddingUnavailable = errors.New("embedding endpoint unavailable")
	ErrDimensionMismatch    = errors.New("embedding dimension mismatch")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}
