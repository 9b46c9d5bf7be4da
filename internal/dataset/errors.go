package dataset

import (
	"github.com/rotisserie/eris"
)

// ErrLoadFailure marks any failure to produce a dataset: an unreachable
// source, an unparsable file, or rows that fail validation.
var ErrLoadFailure = eris.New("dataset: load failure")

// ErrValidation marks data that parsed but is inconsistent.
var ErrValidation = eris.New("dataset: validation failed")

// LoadError reports which source failed. It matches ErrLoadFailure and
// unwraps to the underlying cause.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return "dataset: load " + e.Source + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is reports whether target is ErrLoadFailure.
func (e *LoadError) Is(target error) bool { return target == ErrLoadFailure }

func loadError(source string, err error) error {
	if err == nil {
		return nil
	}
	return &LoadError{Source: source, Err: err}
}
