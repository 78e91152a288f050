package cli

import (
	"errors"

	"github.com/arbml/masader-form/internal/app"
	"github.com/arbml/masader-form/pkg/types"
)

// exitError carries the exit code for an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error {
	return &exitError{code: exitUserError, err: err}
}

func sysError(err error) error {
	return &exitError{code: exitSysError, err: err}
}

// userErrors are the failures an operator fixes by changing their input.
var userErrors = []error{
	types.ErrUnknownField,
	types.ErrNotNested,
	types.ErrRowIndex,
	types.ErrCoerce,
	types.ErrNotDirectPDF,
	types.ErrDraftNotFound,
	types.ErrInvalidID,
	types.ErrInvalidName,
	app.ErrNotValid,
}

// fail classifies err: known input errors exit 1, everything else exits 2.
func fail(err error) error {
	if err == nil {
		return nil
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return err
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return userError(err)
		}
	}
	return sysError(err)
}

// exitCode returns the code for err. Errors raised by cobra itself, like
// unknown flags or wrong argument counts, are user errors.
func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}
