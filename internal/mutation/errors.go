package mutation

import "fmt"

type validationError string

func (e validationError) Error() string    { return string(e) }
func (e validationError) Validation() bool { return true }

var (
	ErrInvalidInput error = validationError("invalid input")
	ErrEmptyPatch         = fmt.Errorf("%w: patch has no fields", ErrInvalidInput)
)
