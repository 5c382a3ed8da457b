package errors

import (
	"fmt"
	"strings"
)

/*
Error aggregates multiple failures into one value, used where several
independent checks run before anything can proceed, such as config
validation.
*/
type Error struct {
	Errs []error
	Msgs []any
}

func NewError(errs ...any) error {
	err := &Error{}

	for _, msg := range errs {
		switch v := msg.(type) {
		case error:
			err.Errs = append(err.Errs, v)
		case string:
			err.Msgs = append(err.Msgs, v)
		}
	}

	return err
}

func (err *Error) Error() string {
	builder := &strings.Builder{}

	for _, err := range err.Errs {
		builder.WriteString(err.Error())
		builder.WriteString("\n")
	}

	for _, msg := range err.Msgs {
		builder.WriteString(fmt.Sprintf("%v\n", msg))
	}

	return builder.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (err *Error) Unwrap() []error {
	return err.Errs
}
