package learning

import "errors"

var (
	// ErrInvalidInput is returned before any state is read or written.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConcurrentModification signals that a stored row changed since it was read.
	ErrConcurrentModification = errors.New("concurrent modification")
	// ErrTransientFailure is returned when conflicts persist after the retry budget.
	ErrTransientFailure = errors.New("transient failure")
	// ErrPersistenceUnavailable wraps store failures and timeouts.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)

// IsRetryable reports whether the caller may retry the whole request.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientFailure) || errors.Is(err, ErrPersistenceUnavailable)
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field       string
	Description string
}

// InvalidInputError carries the rejected fields and matches ErrInvalidInput.
type InvalidInputError struct {
	Fields []FieldError
}

func (e *InvalidInputError) Error() string {
	msg := ErrInvalidInput.Error()
	for i, f := range e.Fields {
		if i == 0 {
			msg += ": "
		} else {
			msg += ", "
		}
		msg += f.Field + " " + f.Description
	}
	return msg
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidInput(field, description string) error {
	return &InvalidInputError{Fields: []FieldError{{Field: field, Description: description}}}
}
