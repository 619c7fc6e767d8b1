package recipients

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedAddress = errors.New("invalid address format")
	ErrDuplicateAddress = errors.New("address already added")
	ErrCapacityExceeded = errors.New("too many recipients")
)

// ValidationError reports which input token made a list mutation fail.
type ValidationError struct {
	Err   error
	Token string
	Max   int
}

func (e *ValidationError) Error() string {
	if errors.Is(e.Err, ErrCapacityExceeded) {
		return fmt.Sprintf("cannot add more than %d recipients", e.Max)
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Token)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
