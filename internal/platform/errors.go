package platform

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the platform object no longer resolves.
	ErrNotFound = errors.New("platform object not found")
	// ErrForbidden means the bot lacks permission for the call.
	ErrForbidden = errors.New("platform permission denied")
)

// Error is a failed platform call.
type Error struct {
	Op  string
	ID  string
	Err error
}

func (e *Error) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("platform %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("platform %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap annotates err with the operation and object id. nil stays nil.
func Wrap(op, id string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{Op: op, ID: id, Err: err}
}

// IsNotFound reports whether err means the object is gone.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
