package exchange

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingPrerequisite wraps every error raised because an entity a handler depends on is not
	// there yet. Such events are skipped, not fatal.
	ErrMissingPrerequisite = errors.New("missing prerequisite entity")

	ErrUnresolvedDecimals = errors.New("unable to resolve token decimals")
)

type MissingEntityError struct {
	Table string
	ID    string
}

func missing(table, id string) error {
	return &MissingEntityError{Table: table, ID: id}
}

func (e *MissingEntityError) Error() string {
	return fmt.Sprintf("%s: %s %q", ErrMissingPrerequisite, e.Table, e.ID)
}

func (e *MissingEntityError) Unwrap() error {
	return ErrMissingPrerequisite
}

// PanicError is what a handler panic is turned into at the dispatch boundary.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}
