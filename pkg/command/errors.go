package command

import "errors"

var (
	// ErrMalformed indicates an unexpected byte after a command letter.
	ErrMalformed = errors.New("malformed command")
	// ErrIncomplete indicates a command letter without all its bytes.
	ErrIncomplete = errors.New("incomplete command")
	// ErrInvalid indicates an unknown command letter.
	ErrInvalid = errors.New("invalid command")
)
