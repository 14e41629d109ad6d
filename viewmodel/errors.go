package viewmodel

import "errors"

var (
	// ErrDuplicateCommand is returned when a processor is registered for a
	// command that already has one.
	ErrDuplicateCommand = errors.New("viewmodel: duplicate command")

	// ErrEmptyCommand is returned when a processor has no command.
	ErrEmptyCommand = errors.New("viewmodel: empty command")
)
