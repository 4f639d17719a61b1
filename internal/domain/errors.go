package domain

import "errors"

var (
	// ErrInvalidRange is returned when a recitation range cannot be built
	ErrInvalidRange = errors.New("invalid recitation range")

	// ErrEmptyRange is returned when a range holds no recitable words
	ErrEmptyRange = errors.New("recitation range has no words")

	// ErrNoSession is returned when an operation needs an active session
	ErrNoSession = errors.New("no active recitation session")

	// ErrSessionActive is returned when starting over a running session
	ErrSessionActive = errors.New("recitation session already active")

	// ErrNotFound is returned by stores for missing records
	ErrNotFound = errors.New("not found")
)
