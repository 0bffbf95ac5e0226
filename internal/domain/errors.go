package domain

import "errors"

var (
	// ErrNotFound is returned by stores when the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName is returned when a schedule name is already taken.
	ErrDuplicateName = errors.New("schedule name already exists")
)
