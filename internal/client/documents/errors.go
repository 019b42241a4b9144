package documents

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDuplicateID       = errors.New("document id already used")
)
