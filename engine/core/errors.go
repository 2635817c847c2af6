package core

import (
	"errors"
)

var (
	// ErrInvalidIdentity is returned when an identity does not reference
	// a live object in a handle table.
	ErrInvalidIdentity = errors.New("identity does not reference a live object")
	// ErrDestroyed is returned when an object is used after its reference
	// count already reached zero.
	ErrDestroyed = errors.New("object has been destroyed")
	ErrUnknown   = errors.New("unknown")
)
