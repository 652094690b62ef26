package registry

import "errors"

// ErrInvalidTransition indicates an attempt to move a conversation to a
// status that is not reachable from its current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrNotFound indicates the requested conversation is not registered.
var ErrNotFound = errors.New("conversation not found")
