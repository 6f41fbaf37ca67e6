package rendezvous

import "errors"

// Sentinel kinds for rendezvous errors.
var (
	ErrTimeout         = errors.New("timed out waiting for tag")
	ErrDuplicateWaiter = errors.New("tag already has a waiter")
	ErrBadTag          = errors.New("malformed tag")
	ErrBadPayload      = errors.New("malformed tag payload")
)
