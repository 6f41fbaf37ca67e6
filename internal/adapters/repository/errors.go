package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound = errors.New("no competitions found")
	ErrClosed   = errors.New("store closed")
)
