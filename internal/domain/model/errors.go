package model

import "errors"

// Sentinel kinds for model errors.
var (
	ErrInvalidClientID = errors.New("invalid client id")
)
