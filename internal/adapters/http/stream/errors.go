package stream

import "errors"

// Sentinel kinds for stream errors.
var (
	ErrQueueFull            = errors.New("outbound frame queue full or closed")
	ErrStreamingUnsupported = errors.New("response writer does not support streaming")
)
