package showdrive

// HTTP status code constants.
const (
	StatusOK       = 200
	StatusAccepted = 202
)

// Score generation range. Judges score each criterion on a 0-10 scale.
const (
	scoreMin   = 4.0
	scoreRange = 6.0
)

// Stream parsing constants.
const (
	eventChannelBuffer = 32
)
