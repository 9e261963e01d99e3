package playback

// EndReason describes why a started track stopped on its own.
type EndReason int

const (
	EndFinished EndReason = iota // Track played to completion
	EndFailed                    // Player gave up mid-track
)

// String returns the string representation of the end reason.
func (r EndReason) String() string {
	switch r {
	case EndFinished:
		return "finished"
	case EndFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is emitted by a Handle when a started track ends.
type Event struct {
	Epoch  uint64    // Epoch of the Request that ended
	Reason EndReason // Why it ended
	Err    error     // Cause when Reason is EndFailed
}
