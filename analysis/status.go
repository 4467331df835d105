package analysis

// Status is the lifecycle state of an audio source's analysis
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is one of the four lifecycle states
func (s Status) Valid() bool {
	switch s {
	case StatusUploaded, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
// A failed source may be claimed again; a completed one may not.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusUploaded, StatusFailed:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	}
	return false
}
