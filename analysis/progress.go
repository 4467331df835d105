package analysis

import (
	"math"
	"sync"
	"time"
)

// ProgressUpdate is one side-channel notification of a job
type ProgressUpdate struct {
	JobID     string    `json:"task_id"`
	Percent   int       `json:"progress"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProgressSink receives progress notifications. Publish must not block the
// caller; dropping or overwriting an update is acceptable.
type ProgressSink interface {
	Publish(update ProgressUpdate)
}

// Tracker turns fractional progress into a non-decreasing integer
// percentage for one job and forwards it to a sink
type Tracker struct {
	mu    sync.Mutex
	jobID string
	sink  ProgressSink
	last  ProgressUpdate
}

// NewTracker creates a tracker. A nil sink discards updates.
func NewTracker(jobID string, sink ProgressSink) *Tracker {
	return &Tracker{
		jobID: jobID,
		sink:  sink,
		last:  ProgressUpdate{JobID: jobID},
	}
}

// Report publishes percent (clamped to [0, 100] and floored) with message.
// A value below the last published one is raised to it.
func (t *Tracker) Report(percent float64, message string) {
	p := int(math.Floor(min(max(percent, 0), 100)))

	t.mu.Lock()
	p = max(p, t.last.Percent)
	t.last = ProgressUpdate{
		JobID:     t.jobID,
		Percent:   p,
		Message:   message,
		UpdatedAt: time.Now().UTC(),
	}
	update := t.last
	t.mu.Unlock()

	if t.sink != nil {
		t.sink.Publish(update)
	}
}

// Last returns the most recent update
func (t *Tracker) Last() ProgressUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}
