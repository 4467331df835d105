package analysis

import (
	"context"
	"time"

	"github.com/RyanBlaney/cry-sonar/transcode"
)

// AudioFile is an uploaded recording as seen by the job control surface
type AudioFile struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	Status    Status    `json:"status"`
	JobID     string    `json:"task_id,omitempty"`
	Duration  float64   `json:"duration"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResultWriter is the persistence handle a single job writes through
type ResultWriter interface {
	// SetStatus moves the source to a new lifecycle state
	SetStatus(ctx context.Context, sourceID string, status Status) error
	// SaveResult stores the result and marks the source completed in one
	// atomic step
	SaveResult(ctx context.Context, sourceID string, result *AnalysisResult) error
}

// Store is the full persistence contract of the job control surface
type Store interface {
	ResultWriter
	// Get returns apperr.ErrNotFound for unknown sources
	Get(ctx context.Context, sourceID string) (*AudioFile, error)
	// Claim atomically moves an uploaded or failed source to processing and
	// records jobID. It returns apperr.ErrJobActive or
	// apperr.ErrAlreadyCompleted when the source cannot be claimed.
	Claim(ctx context.Context, sourceID, jobID string) (*AudioFile, error)
	// LoadResult returns apperr.ErrNotFound when no result was stored
	LoadResult(ctx context.Context, sourceID string) (*AnalysisResult, error)
}

// ProgressStore is the polling side of the progress channel
type ProgressStore interface {
	ProgressSink
	// Latest returns apperr.ErrNotFound for unknown or expired jobs
	Latest(ctx context.Context, jobID string) (ProgressUpdate, error)
}

// SourceOpener resolves an audio file to a readable source. release frees
// anything held for the job, such as a downloaded copy.
type SourceOpener interface {
	Open(ctx context.Context, file *AudioFile) (src transcode.Source, release func(), err error)
}

// Submitter runs jobs in the background
type Submitter interface {
	Submit(task func(ctx context.Context) error) error
}
