package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/RyanBlaney/cry-sonar/apperr"
	"github.com/RyanBlaney/cry-sonar/logging"
	"github.com/google/uuid"
)

// JobHandle identifies a started job
type JobHandle struct {
	JobID    string `json:"task_id"`
	SourceID string `json:"file_id"`
}

// StatusReport is the user-visible state of a source
type StatusReport struct {
	SourceID string `json:"file_id"`
	Status   Status `json:"status"`
	Message  string `json:"message"`
	Progress int    `json:"progress"`
	JobID    string `json:"task_id,omitempty"`
}

const (
	queuedMessage      = "Analysis queued"
	uploadedMessage    = "File uploaded, analysis not started"
	completedMessage   = "Analysis completed"
	unscheduledMessage = "Analysis could not be scheduled"
	unreadableMessage  = "Audio source could not be opened"
)

// Service is the job control surface: it starts jobs on a pool and answers
// progress, status and result queries
type Service struct {
	orchestrator *Orchestrator
	store        Store
	progress     ProgressStore
	opener       SourceOpener
	pool         Submitter
}

// NewService wires a service from its collaborators
func NewService(orchestrator *Orchestrator, store Store, progress ProgressStore, opener SourceOpener, pool Submitter) *Service {
	return &Service{
		orchestrator: orchestrator,
		store:        store,
		progress:     progress,
		opener:       opener,
		pool:         pool,
	}
}

// Start claims the source and schedules its analysis
func (s *Service) Start(ctx context.Context, sourceID string) (JobHandle, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "analysis_service",
		"function":  "Start",
		"source_id": sourceID,
	})

	// configuration errors are rejected before anything is read
	if err := s.orchestrator.Config().Validate(); err != nil {
		return JobHandle{}, err
	}

	jobID := uuid.NewString()
	file, err := s.store.Claim(ctx, sourceID, jobID)
	if err != nil {
		return JobHandle{}, err
	}

	s.progress.Publish(ProgressUpdate{JobID: jobID, Percent: 0, Message: queuedMessage})

	err = s.pool.Submit(func(ctx context.Context) error {
		return s.run(ctx, jobID, file)
	})
	if err != nil {
		logger.Error(err, "Failed to schedule analysis", logging.Fields{"job_id": jobID})
		s.progress.Publish(ProgressUpdate{JobID: jobID, Percent: 0, Message: unscheduledMessage})
		if statusErr := s.store.SetStatus(ctx, sourceID, StatusFailed); statusErr != nil {
			logger.Error(statusErr, "Failed to mark source as failed")
		}
		return JobHandle{}, fmt.Errorf("schedule analysis: %w", err)
	}

	logger.Info("Analysis scheduled", logging.Fields{"job_id": jobID})
	return JobHandle{JobID: jobID, SourceID: sourceID}, nil
}

func (s *Service) run(ctx context.Context, jobID string, file *AudioFile) error {
	src, release, err := s.opener.Open(ctx, file)
	if err != nil {
		logging.WithFields(logging.Fields{
			"component": "analysis_service",
			"function":  "run",
			"job_id":    jobID,
			"source_id": file.ID,
		}).Error(err, "Failed to open audio source")

		s.progress.Publish(ProgressUpdate{JobID: jobID, Percent: 0, Message: unreadableMessage})
		if statusErr := s.store.SetStatus(context.WithoutCancel(ctx), file.ID, StatusFailed); statusErr != nil {
			return errors.Join(err, statusErr)
		}
		return err
	}
	defer release()

	_, err = s.orchestrator.Run(ctx, Job{
		ID:       jobID,
		SourceID: file.ID,
		Source:   src,
		Store:    s.store,
		Progress: s.progress,
	})
	return err
}

// Progress returns the latest progress of a job
func (s *Service) Progress(ctx context.Context, handle JobHandle) (ProgressUpdate, error) {
	return s.progress.Latest(ctx, handle.JobID)
}

// Status reports the lifecycle state of a source with its latest message
func (s *Service) Status(ctx context.Context, sourceID string) (StatusReport, error) {
	file, err := s.store.Get(ctx, sourceID)
	if err != nil {
		return StatusReport{}, err
	}

	report := StatusReport{
		SourceID: file.ID,
		Status:   file.Status,
		JobID:    file.JobID,
	}

	switch file.Status {
	case StatusUploaded:
		report.Message = uploadedMessage
	case StatusCompleted:
		report.Message = completedMessage
		report.Progress = 100
	case StatusProcessing, StatusFailed:
		update, err := s.progress.Latest(ctx, file.JobID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return StatusReport{}, err
		}
		report.Message = update.Message
		report.Progress = update.Percent
		if report.Message == "" && file.Status == StatusProcessing {
			report.Message = queuedMessage
		}
	}

	return report, nil
}

// Result returns the stored result of a source
func (s *Service) Result(ctx context.Context, sourceID string) (*AnalysisResult, error) {
	return s.store.LoadResult(ctx, sourceID)
}
