package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/RyanBlaney/cry-sonar/acoustic"
	"github.com/RyanBlaney/cry-sonar/analysis/config"
	"github.com/RyanBlaney/cry-sonar/apperr"
	"github.com/RyanBlaney/cry-sonar/detection"
	"github.com/RyanBlaney/cry-sonar/logging"
	"github.com/RyanBlaney/cry-sonar/transcode"
)

// Progress allocation. Detection fills [detectionStart, episodesStart],
// episodes share [episodesStart, savingPercent] evenly.
const (
	loadingPercent   = 5
	detectionStart   = 10
	episodesStart    = 40
	savingPercent    = 95
	completedPercent = 100

	episodeSubSteps = 15.0
)

// FrameAnalyzer computes the acoustic frames of one episode
type FrameAnalyzer interface {
	Analyze(ctx context.Context, samples []float64, sampleRate int, startTime float64, progress acoustic.ProgressFunc) ([]acoustic.AcousticFrame, error)
}

// Job is one invocation of the pipeline. Store and Progress are scoped to
// this job only.
type Job struct {
	ID       string
	SourceID string
	Source   transcode.Source
	Store    ResultWriter
	Progress ProgressSink
}

// Orchestrator sequences detection, per-episode acoustic analysis and unit
// segmentation for one recording and drives its lifecycle. It holds no
// per-job state, so one instance serves concurrent jobs.
type Orchestrator struct {
	cfg       *config.Config
	detector  *detection.EpisodeDetector
	segmenter *detection.UnitSegmenter
	analyzer  FrameAnalyzer
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithFrameAnalyzer replaces the acoustic analyzer
func WithFrameAnalyzer(a FrameAnalyzer) Option {
	return func(o *Orchestrator) {
		o.analyzer = a
	}
}

// NewOrchestrator validates cfg and builds the pipeline stages
func NewOrchestrator(cfg *config.Config, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	segmenter, err := detection.NewUnitSegmenter(cfg.Units)
	if err != nil {
		return nil, fmt.Errorf("create unit segmenter: %w", err)
	}

	o := &Orchestrator{
		cfg:       cfg,
		detector:  detection.NewEpisodeDetector(cfg.Detector),
		segmenter: segmenter,
		analyzer:  acoustic.NewAnalyzer(cfg.Acoustic),
	}
	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

// Config returns the analysis configuration
func (o *Orchestrator) Config() *config.Config {
	return o.cfg
}

// Run analyzes the job's source and persists the result, which also marks
// the source completed. On any error the source is set to failed, nothing is
// persisted and the error is returned.
func (o *Orchestrator) Run(ctx context.Context, job Job) (*AnalysisResult, error) {
	ctx = logging.ContextWithFields(ctx, logging.Fields{
		"job_id":    job.ID,
		"source_id": job.SourceID,
	})
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "orchestrator",
		"function":  "Run",
	})

	tracker := NewTracker(job.ID, job.Progress)
	started := time.Now()

	result, err := o.runRecovered(ctx, job, tracker, logger)
	if err != nil {
		logger.Error(err, "Analysis failed", logging.Fields{
			"last_message": tracker.Last().Message,
			"progress":     tracker.Last().Percent,
		})

		// the job context may already be done
		if statusErr := job.Store.SetStatus(context.WithoutCancel(ctx), job.SourceID, StatusFailed); statusErr != nil {
			logger.Error(statusErr, "Failed to mark source as failed")
		}
		return nil, err
	}

	logger.Info("Analysis completed", logging.Fields{
		"episodes": len(result.Episodes),
		"elapsed":  time.Since(started).String(),
	})

	return result, nil
}

// runRecovered turns a panic inside the pipeline into a processing error
// tagged with the episode being analyzed, or -1 outside the episode loop
func (o *Orchestrator) runRecovered(ctx context.Context, job Job, tracker *Tracker, logger logging.Logger) (result *AnalysisResult, err error) {
	current := -1
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = apperr.NewProcessingError("panic", current, fmt.Errorf("%v", r))
		}
	}()

	return o.run(ctx, job, tracker, logger, &current)
}

func (o *Orchestrator) run(ctx context.Context, job Job, tracker *Tracker, logger logging.Logger, current *int) (*AnalysisResult, error) {
	tracker.Report(loadingPercent, "Loading audio source")
	if job.Source == nil || job.Source.Duration() <= 0 {
		return nil, apperr.ErrEmptyAudio
	}

	tracker.Report(detectionStart, "Detecting cry episodes")
	episodes, err := o.detector.Detect(ctx, job.Source, func(done, total int) {
		fraction := float64(done) / float64(total)
		tracker.Report(detectionStart+fraction*(episodesStart-detectionStart),
			fmt.Sprintf("Detecting cry episodes (%d/%d)", done, total))
	})
	if err != nil {
		return nil, apperr.NewProcessingError("detection", -1, err)
	}

	tracker.Report(episodesStart, fmt.Sprintf("Found %d cry episodes", len(episodes)))
	logger.Info("Cry episodes detected", logging.Fields{"episodes": len(episodes)})

	results := make([]EpisodeResult, 0, len(episodes))
	for i, episode := range episodes {
		*current = i
		if err := ctx.Err(); err != nil {
			return nil, apperr.NewProcessingError("episode", i, err)
		}

		res, err := o.analyzeEpisode(ctx, job.Source, i, len(episodes), episode, tracker)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	*current = -1

	tracker.Report(savingPercent, "Saving results")
	result := &AnalysisResult{
		SourceID:   job.SourceID,
		AnalyzedAt: time.Now().UTC(),
		Episodes:   results,
	}
	if err := job.Store.SaveResult(ctx, job.SourceID, result); err != nil {
		return nil, apperr.NewProcessingError("persist", -1, err)
	}

	tracker.Report(completedPercent, "Analysis completed")
	return result, nil
}

// analyzeEpisode reads the episode audio once and shares it between the
// acoustic analyzer and the unit segmenter
func (o *Orchestrator) analyzeEpisode(ctx context.Context, src transcode.Source, index, total int, episode detection.CryEpisode, tracker *Tracker) (EpisodeResult, error) {
	span := float64(savingPercent-episodesStart) / float64(total)
	base := episodesStart + float64(index)*span
	step := func(sub float64, msg string) {
		tracker.Report(base+sub/episodeSubSteps*span, fmt.Sprintf("Episode %d/%d: %s", index+1, total, msg))
	}

	step(1, "Loading audio")
	samples, err := src.ReadRange(ctx, episode.StartTime, episode.EndTime)
	if err != nil {
		return EpisodeResult{}, apperr.NewProcessingError("load", index, err)
	}

	frames, err := o.analyzer.Analyze(ctx, samples, src.SampleRate(), episode.StartTime, step)
	if err != nil {
		return EpisodeResult{}, apperr.NewProcessingError("acoustic", index, err)
	}

	step(11, "Computing statistics")
	stats := acoustic.ComputeStatistics(frames)

	step(12, "Computing special parameters")
	stats.SpecialParameters = acoustic.ComputeSpecialParameters(frames, o.cfg.Acoustic)

	step(13, "Detecting cry units")
	units := o.segmenter.Segment(episode, samples, src.SampleRate())

	step(14, "Computing cry unit metrics")
	summary := detection.Summarize(units)
	stats.CryCE = summary.CryCE
	stats.UnvoicedCE = summary.UnvoicedCE
	stats.CryUnitCount = summary.UnitCount

	step(15, "Done")

	return EpisodeResult{
		ID:         detection.EpisodeID(index),
		Episode:    episode,
		Frames:     frames,
		Statistics: stats,
		Units:      summary,
	}, nil
}
