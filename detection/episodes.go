package detection

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/RyanBlaney/cry-sonar/algorithms/temporal"
	"github.com/RyanBlaney/cry-sonar/analysis/config"
	"github.com/RyanBlaney/cry-sonar/apperr"
	"github.com/RyanBlaney/cry-sonar/features"
	"github.com/RyanBlaney/cry-sonar/logging"
	"github.com/RyanBlaney/cry-sonar/transcode"
	"gonum.org/v1/gonum/stat"
)

// CryEpisode is a contiguous detected cry event. Duration is always
// EndTime - StartTime.
type CryEpisode struct {
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Duration   float64 `json:"duration"`
	Confidence float64 `json:"confidence"`
}

// NewCryEpisode creates an episode, deriving its duration from the bounds
func NewCryEpisode(start, end, confidence float64) CryEpisode {
	return CryEpisode{
		StartTime:  start,
		EndTime:    end,
		Duration:   end - start,
		Confidence: confidence,
	}
}

// EpisodeID names the episode at the given detection index
func EpisodeID(index int) string {
	return fmt.Sprintf("episode_%d", index)
}

// Segment is a run of cry frames found inside one chunk, in absolute seconds
type Segment struct {
	Start      float64
	End        float64
	Confidence float64
}

// ChunkProgressFunc is called after each chunk with the number of chunks
// processed so far and the total
type ChunkProgressFunc func(done, total int)

// EpisodeDetector finds cry episodes in arbitrarily long recordings by
// reading fixed-length chunks, so memory stays bounded by the chunk size
type EpisodeDetector struct {
	cfg       config.DetectorConfig
	extractor *features.Extractor
}

// NewEpisodeDetector creates a detector
func NewEpisodeDetector(cfg config.DetectorConfig) *EpisodeDetector {
	return &EpisodeDetector{
		cfg:       cfg,
		extractor: features.NewExtractor(cfg.FrameSize, cfg.HopSize),
	}
}

// Detect scans the whole source and returns time-ordered, non-overlapping
// episodes. Only read errors are returned; a recording without cries yields
// an empty list.
func (d *EpisodeDetector) Detect(ctx context.Context, src transcode.Source, onChunk ChunkProgressFunc) ([]CryEpisode, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "episode_detector",
		"function":  "Detect",
	})

	duration := src.Duration()
	if duration <= 0 {
		return nil, apperr.ErrEmptyAudio
	}

	totalChunks := int(math.Ceil(duration / d.cfg.ChunkDuration))
	var segments []Segment

	for i := range totalChunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		offset := float64(i) * d.cfg.ChunkDuration
		end := min(offset+d.cfg.ChunkDuration, duration)

		samples, err := src.ReadRange(ctx, offset, end)
		if err != nil {
			return nil, fmt.Errorf("read chunk at %.1fs: %w", offset, err)
		}

		found := d.detectInChunk(samples, src.SampleRate(), offset, end)
		segments = append(segments, found...)

		logger.Debug("Chunk scanned", logging.Fields{
			"chunk":    i + 1,
			"chunks":   totalChunks,
			"offset":   offset,
			"segments": len(found),
		})

		if onChunk != nil {
			onChunk(i+1, totalChunks)
		}
	}

	episodes := MergeSegments(segments, d.cfg.MaxMergeGap)

	logger.Info("Episode detection completed", logging.Fields{
		"duration": duration,
		"segments": len(segments),
		"episodes": len(episodes),
	})

	return episodes, nil
}

// detectInChunk classifies the frames of one chunk and returns its cry
// segments. A frame is a cry candidate when its energy exceeds the threshold
// and its spectral centroid lies inside the configured band.
func (d *EpisodeDetector) detectInChunk(samples []float64, sampleRate int, offset, chunkEnd float64) []Segment {
	if len(samples) == 0 || sampleRate <= 0 {
		return nil
	}

	energy := d.extractor.Energy(samples)
	centroid := d.extractor.SpectralCentroid(samples, sampleRate)
	numFrames := min(len(energy), len(centroid))
	frameDuration := d.extractor.FrameDuration(sampleRate)

	runs := temporal.FindRuns(numFrames, func(i int) bool {
		return energy[i] > d.cfg.EnergyThreshold &&
			centroid[i] >= d.cfg.CentroidMin &&
			centroid[i] <= d.cfg.CentroidMax
	})

	var segments []Segment
	for _, run := range runs {
		if float64(run.Len())*frameDuration < d.cfg.MinDuration {
			continue
		}

		meanEnergy := stat.Mean(energy[run.Start:run.End], nil)
		segments = append(segments, Segment{
			Start:      offset + float64(run.Start)*frameDuration,
			End:        min(offset+float64(run.End)*frameDuration, chunkEnd),
			Confidence: min(meanEnergy/d.cfg.EnergyThreshold, 1.0),
		})
	}

	return segments
}

// MergeSegments sorts segments by start time and merges neighbours whose gap
// is at most maxGap. A merged episode's confidence is the mean of its
// constituents' confidences.
func MergeSegments(segments []Segment, maxGap float64) []CryEpisode {
	if len(segments) == 0 {
		return []CryEpisode{}
	}

	sorted := make([]Segment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	var episodes []CryEpisode
	currentStart, currentEnd := sorted[0].Start, sorted[0].End
	confidences := []float64{sorted[0].Confidence}

	flush := func() {
		episodes = append(episodes, NewCryEpisode(currentStart, currentEnd, stat.Mean(confidences, nil)))
	}

	for _, seg := range sorted[1:] {
		if seg.Start-currentEnd <= maxGap {
			currentEnd = max(currentEnd, seg.End)
			confidences = append(confidences, seg.Confidence)
			continue
		}

		flush()
		currentStart, currentEnd = seg.Start, seg.End
		confidences = []float64{seg.Confidence}
	}
	flush()

	return episodes
}
