package analysis

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/RyanBlaney/cry-sonar/acoustic"
	"github.com/RyanBlaney/cry-sonar/detection"
)

// EpisodeResult holds everything computed for one detected episode
type EpisodeResult struct {
	ID         string
	Episode    detection.CryEpisode
	Frames     []acoustic.AcousticFrame
	Statistics acoustic.EpisodeStatistics
	Units      detection.UnitSummary
}

// AnalysisResult is the complete output of one job, episodes in detection
// order
type AnalysisResult struct {
	SourceID   string
	AnalyzedAt time.Time
	Episodes   []EpisodeResult
}

// resultDocument is the stored wire layout, keyed by episode id
type resultDocument struct {
	SourceID         string                                `json:"source_id"`
	AnalyzedAt       time.Time                             `json:"analyzed_at"`
	CryEpisodes      []detection.CryEpisode                `json:"cry_episodes"`
	AcousticFeatures map[string][]acoustic.AcousticFrame   `json:"acoustic_features"`
	Statistics       map[string]acoustic.EpisodeStatistics `json:"statistics"`
	CryUnits         map[string]detection.UnitSummary      `json:"cry_units"`
}

// MarshalJSON encodes the result as the nested result document
func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	doc := resultDocument{
		SourceID:         r.SourceID,
		AnalyzedAt:       r.AnalyzedAt,
		CryEpisodes:      make([]detection.CryEpisode, 0, len(r.Episodes)),
		AcousticFeatures: make(map[string][]acoustic.AcousticFrame, len(r.Episodes)),
		Statistics:       make(map[string]acoustic.EpisodeStatistics, len(r.Episodes)),
		CryUnits:         make(map[string]detection.UnitSummary, len(r.Episodes)),
	}

	for _, ep := range r.Episodes {
		frames := ep.Frames
		if frames == nil {
			frames = []acoustic.AcousticFrame{}
		}
		units := ep.Units
		if units.Units == nil {
			units.Units = []detection.CryUnit{}
		}

		doc.CryEpisodes = append(doc.CryEpisodes, ep.Episode)
		doc.AcousticFeatures[ep.ID] = frames
		doc.Statistics[ep.ID] = ep.Statistics
		doc.CryUnits[ep.ID] = units
	}

	return json.Marshal(doc)
}

// UnmarshalJSON decodes a result document, rebuilding episode order from
// cry_episodes
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	var doc resultDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	episodes := make([]EpisodeResult, 0, len(doc.CryEpisodes))
	for i, ep := range doc.CryEpisodes {
		id := detection.EpisodeID(i)

		frames, ok := doc.AcousticFeatures[id]
		if !ok {
			return fmt.Errorf("result document: missing acoustic features for %s", id)
		}
		stats, ok := doc.Statistics[id]
		if !ok {
			return fmt.Errorf("result document: missing statistics for %s", id)
		}
		units, ok := doc.CryUnits[id]
		if !ok {
			return fmt.Errorf("result document: missing cry units for %s", id)
		}

		episodes = append(episodes, EpisodeResult{
			ID:         id,
			Episode:    ep,
			Frames:     frames,
			Statistics: stats,
			Units:      units,
		})
	}

	*r = AnalysisResult{
		SourceID:   doc.SourceID,
		AnalyzedAt: doc.AnalyzedAt,
		Episodes:   episodes,
	}
	return nil
}
