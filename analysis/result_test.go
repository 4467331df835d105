package analysis

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/RyanBlaney/cry-sonar/acoustic"
	"github.com/RyanBlaney/cry-sonar/detection"
)

func sampleResult() *AnalysisResult {
	f0 := 420.5
	mean := 420.5
	return &AnalysisResult{
		SourceID:   "rec-1",
		AnalyzedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Episodes: []EpisodeResult{
			{
				ID:      "episode_0",
				Episode: detection.NewCryEpisode(1, 3, 0.9),
				Frames:  []acoustic.AcousticFrame{{Time: 1.02, F0: &f0}},
				Statistics: acoustic.EpisodeStatistics{
					F0:           acoustic.ParameterStats{Mean: &mean},
					CryUnitCount: 1,
				},
				Units: detection.Summarize([]detection.CryUnit{{StartTime: 1, EndTime: 3, Duration: 2, IsVoiced: true}}),
			},
			{
				ID:      "episode_1",
				Episode: detection.NewCryEpisode(5, 5.6, 0.5),
			},
		},
	}
}

func TestResultDocumentLayout(t *testing.T) {
	data, err := json.Marshal(sampleResult())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"source_id", "analyzed_at", "cry_episodes", "acoustic_features", "statistics", "cry_units"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}

	text := string(data)
	for _, want := range []string{
		`"episode_1":[]`,
		`"f1":null`,
		`"cryCE":2`,
		`"cry_unit_count":1`,
		`"high_pitch_pct":0`,
		`"is_voiced":true`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("document lacks %s", want)
		}
	}
}

func TestResultRoundTrip(t *testing.T) {
	original := sampleResult()
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatal(err)
	}

	var decoded AnalysisResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.SourceID != original.SourceID || !decoded.AnalyzedAt.Equal(original.AnalyzedAt) {
		t.Errorf("header mismatch: %+v", decoded)
	}
	if len(decoded.Episodes) != 2 {
		t.Fatalf("got %d episodes, want 2", len(decoded.Episodes))
	}
	first := decoded.Episodes[0]
	if first.ID != "episode_0" || first.Episode != original.Episodes[0].Episode {
		t.Errorf("episode 0 mismatch: %+v", first.Episode)
	}
	if len(first.Frames) != 1 || *first.Frames[0].F0 != 420.5 || first.Frames[0].F1 != nil {
		t.Errorf("frames mismatch: %+v", first.Frames)
	}
	if first.Units.UnitCount != 1 || !first.Units.Units[0].IsVoiced {
		t.Errorf("units mismatch: %+v", first.Units)
	}
}

func TestResultMissingEpisodeData(t *testing.T) {
	data := []byte(`{
		"source_id": "rec-1",
		"cry_episodes": [{"start_time": 0, "end_time": 1, "duration": 1, "confidence": 1}],
		"acoustic_features": {"episode_0": []},
		"statistics": {},
		"cry_units": {"episode_0": {"units": [], "unit_count": 0}}
	}`)

	var decoded AnalysisResult
	err := json.Unmarshal(data, &decoded)
	if err == nil || !strings.Contains(err.Error(), "missing statistics for episode_0") {
		t.Errorf("got %v, want a missing statistics error", err)
	}
}
