package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/RyanBlaney/cry-sonar/acoustic"
	"github.com/RyanBlaney/cry-sonar/analysis/config"
	"github.com/RyanBlaney/cry-sonar/apperr"
	"github.com/RyanBlaney/cry-sonar/transcode"
)

// failingAnalyzer delegates to a real analyzer but fails on one call
type failingAnalyzer struct {
	mu     sync.Mutex
	inner  FrameAnalyzer
	failOn int
	calls  int
}

func (f *failingAnalyzer) Analyze(ctx context.Context, samples []float64, sampleRate int, startTime float64, progress acoustic.ProgressFunc) ([]acoustic.AcousticFrame, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	if call == f.failOn {
		return nil, errors.New("numeric failure")
	}
	return f.inner.Analyze(ctx, samples, sampleRate, startTime, progress)
}

func newJob(store *memStore, sink *recordingSink, samples []float64) Job {
	return Job{
		ID:       "job-1",
		SourceID: "rec-1",
		Source:   transcode.NewPCMSource(samples, testSampleRate),
		Store:    store,
		Progress: sink,
	}
}

func assertMonotonic(t *testing.T, updates []ProgressUpdate) {
	t.Helper()
	for i := 1; i < len(updates); i++ {
		if updates[i].Percent < updates[i-1].Percent {
			t.Fatalf("progress decreased from %d to %d at %q", updates[i-1].Percent, updates[i].Percent, updates[i].Message)
		}
	}
}

func TestOrchestratorRun(t *testing.T) {
	orch, err := NewOrchestrator(nil)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}

	store := newMemStore(AudioFile{ID: "rec-1", Status: StatusProcessing})
	sink := &recordingSink{}

	result, err := orch.Run(context.Background(), newJob(store, sink, threeCries()))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Episodes) != 3 {
		t.Fatalf("got %d episodes, want 3", len(result.Episodes))
	}
	for i, ep := range result.Episodes {
		if ep.ID != fmt.Sprintf("episode_%d", i) {
			t.Errorf("episode %d has id %q", i, ep.ID)
		}
		if len(ep.Frames) == 0 {
			t.Errorf("episode %d has no frames", i)
		}
		if ep.Statistics.CryUnitCount != ep.Units.UnitCount || ep.Units.UnitCount == 0 {
			t.Errorf("episode %d unit count %d / %d", i, ep.Statistics.CryUnitCount, ep.Units.UnitCount)
		}
		if math.Abs(ep.Statistics.VoicedPct+ep.Statistics.UnvoicedPct-100) > 1e-9 {
			t.Errorf("episode %d voiced + unvoiced != 100", i)
		}
		if i > 0 && ep.Episode.StartTime <= result.Episodes[i-1].Episode.EndTime {
			t.Errorf("episodes %d and %d overlap", i-1, i)
		}
	}

	if store.status("rec-1") != StatusCompleted {
		t.Errorf("status = %s, want completed", store.status("rec-1"))
	}
	if store.resultCount() != 1 {
		t.Errorf("saved %d results, want 1", store.resultCount())
	}

	updates := sink.all()
	assertMonotonic(t, updates)

	first, last := updates[0], updates[len(updates)-1]
	if first.Percent != 5 {
		t.Errorf("first progress = %d, want 5", first.Percent)
	}
	if last.Percent != 100 || last.Message != "Analysis completed" {
		t.Errorf("last update = %+v, want 100 Analysis completed", last)
	}

	var found, saving bool
	for _, u := range updates {
		if u.Message == "Found 3 cry episodes" && u.Percent == 40 {
			found = true
		}
		if u.Message == "Saving results" && u.Percent == 95 {
			saving = true
		}
		if u.JobID != "job-1" {
			t.Fatalf("update for job %q", u.JobID)
		}
	}
	if !found || !saving {
		t.Errorf("missing milestone updates (found=%v saving=%v)", found, saving)
	}
}

func TestOrchestratorFailsMidway(t *testing.T) {
	cfg := config.Default()
	failing := &failingAnalyzer{inner: acoustic.NewAnalyzer(cfg.Acoustic), failOn: 2}
	orch, err := NewOrchestrator(cfg, WithFrameAnalyzer(failing))
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}

	store := newMemStore(AudioFile{ID: "rec-1", Status: StatusProcessing})
	sink := &recordingSink{}

	result, err := orch.Run(context.Background(), newJob(store, sink, threeCries()))
	if err == nil {
		t.Fatal("expected an error")
	}
	if result != nil {
		t.Error("failed run returned a result")
	}

	pe, ok := apperr.As[*apperr.ProcessingError](err)
	if !ok {
		t.Fatalf("error %v is not a processing error", err)
	}
	if pe.Stage != "acoustic" || pe.Episode != 1 {
		t.Errorf("stage %q episode %d, want acoustic 1", pe.Stage, pe.Episode)
	}
	if apperr.CodeOf(err) != apperr.ErrCodeProcessing {
		t.Errorf("code = %s", apperr.CodeOf(err))
	}

	if store.status("rec-1") != StatusFailed {
		t.Errorf("status = %s, want failed", store.status("rec-1"))
	}
	if store.resultCount() != 0 {
		t.Error("a failed run persisted a result")
	}
	if failing.calls != 2 {
		t.Errorf("analyzer called %d times, want 2", failing.calls)
	}

	updates := sink.all()
	assertMonotonic(t, updates)
	last := updates[len(updates)-1]
	if !strings.HasPrefix(last.Message, "Episode 2/3") {
		t.Errorf("last message %q, want an episode 2 step", last.Message)
	}
	if last.Percent >= 95 {
		t.Errorf("last progress %d reached the saving stage", last.Percent)
	}
}

func TestOrchestratorNoEpisodes(t *testing.T) {
	orch, err := NewOrchestrator(nil)
	if err != nil {
		t.Fatal(err)
	}
	store := newMemStore(AudioFile{ID: "rec-1", Status: StatusProcessing})
	sink := &recordingSink{}

	result, err := orch.Run(context.Background(), newJob(store, sink, silence(3)))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Episodes) != 0 {
		t.Errorf("got %d episodes, want 0", len(result.Episodes))
	}
	if store.status("rec-1") != StatusCompleted {
		t.Errorf("status = %s, want completed", store.status("rec-1"))
	}
	if last := sink.all()[len(sink.all())-1]; last.Percent != 100 {
		t.Errorf("last progress = %d, want 100", last.Percent)
	}
}

func TestOrchestratorEmptySource(t *testing.T) {
	orch, err := NewOrchestrator(nil)
	if err != nil {
		t.Fatal(err)
	}
	store := newMemStore(AudioFile{ID: "rec-1", Status: StatusProcessing})

	_, err = orch.Run(context.Background(), newJob(store, &recordingSink{}, nil))
	if !errors.Is(err, apperr.ErrEmptyAudio) {
		t.Errorf("got %v, want ErrEmptyAudio", err)
	}
	if store.status("rec-1") != StatusFailed {
		t.Errorf("status = %s, want failed", store.status("rec-1"))
	}
}

func TestOrchestratorCancelled(t *testing.T) {
	orch, err := NewOrchestrator(nil)
	if err != nil {
		t.Fatal(err)
	}
	store := newMemStore(AudioFile{ID: "rec-1", Status: StatusProcessing})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = orch.Run(ctx, newJob(store, &recordingSink{}, threeCries()))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if store.status("rec-1") != StatusFailed {
		t.Errorf("status = %s, want failed even after cancellation", store.status("rec-1"))
	}
}

func TestNewOrchestratorRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Detector.EnergyThreshold = 0.5

	_, err := NewOrchestrator(cfg)
	if _, ok := apperr.As[*apperr.ValidationError](err); !ok {
		t.Errorf("got %v, want a validation error", err)
	}
}

func TestOrchestratorRecoversPanic(t *testing.T) {
	orch, err := NewOrchestrator(nil, WithFrameAnalyzer(panickingAnalyzer{}))
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}

	store := newMemStore(AudioFile{ID: "rec-1", Status: StatusProcessing})
	sink := &recordingSink{}

	result, err := orch.Run(context.Background(), newJob(store, sink, threeCries()))
	if result != nil {
		t.Error("no result expected after a panic")
	}

	perr, ok := apperr.As[*apperr.ProcessingError](err)
	if !ok {
		t.Fatalf("got %v, want a processing error", err)
	}
	if perr.Stage != "panic" || perr.Episode != 0 {
		t.Errorf("stage %q episode %d, want panic in episode 0", perr.Stage, perr.Episode)
	}
	if store.status("rec-1") != StatusFailed {
		t.Errorf("status = %s, want failed", store.status("rec-1"))
	}
	if store.resultCount() != 0 {
		t.Error("result persisted after a panic")
	}
}
