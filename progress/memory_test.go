package progress

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/RyanBlaney/cry-sonar/analysis"
	"github.com/RyanBlaney/cry-sonar/apperr"
	"github.com/RyanBlaney/cry-sonar/logging"
)

func TestMemoryStoreKeepsLatest(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	if _, err := m.Latest(ctx, "job-1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown job: got %v, want ErrNotFound", err)
	}

	m.Publish(analysis.ProgressUpdate{JobID: "job-1", Percent: 10, Message: "Detecting cry episodes"})
	m.Publish(analysis.ProgressUpdate{JobID: "job-2", Percent: 50, Message: "other"})
	m.Publish(analysis.ProgressUpdate{JobID: "job-1", Percent: 40, Message: "Found 2 cry episodes"})

	got, err := m.Latest(ctx, "job-1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got.Percent != 40 || got.Message != "Found 2 cry episodes" {
		t.Errorf("got %+v", got)
	}
}

func TestMemoryStoreConcurrentPublish(t *testing.T) {
	m := NewMemoryStore()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range 100 {
				m.Publish(analysis.ProgressUpdate{JobID: "job", Percent: p, Message: "step"})
				_, _ = m.Latest(context.Background(), "job")
			}
		}()
	}
	wg.Wait()

	if _, err := m.Latest(context.Background(), "job"); err != nil {
		t.Errorf("Latest: %v", err)
	}
}

func TestLogSinkPublishes(t *testing.T) {
	sink := NewLogSink(&logging.NoOpLogger{})
	sink.Publish(analysis.ProgressUpdate{JobID: "job-1", Percent: 5, Message: "Loading audio source"})
}

func TestRedisKey(t *testing.T) {
	if got := Key("abc"); got != "analysis:progress:abc" {
		t.Errorf("Key = %q", got)
	}
}
