// Package progress implements the job progress side channel polled by the
// status API.
package progress

import (
	"context"
	"sync"

	"github.com/RyanBlaney/cry-sonar/analysis"
	"github.com/RyanBlaney/cry-sonar/apperr"
	"github.com/RyanBlaney/cry-sonar/logging"
)

// MemoryStore keeps the latest update per job in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	updates map[string]analysis.ProgressUpdate
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{updates: make(map[string]analysis.ProgressUpdate)}
}

func (m *MemoryStore) Publish(update analysis.ProgressUpdate) {
	m.mu.Lock()
	m.updates[update.JobID] = update
	m.mu.Unlock()
}

func (m *MemoryStore) Latest(ctx context.Context, jobID string) (analysis.ProgressUpdate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	update, ok := m.updates[jobID]
	if !ok {
		return analysis.ProgressUpdate{}, apperr.ErrNotFound
	}
	return update, nil
}

// LogSink logs each update; the analyze command uses it to print progress
type LogSink struct {
	logger logging.Logger
}

// NewLogSink creates a sink writing through logger
func NewLogSink(logger logging.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (l *LogSink) Publish(update analysis.ProgressUpdate) {
	l.logger.Info(update.Message, logging.Fields{
		"task_id":  update.JobID,
		"progress": update.Percent,
	})
}
