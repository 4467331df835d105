package analysis

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/RyanBlaney/cry-sonar/acoustic"
	"github.com/RyanBlaney/cry-sonar/apperr"
	"github.com/RyanBlaney/cry-sonar/transcode"
)

const testSampleRate = 22050

func tone(freq, amplitude, duration float64) []float64 {
	n := int(duration * testSampleRate)
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate)
	}
	return out
}

func silence(duration float64) []float64 {
	return make([]float64, int(duration*testSampleRate))
}

func concat(parts ...[]float64) []float64 {
	var out []float64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// threeCries holds three 2 s tones separated by 2 s of silence
func threeCries() []float64 {
	return concat(
		silence(1), tone(440, 0.3, 2),
		silence(2), tone(440, 0.3, 2),
		silence(2), tone(440, 0.3, 2),
		silence(1),
	)
}

type memStore struct {
	mu       sync.Mutex
	files    map[string]*AudioFile
	results  map[string]*AnalysisResult
	statuses []Status
}

func newMemStore(files ...AudioFile) *memStore {
	s := &memStore{
		files:   make(map[string]*AudioFile),
		results: make(map[string]*AnalysisResult),
	}
	for _, f := range files {
		f := f
		s.files[f.ID] = &f
	}
	return s
}

func (s *memStore) Get(_ context.Context, id string) (*AudioFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	copied := *f
	return &copied, nil
}

func (s *memStore) Claim(_ context.Context, id, jobID string) (*AudioFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	switch f.Status {
	case StatusProcessing:
		return nil, apperr.ErrJobActive
	case StatusCompleted:
		return nil, apperr.ErrAlreadyCompleted
	}
	f.Status = StatusProcessing
	f.JobID = jobID
	s.statuses = append(s.statuses, StatusProcessing)
	copied := *f
	return &copied, nil
}

func (s *memStore) SetStatus(_ context.Context, id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return apperr.ErrNotFound
	}
	f.Status = status
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *memStore) SaveResult(_ context.Context, id string, result *AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return apperr.ErrNotFound
	}
	s.results[id] = result
	f.Status = StatusCompleted
	s.statuses = append(s.statuses, StatusCompleted)
	return nil
}

func (s *memStore) LoadResult(_ context.Context, id string) (*AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return r, nil
}

func (s *memStore) status(id string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[id].Status
}

func (s *memStore) resultCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

type recordingSink struct {
	mu      sync.Mutex
	updates []ProgressUpdate
}

func (r *recordingSink) Publish(u ProgressUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recordingSink) Latest(_ context.Context, jobID string) (ProgressUpdate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.updates) - 1; i >= 0; i-- {
		if r.updates[i].JobID == jobID {
			return r.updates[i], nil
		}
	}
	return ProgressUpdate{}, apperr.ErrNotFound
}

func (r *recordingSink) all() []ProgressUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ProgressUpdate(nil), r.updates...)
}

type pcmOpener struct {
	samples map[string][]float64
}

func (o pcmOpener) Open(_ context.Context, file *AudioFile) (transcode.Source, func(), error) {
	samples, ok := o.samples[file.ID]
	if !ok {
		return nil, nil, errors.New("no such recording")
	}
	return transcode.NewPCMSource(samples, testSampleRate), func() {}, nil
}

// inlinePool runs each task on the caller's goroutine
type inlinePool struct {
	errs []error
}

func (p *inlinePool) Submit(task func(ctx context.Context) error) error {
	p.errs = append(p.errs, task(context.Background()))
	return nil
}

type rejectingPool struct{}

func (rejectingPool) Submit(func(ctx context.Context) error) error {
	return errors.New("queue full")
}

// panickingAnalyzer fails like an out-of-range index inside a numeric routine
type panickingAnalyzer struct{}

func (panickingAnalyzer) Analyze(_ context.Context, samples []float64, _ int, _ float64, _ acoustic.ProgressFunc) ([]acoustic.AcousticFrame, error) {
	_ = samples[len(samples)+1]
	return nil, nil
}
