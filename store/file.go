package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/RyanBlaney/cry-sonar/analysis"
	"github.com/RyanBlaney/cry-sonar/apperr"
)

// FileStore keeps sources and results as JSON files under a root directory:
// files/<id>.json and results/<id>.json. Writes go through a temp file and
// rename. A result file is always written before its completed status.
type FileStore struct {
	mu   sync.Mutex
	root string
}

// NewFileStore creates the directory layout under root
func NewFileStore(root string) (*FileStore, error) {
	for _, dir := range []string{"files", "results"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("make store dir: %w", err)
		}
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) filePath(id string) string {
	return filepath.Join(s.root, "files", id+".json")
}

// ResultPath returns where the result of a source is stored
func (s *FileStore) ResultPath(id string) string {
	return filepath.Join(s.root, "results", id+".json")
}

// Register adds a source in the uploaded state, replacing any previous entry
func (s *FileStore) Register(ctx context.Context, file *analysis.AudioFile) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	registered := *file
	registered.Status = analysis.StatusUploaded
	registered.CreatedAt = now
	registered.UpdatedAt = now
	return writeJSON(s.filePath(file.ID), &registered)
}

func (s *FileStore) Get(ctx context.Context, sourceID string) (*analysis.AudioFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(sourceID)
}

func (s *FileStore) Claim(ctx context.Context, sourceID, jobID string) (*analysis.AudioFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.read(sourceID)
	if err != nil {
		return nil, err
	}
	if err := claimable(file.Status); err != nil {
		return nil, err
	}

	file.Status = analysis.StatusProcessing
	file.JobID = jobID
	file.UpdatedAt = time.Now().UTC()
	if err := writeJSON(s.filePath(sourceID), file); err != nil {
		return nil, err
	}
	return file, nil
}

func (s *FileStore) SetStatus(ctx context.Context, sourceID string, status analysis.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setStatus(sourceID, status)
}

func (s *FileStore) SaveResult(ctx context.Context, sourceID string, result *analysis.AnalysisResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.read(sourceID); err != nil {
		return err
	}
	if err := writeJSON(s.ResultPath(sourceID), result); err != nil {
		return err
	}
	return s.setStatus(sourceID, analysis.StatusCompleted)
}

func (s *FileStore) LoadResult(ctx context.Context, sourceID string) (*analysis.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.ResultPath(sourceID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("read result of %s: %w", sourceID, err)
	}

	var result analysis.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode result of %s: %w", sourceID, err)
	}
	return &result, nil
}

func (s *FileStore) setStatus(sourceID string, status analysis.Status) error {
	file, err := s.read(sourceID)
	if err != nil {
		return err
	}
	file.Status = status
	file.UpdatedAt = time.Now().UTC()
	return writeJSON(s.filePath(sourceID), file)
}

func (s *FileStore) read(sourceID string) (*analysis.AudioFile, error) {
	data, err := os.ReadFile(s.filePath(sourceID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("read audio file %s: %w", sourceID, err)
	}

	var file analysis.AudioFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode audio file %s: %w", sourceID, err)
	}
	return &file, nil
}

func writeJSON(path string, v any) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", filepath.Base(path), err)
	}
	tmpName := tmp.Name()
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
