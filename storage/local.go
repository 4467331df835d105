// Package storage resolves audio files to readable sources.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RyanBlaney/cry-sonar/analysis"
	"github.com/RyanBlaney/cry-sonar/transcode"
)

// OpenFunc opens a local audio file as a source
type OpenFunc func(ctx context.Context, path string) (transcode.Source, error)

// DecoderOpenFunc adapts an ffmpeg decoder to OpenFunc
func DecoderOpenFunc(decoder *transcode.Decoder) OpenFunc {
	return func(ctx context.Context, path string) (transcode.Source, error) {
		return decoder.Open(ctx, path)
	}
}

// LocalLocator opens files stored on the local filesystem. Relative paths
// are resolved against root.
type LocalLocator struct {
	root string
	open OpenFunc
}

// NewLocalLocator creates a locator
func NewLocalLocator(root string, open OpenFunc) *LocalLocator {
	return &LocalLocator{root: root, open: open}
}

// Resolve returns the filesystem path of an audio file
func (l *LocalLocator) Resolve(file *analysis.AudioFile) string {
	if filepath.IsAbs(file.Path) || l.root == "" {
		return file.Path
	}
	return filepath.Join(l.root, file.Path)
}

func (l *LocalLocator) Open(ctx context.Context, file *analysis.AudioFile) (transcode.Source, func(), error) {
	path := l.Resolve(file)
	if _, err := os.Stat(path); err != nil {
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}

	src, err := l.open(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return src, func() {}, nil
}
