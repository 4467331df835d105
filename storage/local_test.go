package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/RyanBlaney/cry-sonar/analysis"
	"github.com/RyanBlaney/cry-sonar/transcode"
)

func TestLocalLocatorResolve(t *testing.T) {
	tests := []struct {
		name string
		root string
		path string
		want string
	}{
		{"relative joined to root", "/data/audio", "night/rec-1.wav", "/data/audio/night/rec-1.wav"},
		{"absolute kept", "/data/audio", "/mnt/rec-2.wav", "/mnt/rec-2.wav"},
		{"no root", "", "rec-3.wav", "rec-3.wav"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLocalLocator(tt.root, nil)
			if got := l.Resolve(&analysis.AudioFile{Path: tt.path}); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocalLocatorOpen(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "rec.wav"), []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	var opened string
	open := func(_ context.Context, path string) (transcode.Source, error) {
		opened = path
		return transcode.NewPCMSource(make([]float64, 22050), 22050), nil
	}

	l := NewLocalLocator(root, open)
	src, release, err := l.Open(context.Background(), &analysis.AudioFile{Path: "rec.wav"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer release()

	if opened != filepath.Join(root, "rec.wav") {
		t.Errorf("opened %q", opened)
	}
	if src.Duration() != 1 {
		t.Errorf("duration = %f", src.Duration())
	}
}

func TestLocalLocatorOpenErrors(t *testing.T) {
	root := t.TempDir()
	failing := func(context.Context, string) (transcode.Source, error) {
		return nil, errors.New("unsupported codec")
	}

	l := NewLocalLocator(root, failing)
	if _, _, err := l.Open(context.Background(), &analysis.AudioFile{Path: "missing.wav"}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: got %v", err)
	}

	if err := os.WriteFile(filepath.Join(root, "bad.wav"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := l.Open(context.Background(), &analysis.AudioFile{Path: "bad.wav"}); err == nil {
		t.Error("decoder failure not returned")
	}
}
