package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/RyanBlaney/cry-sonar/analysis"
	"github.com/RyanBlaney/cry-sonar/apperr"
	"github.com/RyanBlaney/cry-sonar/config"
	"github.com/RyanBlaney/cry-sonar/logging"
	"github.com/RyanBlaney/cry-sonar/progress"
	"github.com/RyanBlaney/cry-sonar/storage"
	"github.com/RyanBlaney/cry-sonar/store"
	"github.com/RyanBlaney/cry-sonar/worker"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var (
	watchOutDir  string
	watchSettle  time.Duration
	watchWorkers int
)

var audioExtensions = map[string]bool{
	".wav": true, ".mp3": true, ".flac": true, ".m4a": true,
	".aac": true, ".ogg": true, ".opus": true, ".webm": true,
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Analyze recordings as they appear in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return watch(ctx, cfg, args[0])
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutDir, "out", "o", "analysis", "directory for the file store and results")
	watchCmd.Flags().DurationVar(&watchSettle, "settle", 2*time.Second, "quiet period after the last write before a file is analyzed")
	watchCmd.Flags().IntVar(&watchWorkers, "workers", 1, "concurrent analyses")
	rootCmd.AddCommand(watchCmd)
}

func watch(ctx context.Context, cfg *config.Config, dir string) error {
	logger := logging.WithFields(logging.Fields{
		"component": "watch",
		"dir":       dir,
	})

	orchestrator, err := analysis.NewOrchestrator(cfg.Analysis)
	if err != nil {
		return fmt.Errorf("analysis configuration: %w", err)
	}
	files, err := store.NewFileStore(watchOutDir)
	if err != nil {
		return err
	}

	pool := worker.NewPool(worker.Config{
		Workers: watchWorkers,
		Timeout: cfg.JobTimeout,
	})
	pool.Start(context.WithoutCancel(ctx))
	defer pool.Stop()

	progressStore := progress.NewMemoryStore()
	locator := storage.NewLocalLocator("", storage.DecoderOpenFunc(newDecoder(cfg)))
	service := analysis.NewService(orchestrator, files, progressStore, locator, pool)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Info("Watching for recordings")

	// a file is started once no write has been seen for watchSettle
	var mu sync.Mutex
	timers := make(map[string]*time.Timer)

	start := func(path string) {
		mu.Lock()
		delete(timers, path)
		mu.Unlock()

		abs, err := filepath.Abs(path)
		if err != nil {
			logger.Error(err, "Failed to resolve path", logging.Fields{"path": path})
			return
		}

		id := sourceID(abs)
		if _, err := files.Get(ctx, id); err == nil {
			logger.Debug("Recording already registered", logging.Fields{"source_id": id})
			return
		} else if !errors.Is(err, apperr.ErrNotFound) {
			logger.Error(err, "Failed to look up recording", logging.Fields{"source_id": id})
			return
		}

		file := &analysis.AudioFile{ID: id, Filename: filepath.Base(abs), Path: abs}
		if err := files.Register(ctx, file); err != nil {
			logger.Error(err, "Failed to register recording", logging.Fields{"source_id": id})
			return
		}

		handle, err := service.Start(ctx, id)
		if err != nil {
			logger.Error(err, "Failed to start analysis", logging.Fields{"source_id": id})
			return
		}
		logger.Info("Analysis started", logging.Fields{
			"source_id": id,
			"task_id":   handle.JobID,
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !audioExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}

			mu.Lock()
			if t, ok := timers[event.Name]; ok {
				t.Reset(watchSettle)
			} else {
				name := event.Name
				timers[name] = time.AfterFunc(watchSettle, func() { start(name) })
			}
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error(err, "Watcher error")
		}
	}
}
