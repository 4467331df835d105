package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/RyanBlaney/cry-sonar/analysis"
	"github.com/RyanBlaney/cry-sonar/config"
	"github.com/RyanBlaney/cry-sonar/logging"
	"github.com/RyanBlaney/cry-sonar/progress"
	"github.com/RyanBlaney/cry-sonar/storage"
	"github.com/RyanBlaney/cry-sonar/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var analyzeOutDir string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze one recording and write the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		result, resultPath, err := analyzeFile(ctx, cfg, path, analyzeOutDir)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d cry episodes, result written to %s\n", len(result.Episodes), resultPath)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOutDir, "out", "o", "analysis", "directory for the file store and results")
	rootCmd.AddCommand(analyzeCmd)
}

// sourceID derives a stable id from the file name
func sourceID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func analyzeFile(ctx context.Context, cfg *config.Config, path, outDir string) (*analysis.AnalysisResult, string, error) {
	orchestrator, err := analysis.NewOrchestrator(cfg.Analysis)
	if err != nil {
		return nil, "", fmt.Errorf("analysis configuration: %w", err)
	}

	files, err := store.NewFileStore(outDir)
	if err != nil {
		return nil, "", err
	}

	id := sourceID(path)
	if err := files.Register(ctx, &analysis.AudioFile{ID: id, Filename: filepath.Base(path), Path: path}); err != nil {
		return nil, "", err
	}

	jobID := uuid.NewString()
	file, err := files.Claim(ctx, id, jobID)
	if err != nil {
		return nil, "", err
	}

	locator := storage.NewLocalLocator("", storage.DecoderOpenFunc(newDecoder(cfg)))
	src, release, err := locator.Open(ctx, file)
	if err != nil {
		files.SetStatus(context.WithoutCancel(ctx), id, analysis.StatusFailed)
		return nil, "", err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, cfg.JobTimeout)
	defer cancel()

	sink := progress.NewLogSink(logging.WithFields(logging.Fields{
		"component": "analyze",
		"source_id": id,
	}))

	result, err := orchestrator.Run(ctx, analysis.Job{
		ID:       jobID,
		SourceID: id,
		Source:   src,
		Store:    files,
		Progress: sink,
	})
	if err != nil {
		return nil, "", err
	}

	return result, files.ResultPath(id), nil
}
