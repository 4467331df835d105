package cmd

import (
	"fmt"
	"os"

	"github.com/RyanBlaney/cry-sonar/config"
	"github.com/RyanBlaney/cry-sonar/logging"
	"github.com/RyanBlaney/cry-sonar/transcode"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:          "cry-sonar",
	Short:        "cry-sonar detects and measures infant cry episodes in long recordings",
	SilenceUsage: true,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

// setup loads configuration and installs the zap logger
func setup() (*config.Config, *logging.ZapLogger, error) {
	cfg := config.Load()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger, err := logging.NewZapLogger(cfg.Logging())
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	logging.SetGlobalLogger(logger)

	return cfg, logger, nil
}

func newDecoder(cfg *config.Config) *transcode.Decoder {
	decoderCfg := transcode.DefaultDecoderConfig()
	decoderCfg.TargetSampleRate = cfg.Analysis.Detector.SampleRate
	decoderCfg.FFmpegPath = cfg.FFmpegPath
	decoderCfg.FFprobePath = cfg.FFprobePath
	decoderCfg.NoiseReductionLevel = cfg.Analysis.NoiseReductionLevel
	return transcode.NewDecoder(decoderCfg)
}
