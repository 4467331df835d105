package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/RyanBlaney/cry-sonar/analysis"
	"github.com/RyanBlaney/cry-sonar/config"
	"github.com/RyanBlaney/cry-sonar/logging"
	"github.com/RyanBlaney/cry-sonar/progress"
	"github.com/RyanBlaney/cry-sonar/server"
	"github.com/RyanBlaney/cry-sonar/storage"
	"github.com/RyanBlaney/cry-sonar/store"
	"github.com/RyanBlaney/cry-sonar/worker"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis API and worker pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.WithFields(logging.Fields{
		"component": "serve",
	})

	orchestrator, err := analysis.NewOrchestrator(cfg.Analysis)
	if err != nil {
		return fmt.Errorf("analysis configuration: %w", err)
	}

	var db *gorm.DB
	err = worker.Retry(ctx, worker.DefaultRetryConfig(), func() error {
		db, err = store.OpenMySQL(store.MySQLConfig{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			Name:     cfg.DBName,
		})
		return err
	})
	if err != nil {
		return err
	}
	results := store.NewGormStore(db)
	defer results.Close()
	if err := results.Migrate(); err != nil {
		return err
	}

	var client *redis.Client
	err = worker.Retry(ctx, worker.DefaultRetryConfig(), func() error {
		client, err = progress.ConnectRedis(ctx, progress.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return err
	})
	if err != nil {
		return err
	}
	defer client.Close()
	progressStore := progress.NewRedisStore(client, progress.RedisConfig{TTL: cfg.ProgressTTL})

	locator, err := newLocator(ctx, cfg)
	if err != nil {
		return err
	}

	pool := worker.NewPool(worker.Config{
		Workers:   cfg.Workers,
		QueueSize: cfg.QueueSize,
		Timeout:   cfg.JobTimeout,
	})
	pool.Start(context.WithoutCancel(ctx))

	service := analysis.NewService(orchestrator, results, progressStore, locator, pool)
	srv := server.New(cfg.HTTPAddr, service)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error(shutdownErr, "HTTP shutdown failed")
	}

	// running jobs finish or hit their timeout
	pool.Stop()
	progressStore.Close()

	return err
}

func newLocator(ctx context.Context, cfg *config.Config) (analysis.SourceOpener, error) {
	open := storage.DecoderOpenFunc(newDecoder(cfg))

	switch cfg.StorageBackend {
	case "local":
		return storage.NewLocalLocator(cfg.AudioDir, open), nil
	case "minio":
		minioCfg := storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
			Region:    cfg.MinioRegion,
			Bucket:    cfg.MinioBucket,
			TempDir:   cfg.TempDir,
		}
		client, err := storage.NewMinioClient(ctx, minioCfg)
		if err != nil {
			return nil, err
		}
		return storage.NewMinioLocator(client, minioCfg, open), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
