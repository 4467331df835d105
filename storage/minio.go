package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RyanBlaney/cry-sonar/analysis"
	"github.com/RyanBlaney/cry-sonar/logging"
	"github.com/RyanBlaney/cry-sonar/transcode"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig holds the object storage parameters
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
	Bucket    string
	TempDir   string // where objects are downloaded for analysis
}

// MinioLocator downloads the recording named by AudioFile.Path (the object
// key) to a private temp file that lives as long as the job
type MinioLocator struct {
	client *minio.Client
	cfg    MinioConfig
	open   OpenFunc
}

// NewMinioClient creates a client and checks that the bucket exists
func NewMinioClient(ctx context.Context, cfg MinioConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
	}

	return client, nil
}

// NewMinioLocator creates a locator
func NewMinioLocator(client *minio.Client, cfg MinioConfig, open OpenFunc) *MinioLocator {
	return &MinioLocator{client: client, cfg: cfg, open: open}
}

func (m *MinioLocator) Open(ctx context.Context, file *analysis.AudioFile) (transcode.Source, func(), error) {
	logger := logging.WithFields(logging.Fields{
		"component": "minio_locator",
		"function":  "Open",
		"source_id": file.ID,
		"object":    file.Path,
	})

	dir, err := os.MkdirTemp(m.cfg.TempDir, "cry-sonar-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create temp dir: %w", err)
	}
	release := func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("Failed to remove downloaded copy", logging.Fields{"dir": dir, "error": err.Error()})
		}
	}

	local := filepath.Join(dir, filepath.Base(file.Path))
	if err := m.client.FGetObject(ctx, m.cfg.Bucket, file.Path, local, minio.GetObjectOptions{}); err != nil {
		release()
		return nil, nil, fmt.Errorf("download %s/%s: %w", m.cfg.Bucket, file.Path, err)
	}

	src, err := m.open(ctx, local)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("open %s: %w", local, err)
	}

	logger.Debug("Object downloaded", logging.Fields{"local_path": local})
	return src, release, nil
}
