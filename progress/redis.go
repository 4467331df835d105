package progress

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/RyanBlaney/cry-sonar/analysis"
	"github.com/RyanBlaney/cry-sonar/apperr"
	"github.com/RyanBlaney/cry-sonar/logging"
	"github.com/go-redis/redis/v8"
)

// RedisConfig holds the Redis connection and retention parameters
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	TTL        time.Duration // how long a job's progress stays readable
	BufferSize int           // pending updates before new ones are dropped
}

// RedisStore keeps the latest update per job in a Redis hash. Publish hands
// the update to a single writer goroutine and never waits on the network.
type RedisStore struct {
	client  *redis.Client
	ttl     time.Duration
	updates chan analysis.ProgressUpdate
	logger  logging.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// ConnectRedis creates the client and checks the connection
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisStore starts the background writer
func NewRedisStore(client *redis.Client, cfg RedisConfig) *RedisStore {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}

	s := &RedisStore{
		client:  client,
		ttl:     cfg.TTL,
		updates: make(chan analysis.ProgressUpdate, cfg.BufferSize),
		logger: logging.WithFields(logging.Fields{
			"component": "redis_progress",
		}),
	}

	s.wg.Add(1)
	go s.writeLoop()
	return s
}

// Key returns the Redis key of a job's progress hash
func Key(jobID string) string {
	return fmt.Sprintf("analysis:progress:%s", jobID)
}

func (s *RedisStore) Publish(update analysis.ProgressUpdate) {
	if update.UpdatedAt.IsZero() {
		update.UpdatedAt = time.Now().UTC()
	}

	select {
	case s.updates <- update:
	default:
		s.logger.Warn("Progress buffer full, dropping update", logging.Fields{
			"task_id":  update.JobID,
			"progress": update.Percent,
		})
	}
}

func (s *RedisStore) writeLoop() {
	defer s.wg.Done()

	for update := range s.updates {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		key := Key(update.JobID)

		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, map[string]any{
				"percent":    update.Percent,
				"message":    update.Message,
				"updated_at": update.UpdatedAt.Format(time.RFC3339Nano),
			})
			pipe.Expire(ctx, key, s.ttl)
			return nil
		})
		cancel()

		if err != nil {
			s.logger.Error(err, "Failed to write progress", logging.Fields{
				"task_id": update.JobID,
			})
		}
	}
}

func (s *RedisStore) Latest(ctx context.Context, jobID string) (analysis.ProgressUpdate, error) {
	values, err := s.client.HGetAll(ctx, Key(jobID)).Result()
	if err != nil {
		return analysis.ProgressUpdate{}, fmt.Errorf("read progress of %s: %w", jobID, err)
	}
	if len(values) == 0 {
		return analysis.ProgressUpdate{}, apperr.ErrNotFound
	}

	percent, err := strconv.Atoi(values["percent"])
	if err != nil {
		return analysis.ProgressUpdate{}, fmt.Errorf("parse progress of %s: %w", jobID, err)
	}
	updatedAt, _ := time.Parse(time.RFC3339Nano, values["updated_at"])

	return analysis.ProgressUpdate{
		JobID:     jobID,
		Percent:   percent,
		Message:   values["message"],
		UpdatedAt: updatedAt,
	}, nil
}

// Close flushes pending updates and stops the writer. Publish must not be
// called afterwards.
func (s *RedisStore) Close() {
	s.closeOnce.Do(func() {
		close(s.updates)
		s.wg.Wait()
	})
}
