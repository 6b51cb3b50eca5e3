package senders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"rtcscope/internal/core/domain"
	"rtcscope/pkg/tracing"
)

// RedisQueueConfig configures the redis sample sink.
type RedisQueueConfig struct {
	Address     string
	Password    string
	DB          int
	PoolSize    int
	Queue       string
	MaxQueueLen int64
}

// RedisQueueSink pushes sample batches onto a capped redis list so an
// offline consumer can drain them later.
type RedisQueueSink struct {
	client *redis.Client
	queue  string
	maxLen int64
	logger *zap.SugaredLogger
}

// NewRedisQueueSink connects to redis and verifies the connection with a
// ping before returning.
func NewRedisQueueSink(cfg RedisQueueConfig, logger *zap.SugaredLogger) (*RedisQueueSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	logger.Infow("sample queue connected",
		"address", cfg.Address,
		"queue", cfg.Queue,
		"max_queue_len", cfg.MaxQueueLen,
	)

	return &RedisQueueSink{
		client: client,
		queue:  cfg.Queue,
		maxLen: cfg.MaxQueueLen,
		logger: logger,
	}, nil
}

// Send pushes every sample in the batch as its own list entry, then trims
// the list to the configured cap so a dead consumer cannot grow it forever.
func (s *RedisQueueSink) Send(ctx context.Context, batch []*domain.ClientSample) error {
	if len(batch) == 0 {
		return nil
	}

	ctx, span := tracing.TraceSenderFlush(ctx, "redis", len(batch))
	defer span.End()

	pipe := s.client.Pipeline()
	for _, sample := range batch {
		data, err := json.Marshal(sample)
		if err != nil {
			tracing.RecordError(ctx, err)
			return fmt.Errorf("marshal sample %d: %w", sample.SeqNo, err)
		}
		pipe.LPush(ctx, s.queue, data)
	}
	if s.maxLen > 0 {
		pipe.LTrim(ctx, s.queue, 0, s.maxLen-1)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		tracing.RecordError(ctx, err)
		return fmt.Errorf("push samples: %w", err)
	}

	return nil
}

// Close releases the redis client.
func (s *RedisQueueSink) Close() error {
	return s.client.Close()
}
