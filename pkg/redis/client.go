package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/utils"
)

// DefaultStreamMaxLen caps each pipeline stream; older entries are trimmed approximately.
const DefaultStreamMaxLen = 10000

// Client publishes indexed-checkpoint events. Every write is best effort: failures are logged and
// never reach the indexing path.
type Client struct {
	rdb          *redis.Client
	logger       *zap.Logger
	streamMaxLen int64
}

// Options reads REDIS_HOST, REDIS_PORT, REDIS_PASSWORD, REDIS_DB and REDIS_STREAM_MAXLEN.
func Options() (*redis.Options, int64) {
	addr := fmt.Sprintf("%s:%s", utils.Env("REDIS_HOST", "localhost"), utils.Env("REDIS_PORT", "6379"))
	return &redis.Options{
		Addr:     addr,
		Password: utils.Env("REDIS_PASSWORD", ""),
		DB:       utils.EnvInt("REDIS_DB", 0),

		// One publish per committed window per pipeline; a small pool is plenty.
		PoolSize:     4,
		MinIdleConns: 1,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	}, int64(utils.EnvInt("REDIS_STREAM_MAXLEN", DefaultStreamMaxLen))
}

// NewClient connects with Options and fails if the server does not answer a PING.
func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	opts, streamMaxLen := Options()
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
		zap.Int64("streamMaxLen", streamMaxLen))
	return NewFromRedis(rdb, logger, streamMaxLen), nil
}

// NewFromRedis wraps an existing go-redis client.
func NewFromRedis(rdb *redis.Client, logger *zap.Logger, streamMaxLen int64) *Client {
	return &Client{rdb: rdb, logger: logger, streamMaxLen: streamMaxLen}
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) publish(ctx context.Context, channel string, payload []byte) {
	if err := c.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		c.logger.Warn("Failed to publish Redis message", zap.String("channel", channel), zap.Error(err))
	}
}

// xadd appends to stream and returns the entry ID, or "" when the write failed.
func (c *Client) xadd(ctx context.Context, stream string, values map[string]interface{}) string {
	args := &redis.XAddArgs{Stream: stream, Values: values}
	if c.streamMaxLen > 0 {
		args.MaxLen = c.streamMaxLen
		args.Approx = true
	}
	id, err := c.rdb.XAdd(ctx, args).Result()
	if err != nil {
		c.logger.Warn("Failed to add to Redis stream", zap.String("stream", stream), zap.Error(err))
		return ""
	}
	return id
}
