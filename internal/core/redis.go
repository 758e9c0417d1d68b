// AngelaMos | 2026
// redis.go

package core

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iamisam/codeplay-backend/internal/config"
)

const redisPingTimeout = 5 * time.Second

// Redis carries judging tickets and rate-limit counters under one key
// namespace.
type Redis struct {
	Client    *redis.Client
	namespace string
}

func NewRedis(
	ctx context.Context,
	cfg config.RedisConfig,
	logger *slog.Logger,
) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.PoolTimeout = 30 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opts)
	if cfg.SlowThreshold > 0 && logger != nil {
		client.AddHook(slowCommandHook{threshold: cfg.SlowThreshold, logger: logger})
	}

	r := &Redis{
		Client:    client,
		namespace: strings.TrimSuffix(cfg.KeyPrefix, ":"),
	}
	if err := r.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	return r, nil
}

// Namespace returns a key prefix ending in ":" for the given segments,
// e.g. "codeplay:judging:".
func (r *Redis) Namespace(parts ...string) string {
	segments := make([]string, 0, len(parts)+1)
	if r.namespace != "" {
		segments = append(segments, r.namespace)
	}
	segments = append(segments, parts...)
	return strings.Join(segments, ":") + ":"
}

func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := r.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (r *Redis) PoolStats() *redis.PoolStats {
	return r.Client.PoolStats()
}

func (r *Redis) Close() error {
	if r.Client == nil {
		return nil
	}
	return r.Client.Close()
}

type slowCommandHook struct {
	threshold time.Duration
	logger    *slog.Logger
}

func (h slowCommandHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h slowCommandHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		if elapsed := time.Since(start); elapsed > h.threshold {
			h.logger.Warn("slow redis command",
				"command", cmd.Name(),
				"duration", elapsed,
			)
		}
		return err
	}
}

func (h slowCommandHook) ProcessPipelineHook(
	next redis.ProcessPipelineHook,
) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		if elapsed := time.Since(start); elapsed > h.threshold {
			h.logger.Warn("slow redis pipeline",
				"commands", len(cmds),
				"duration", elapsed,
			)
		}
		return err
	}
}
