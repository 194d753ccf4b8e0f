package storage

import (
	"context"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient builds a client from a redis:// URL (or a bare address) and
// attaches the logging hook.
func NewRedisClient(redisURL string, logger *zap.Logger) *redis.Client {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{Addr: redisURL}
	}
	opts.MaxRetries = 3
	opts.MinRetryBackoff = 100 * time.Millisecond
	opts.MaxRetryBackoff = 500 * time.Millisecond

	client := redis.NewClient(opts)
	client.AddHook(&loggerHook{logger: logger.Sugar()})
	return client
}

type loggerHook struct {
	logger *zap.SugaredLogger
}

func (h *loggerHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.logger.Errorw("Redis dial failed", "network", network, "addr", addr, "error", err)
		} else {
			h.logger.Debugw("Redis dialed", "network", network, "addr", addr)
		}
		return conn, err
	}
}

func (h *loggerHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.log(cmd, time.Since(start), err)
		return err
	}
}

func (h *loggerHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		duration := time.Since(start)
		for _, cmd := range cmds {
			h.log(cmd, duration, err)
		}
		return err
	}
}

func (h *loggerHook) log(cmd redis.Cmder, duration time.Duration, err error) {
	if cmd.Name() == "ping" && err == nil {
		return
	}
	// A GET on a missing key is not a failure.
	if err == redis.Nil {
		err = nil
	}

	fields := []interface{}{
		"command", cmd.Name(),
		"duration_ms", duration.Milliseconds(),
	}
	if err != nil {
		h.logger.Errorw("Redis command failed", append(fields, "error", err)...)
		return
	}
	h.logger.Debugw("Redis command executed", fields...)
}
