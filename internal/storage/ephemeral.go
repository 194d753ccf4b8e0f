package storage

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Ephemeral is the shared key/value and publish/subscribe store used for
// presence state and change events.
type Ephemeral interface {
	// Get returns the value of key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Publish(ctx context.Context, topic, message string) error
	// Subscribe calls handler for every message published on topic until the
	// returned function is called. The subscription is joined before
	// Subscribe returns.
	Subscribe(ctx context.Context, topic string, handler func(message string)) (func(), error)
}

// RedisStore implements Ephemeral on top of a redis client.
type RedisStore struct {
	client *redis.Client
	logger *zap.SugaredLogger
}

func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger.Sugar()}
}

func (r *RedisStore) Client() *redis.Client {
	return r.client
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if stderrors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "storage.Get %s", key)
	}
	return value, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.Wrapf(err, "storage.Set %s", key)
	}
	return nil
}

func (r *RedisStore) Publish(ctx context.Context, topic, message string) error {
	if err := r.client.Publish(ctx, topic, message).Err(); err != nil {
		return errors.Wrapf(err, "storage.Publish %s", topic)
	}
	return nil
}

func (r *RedisStore) Subscribe(ctx context.Context, topic string, handler func(message string)) (func(), error) {
	ps := r.client.Subscribe(ctx, topic)

	// Wait for the subscribe confirmation so no publish after return is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, errors.Wrapf(err, "storage.Subscribe %s", topic)
	}

	messages := ps.Channel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range messages {
			handler(msg.Payload)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := ps.Close(); err != nil {
				r.logger.Warnw("Redis unsubscribe failed", "topic", topic, "error", err)
			}
			<-done
		})
	}, nil
}
