// Package redis wraps the go-redis client with the small API used by the
// storefront's document store, identity registry and identity broker.
package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrNil indicates the requested key does not exist.
var ErrNil = redis.Nil

func New(redis *redis.Client) *Redis {
	return &Redis{
		redis: redis,
	}
}

// Redis wraps the redis.Client. This is done to make the redis.Client
// simpler to test against.
type Redis struct {
	redis *redis.Client
}

// Get wraps redis.Client.Get.Bytes(). ErrNil is returned if key does not
// exist.
func (r Redis) Get(ctx context.Context, key string) ([]byte, error) {
	return r.redis.Get(ctx, key).Bytes()
}

// Set wraps redis.Client.Set.Err().
func (r Redis) Set(
	ctx context.Context,
	key string,
	val []byte,
	exp time.Duration,
) error {
	return r.redis.Set(ctx, key, val, exp).Err()
}

// Del wraps redis.Client.Del.Err().
func (r Redis) Del(ctx context.Context, key string) error {
	return r.redis.Del(ctx, key).Err()
}

// Expire wraps redis.Client.Expire.Result().
func (r Redis) Expire(ctx context.Context, key string, exp time.Duration) (bool, error) {
	return r.redis.Expire(ctx, key, exp).Result()
}

// Ping wraps redis.Client.Ping.Err().
func (r Redis) Ping(ctx context.Context) error {
	return r.redis.Ping(ctx).Err()
}

// Publish notifies every subscriber of subject.
func (r Redis) Publish(ctx context.Context, subject string) error {
	return r.redis.Publish(ctx, subject, "notify").Err()
}

// Subscribe subscribes to subject. The returned channel receives a value
// after one or more publishes to subject; publishes that occur before the
// previous value is received are coalesced. The returned function closes the
// subscription and must be called once the subscription is no longer needed.
func (r Redis) Subscribe(ctx context.Context, subject string) (<-chan struct{}, func() error, error) {
	sub := r.redis.Subscribe(ctx, subject)

	// Wait for confirmation so that no publish following Subscribe is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe; subject: %s, error: %w", subject, err)
	}

	notifyc := make(chan struct{}, 1)
	done := make(chan struct{})
	messages := sub.Channel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				select {
				case notifyc <- struct{}{}:
				default:
				}
			}
		}
	}()

	var once sync.Once
	var closeErr error
	closeFn := func() error {
		once.Do(func() {
			close(done)
			closeErr = sub.Close()
			wg.Wait()
		})
		return closeErr
	}

	return notifyc, closeFn, nil
}
