// Package docstore provides the remote document store used to persist carts
// and user profiles. Documents are addressed by slash separated paths such as
// "carts/<uid>".
package docstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	iredis "github.com/tjper/storefront/internal/redis"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound indicates the document at the requested path does not exist.
var ErrNotFound = errors.New("document not found")

// IRedis is the API by which Redis is communicated with.
type IRedis interface {
	Get(context.Context, string) ([]byte, error)
	Set(context.Context, string, []byte, time.Duration) error
}

// NewRedis creates a new Redis instance. Keys are prefixed with prefix.
func NewRedis(redis IRedis, prefix string) *Redis {
	return &Redis{redis: redis, prefix: prefix}
}

// Redis is a document store backed by Redis. Documents are msgpack encoded
// and never expire.
type Redis struct {
	redis  IRedis
	prefix string
}

// Get decodes the document at p into dst. If the document does not exist,
// ErrNotFound is returned.
func (s Redis) Get(ctx context.Context, p string, dst interface{}) error {
	b, err := s.redis.Get(ctx, s.key(p))
	if errors.Is(err, iredis.ErrNil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get document; path: %s, error: %w", p, err)
	}

	if err := msgpack.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode document; path: %s, error: %w", p, err)
	}
	return nil
}

// Set replaces the document at p with val.
func (s Redis) Set(ctx context.Context, p string, val interface{}) error {
	b, err := msgpack.Marshal(val)
	if err != nil {
		return fmt.Errorf("encode document; path: %s, error: %w", p, err)
	}

	if err := s.redis.Set(ctx, s.key(p), b, 0); err != nil {
		return fmt.Errorf("set document; path: %s, error: %w", p, err)
	}
	return nil
}

func (s Redis) key(p string) string {
	return fmt.Sprintf("%s%s", s.prefix, path.Clean(p))
}

// CartPath is the path of the cart document of the specified user.
func CartPath(userID string) string {
	return path.Join("carts", userID)
}

// UserPath is the path of the profile document of the specified user.
func UserPath(userID string) string {
	return path.Join("users", userID)
}
