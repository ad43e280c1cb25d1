package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	iredis "github.com/tjper/storefront/internal/redis"

	"github.com/vmihailenco/msgpack/v5"
)

// IRedis encompasses the redis operations used by the Registry.
type IRedis interface {
	Get(context.Context, string) ([]byte, error)
	Set(context.Context, string, []byte, time.Duration) error
	Del(context.Context, string) error
	Expire(context.Context, string, time.Duration) (bool, error)
}

// NewRegistry creates a new Registry instance. Signed-in identities expire
// after exp without activity.
func NewRegistry(redis IRedis, exp time.Duration) *Registry {
	return &Registry{redis: redis, exp: exp}
}

// Registry holds the signed-in Identity of every browser. All tabs of a
// browser share one entry.
type Registry struct {
	redis IRedis
	exp   time.Duration
}

// Retrieve gets the Identity signed-in to browserID. A nil Identity is
// returned when no one is signed-in. Every retrieval extends the expiration
// of the entry.
func (r Registry) Retrieve(ctx context.Context, browserID string) (*Identity, error) {
	key := keygen(identityPrefix, browserID)

	b, err := r.redis.Get(ctx, key)
	if errors.Is(err, iredis.ErrNil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("retrieve identity; error: %w", err)
	}

	ident := new(Identity)
	if err := decode(b, ident); err != nil {
		return nil, fmt.Errorf("decode identity; error: %w", err)
	}

	if _, err := r.redis.Expire(ctx, key, r.exp); err != nil {
		return nil, fmt.Errorf("touch identity; error: %w", err)
	}
	return ident, nil
}

// Store signs ident in to browserID, replacing any previously signed-in
// Identity.
func (r Registry) Store(ctx context.Context, browserID string, ident Identity) error {
	b, err := encode(ident)
	if err != nil {
		return fmt.Errorf("encode identity; error: %w", err)
	}
	if err := r.redis.Set(ctx, keygen(identityPrefix, browserID), b, r.exp); err != nil {
		return fmt.Errorf("store identity; error: %w", err)
	}
	return nil
}

// Delete signs browserID out.
func (r Registry) Delete(ctx context.Context, browserID string) error {
	if err := r.redis.Del(ctx, keygen(identityPrefix, browserID)); err != nil {
		return fmt.Errorf("delete identity; error: %w", err)
	}
	return nil
}

// Subject is the pub/sub subject on which changes to the Identity signed-in
// to browserID are announced.
func Subject(browserID string) string {
	return keygen(changedPrefix, browserID)
}

// --- helpers ---

const (
	identityPrefix = "storefront-identity-"
	changedPrefix  = "storefront-identity-changed-"
)

func keygen(prefix, id string) string {
	return fmt.Sprintf("%s%s", prefix, id)
}

func encode(obj interface{}) ([]byte, error) {
	return msgpack.Marshal(obj)
}

func decode(b []byte, obj interface{}) error {
	return msgpack.Unmarshal(b, obj)
}
