package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker backed by SET NX with an expiry.
type Redis struct {
	client redis.Cmdable
	prefix string
}

// NewRedis creates a Redis locker. Keys are stored under prefix.
func NewRedis(client redis.Cmdable, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.prefix+key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrLocked)
	}

	return &Lease{Key: key, Token: token, Expires: time.Now().Add(ttl)}, nil
}

func (r *Redis) Release(ctx context.Context, lease *Lease) error {
	n, err := releaseScript.Run(ctx, r.client, []string{r.prefix + lease.Key}, lease.Token).Int()
	if err != nil {
		return fmt.Errorf("release %s: %w", lease.Key, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", lease.Key, ErrNotHeld)
	}
	return nil
}
