package ads

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const postbackPrefix = "ads:postback:v1:"

// consumeView takes one view off the counter and drops the key at zero.
// A missing or empty counter returns -1 without writing.
var consumeView = redis.NewScript(`
local n = tonumber(redis.call('GET', KEYS[1]) or '0')
if n <= 0 then
  return -1
end
if n == 1 then
  redis.call('DEL', KEYS[1])
  return 0
end
return redis.call('DECR', KEYS[1])
`)

// PostbackStore keeps one-shot ad completion tokens written by the ad
// network's server-to-server callback.
type PostbackStore struct {
	cache *redis.Client
	ttl   time.Duration
}

// NewPostbackStore builds a Redis-backed postback store.
func NewPostbackStore(cache *redis.Client, ttl time.Duration) *PostbackStore {
	return &PostbackStore{cache: cache, ttl: ttl}
}

// Record stores a completed view for accountID. Views accumulate until consumed or expired.
func (s *PostbackStore) Record(ctx context.Context, accountID string) error {
	if accountID == "" {
		return fmt.Errorf("postback without account id")
	}
	key := postbackPrefix + accountID
	pipe := s.cache.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record postback: %w", err)
	}
	return nil
}

// Play consumes one completed view for accountID. The check and the
// decrement run as one script so a concurrent Record is never lost.
func (s *PostbackStore) Play(ctx context.Context, accountID string) error {
	if s == nil || s.cache == nil {
		return ErrUnavailable
	}
	left, err := consumeView.Run(ctx, s.cache, []string{postbackPrefix + accountID}).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if left < 0 {
		return ErrNotCompleted
	}
	return nil
}
