package consumer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"hoslink/pkg/requestcontext"
)

// Deduper remembers processed event ids so redelivered envelopes are skipped.
// Seen is checked before handling and Mark is called only after success, so a
// failed attempt is retried on redelivery.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

const dedupeKeyPrefix = "hoslink:event:"

// RedisDeduper shares processed ids across consumer instances. Keys expire after ttl.
type RedisDeduper struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisDeduper(client redis.Cmdable, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, nil
	}
	_, err := d.client.Get(ctx, dedupeKeyPrefix+eventID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Mark records eventID with SETNX; an existing key is left untouched.
func (d *RedisDeduper) Mark(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}
	return d.client.SetNX(ctx, dedupeKeyPrefix+eventID, "1", d.ttl).Err()
}

// MemoryDeduper is the single-process variant.
type MemoryDeduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{ttl: ttl, seen: make(map[string]time.Time)}
}

func (d *MemoryDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.seen[eventID]
	if !ok {
		return false, nil
	}
	if !requestcontext.Now(ctx).Before(exp) {
		delete(d.seen, eventID)
		return false, nil
	}
	return true, nil
}

func (d *MemoryDeduper) Mark(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}
	now := requestcontext.Now(ctx)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.evict(now)
	if _, ok := d.seen[eventID]; !ok {
		d.seen[eventID] = now.Add(d.ttl)
	}
	return nil
}

// evict drops expired ids. Called with mu held.
func (d *MemoryDeduper) evict(now time.Time) {
	for id, exp := range d.seen {
		if !now.Before(exp) {
			delete(d.seen, id)
		}
	}
}
