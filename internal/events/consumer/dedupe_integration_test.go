//go:build integration

package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoslink/pkg/testutil/containers"
)

func TestRedisDeduper(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	redisC := containers.GetManager().GetRedis(t)
	ctx := context.Background()
	require.NoError(t, redisC.FlushAll(ctx))

	d := NewRedisDeduper(redisC.Client, time.Minute)
	seen, err := d.Seen(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, d.Mark(ctx, "e1"))
	require.NoError(t, d.Mark(ctx, "e1"))
	seen, err = d.Seen(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, seen)

	ttl, err := redisC.Client.TTL(ctx, dedupeKeyPrefix+"e1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
