package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoslink/pkg/requestcontext"
)

func TestMemoryDeduper(t *testing.T) {
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	d := NewMemoryDeduper(time.Minute)

	seen, err := d.Seen(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, d.Mark(ctx, "e1"))
	seen, _ = d.Seen(ctx, "e1")
	assert.True(t, seen)

	later := requestcontext.WithTime(context.Background(), now.Add(time.Minute))
	seen, _ = d.Seen(later, "e1")
	assert.False(t, seen, "expired after ttl")

	require.NoError(t, d.Mark(ctx, ""))
	seen, _ = d.Seen(ctx, "")
	assert.False(t, seen)
}
