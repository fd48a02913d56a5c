package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryKVSetGetDel(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	_, err := kv.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrMiss)

	require.NoError(t, kv.Set(ctx, "k", "v", 0))
	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", got)

	require.NoError(t, kv.Del(ctx, "k"))
	_, err = kv.Get(ctx, "k")
	require.ErrorIs(t, err, ErrMiss)

	// Deleting an absent key is not an error.
	require.NoError(t, kv.Del(ctx, "k"))
}

func TestMemoryKVTTLExpiry(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	require.NoError(t, kv.Set(ctx, "short", "v", 10*time.Millisecond))
	got, err := kv.Get(ctx, "short")
	require.NoError(t, err)
	require.Equal(t, "v", got)

	require.Eventually(t, func() bool {
		_, err := kv.Get(ctx, "short")
		return err == ErrMiss
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryKVScanKeys(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	require.NoError(t, kv.Set(ctx, "overlay:t1:categories:deletedIds", "[]", 0))
	require.NoError(t, kv.Set(ctx, "overlay:t1:categories:overrides", "{}", 0))
	require.NoError(t, kv.Set(ctx, "overlay:t2:products:overrides", "{}", 0))

	keys, err := kv.ScanKeys(ctx, "overlay:t1:*")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{
		"overlay:t1:categories:deletedIds",
		"overlay:t1:categories:overrides",
	}, keys)

	keys, err = kv.ScanKeys(ctx, "overlay:t2:products:overrides")
	require.NoError(t, err)
	require.Equal(t, []string{"overlay:t2:products:overrides"}, keys)

	keys, err = kv.ScanKeys(ctx, "*")
	require.NoError(t, err)
	require.Len(t, keys, 3)
}
