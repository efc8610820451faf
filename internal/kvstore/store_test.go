package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSetDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemory()

	_, ok, err := s.Get(ctx, "o1", "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "o1", "k", []byte("v1")))
	v, ok, err := s.Get(ctx, "o1", "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), v)

	// Overwrite replaces.
	require.NoError(t, s.Set(ctx, "o1", "k", []byte("v2")))
	v, _, _ = s.Get(ctx, "o1", "k")
	assert.Equal(t, []byte("v2"), v)

	require.NoError(t, s.Delete(ctx, "o1", "k"))
	_, ok, err = s.Get(ctx, "o1", "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent key is fine.
	require.NoError(t, s.Delete(ctx, "o1", "missing"))
	require.NoError(t, s.Delete(ctx, "no-such-owner", "k"))
}

func TestMemoryOwnersAreIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Set(ctx, "o1", "k", []byte("a")))
	require.NoError(t, s.Set(ctx, "o2", "k", []byte("b")))

	v, _, _ := s.Get(ctx, "o1", "k")
	assert.Equal(t, []byte("a"), v)
	v, _, _ = s.Get(ctx, "o2", "k")
	assert.Equal(t, []byte("b"), v)

	require.NoError(t, s.Delete(ctx, "o1", "k"))
	_, ok, _ := s.Get(ctx, "o2", "k")
	assert.True(t, ok)
}

func TestMemoryKeysPrefix(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Set(ctx, "o1", "diagone_meta_2026-08-28", []byte("a")))
	require.NoError(t, s.Set(ctx, "o1", "diagone_meta_2026-08-29", []byte("b")))
	require.NoError(t, s.Set(ctx, "o1", "diagone_state", []byte("c")))
	require.NoError(t, s.Set(ctx, "o1", "tumblepuns_meta_2026-08-29", []byte("d")))
	require.NoError(t, s.Set(ctx, "o2", "diagone_meta_2026-08-29", []byte("e")))

	keys, err := s.Keys(ctx, "o1", "diagone_meta_")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"diagone_meta_2026-08-28", "diagone_meta_2026-08-29"}, keys)

	keys, err = s.Keys(ctx, "o1", "")
	require.NoError(t, err)
	assert.Len(t, keys, 4)

	keys, err = s.Keys(ctx, "o3", "diagone_")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMemoryReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemory()

	in := []byte("original")
	require.NoError(t, s.Set(ctx, "o1", "k", in))
	in[0] = 'X'

	v, _, _ := s.Get(ctx, "o1", "k")
	assert.Equal(t, []byte("original"), v, "stored value must not alias the caller's slice")

	v[0] = 'Y'
	again, _, _ := s.Get(ctx, "o1", "k")
	assert.Equal(t, []byte("original"), again, "returned value must not alias the stored slice")
}
