package memory_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharingconfigs/sharingconfigs/internal/storage"
	"github.com/sharingconfigs/sharingconfigs/internal/storage/memory"
)

var _ storage.Backend = (*memory.Backend)(nil)

func TestBackend(t *testing.T) {
	b := memory.New()
	ctx := context.Background()

	require.NoError(t, b.PutObject(ctx, "acme/reports/q1.json", strings.NewReader("q1"), 2))
	require.NoError(t, b.PutObject(ctx, "acme/archive/old.json", strings.NewReader("old"), 3))
	require.NoError(t, b.PutObject(ctx, "beta/x.json", strings.NewReader("x"), 1))

	t.Run("get", func(t *testing.T) {
		r, size, err := b.GetObject(ctx, "acme/reports/q1.json")
		require.NoError(t, err)
		data, _ := io.ReadAll(r)
		assert.Equal(t, "q1", string(data))
		assert.Equal(t, int64(2), size)
	})

	t.Run("missing", func(t *testing.T) {
		_, _, err := b.GetObject(ctx, "acme/nope")
		assert.True(t, storage.IsNotFound(err))
	})

	t.Run("list is sorted and prefixed", func(t *testing.T) {
		keys, err := b.ListObjects(ctx, "acme/")
		require.NoError(t, err)
		assert.Equal(t, []string{"acme/archive/old.json", "acme/reports/q1.json"}, keys)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, b.DeleteObject(ctx, "beta/x.json"))
		ok, err := b.ObjectExists(ctx, "beta/x.json")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestBackend_ConcurrentWrites(t *testing.T) {
	b := memory.New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.PutObject(ctx, "shared/key", strings.NewReader("v"), 1)
			_, _ = b.ListObjects(ctx, "shared/")
		}()
	}
	wg.Wait()

	keys, err := b.ListObjects(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"shared/key"}, keys)
}
