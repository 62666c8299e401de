package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *DiskStore {
	t.Helper()
	d, err := NewDiskStore(t.TempDir(), nil)
	require.NoError(t, err)
	return d
}

func TestDiskStore_SaveAndExists(t *testing.T) {
	d := newTestStore(t)
	ctx := context.Background()

	path, err := d.Save(ctx, "a1b2.pdf", strings.NewReader("content"), 7, "application/pdf")
	require.NoError(t, err)
	assert.True(t, d.Exists(ctx, path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "content", string(b))

	// Refuses to overwrite an existing stored name.
	_, err = d.Save(ctx, "a1b2.pdf", strings.NewReader("other"), 5, "application/pdf")
	assert.Error(t, err)
}

func TestDiskStore_Exists_Missing(t *testing.T) {
	d := newTestStore(t)
	assert.False(t, d.Exists(context.Background(), filepath.Join(d.root, "nope.pdf")))
}

func TestDiskStore_Remove_MissingIsSwallowed(t *testing.T) {
	d := newTestStore(t)
	ctx := context.Background()

	// Must not panic or error on a path that was already gone.
	d.Remove(ctx, filepath.Join(d.root, "gone.pdf"))
	d.Remove(ctx, "")

	path, err := d.Save(ctx, "x.png", strings.NewReader("img"), 3, "image/png")
	require.NoError(t, err)
	d.Remove(ctx, path)
	assert.False(t, d.Exists(ctx, path))
}

func TestDiskStore_RemoveStrict(t *testing.T) {
	d := newTestStore(t)
	ctx := context.Background()

	path, err := d.Save(ctx, "y.jpg", strings.NewReader("img"), 3, "image/jpeg")
	require.NoError(t, err)
	require.NoError(t, d.RemoveStrict(ctx, path))
	assert.False(t, d.Exists(ctx, path))

	// Missing file is still not an error.
	assert.NoError(t, d.RemoveStrict(ctx, path))
	assert.NoError(t, d.RemoveStrict(ctx, ""))
}
