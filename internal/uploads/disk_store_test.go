package uploads

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStore_Save(t *testing.T) {
	root := t.TempDir()
	store, err := NewDiskStore(root)
	require.NoError(t, err)

	content := "pretend this is a png"
	ref, err := store.Save("cover.png", int64(len(content)), "image/png", strings.NewReader(content))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "/uploads/"))
	assert.True(t, strings.HasSuffix(ref, ".png"))

	// stored under the generated name, not the original one
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEqual(t, "cover.png", entries[0].Name())
	assert.Equal(t, "/uploads/"+entries[0].Name(), ref)

	saved, err := os.ReadFile(filepath.Join(root, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, content, string(saved))
}

func TestDiskStore_Save_rejectedBeforeWrite(t *testing.T) {
	root := t.TempDir()
	store, err := NewDiskStore(root)
	require.NoError(t, err)

	// oversize
	_, err = store.Save("big.png", MaxFileSize+1, "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	// wrong extension
	_, err = store.Save("notes.txt", 10, "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNotAnImage)

	// wrong content type
	_, err = store.Save("script.png", 10, "application/octet-stream", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNotAnImage)

	// nothing reached the disk
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiskStore_Save_declaredSizeLied(t *testing.T) {
	root := t.TempDir()
	store, err := NewDiskStore(root)
	require.NoError(t, err)

	// declared small, actually over the cap
	huge := strings.NewReader(strings.Repeat("x", MaxFileSize+10))
	_, err = store.Save("sneaky.png", 10, "image/png", huge)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	// the partial write got cleaned up
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiskStore_OpenDelete(t *testing.T) {
	root := t.TempDir()
	store, err := NewDiskStore(root)
	require.NoError(t, err)

	ref, err := store.Save("cover.png", 4, "image/png", strings.NewReader("data"))
	require.NoError(t, err)
	name := strings.TrimPrefix(ref, "/uploads/")

	file, err := store.Open(name)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	// traversal attempts miss
	_, err = store.Open("../../../etc/passwd")
	assert.ErrorIs(t, err, ErrFileNotFound)

	require.NoError(t, store.Delete(ref))
	_, err = store.Open(name)
	assert.ErrorIs(t, err, ErrFileNotFound)

	// deleting twice is fine
	assert.NoError(t, store.Delete(ref))
}
