package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentStoreSaveAndRead(t *testing.T) {
	dir := t.TempDir()
	store, err := NewContentStore(dir)
	require.NoError(t, err)

	rel, err := store.Save("a1b2c3d4e5", []byte("essay"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("a1", "b2", "a1b2c3d4e5"), rel)
	assert.Equal(t, filepath.Join(dir, rel), store.Path("a1b2c3d4e5"))

	data, err := store.Read("A1B2C3D4E5")
	require.NoError(t, err)
	assert.Equal(t, "essay", string(data))

	require.NoError(t, store.Delete("a1b2c3d4e5"))
	_, err = store.Read("a1b2c3d4e5")
	require.Error(t, err)
	require.NoError(t, store.Delete("a1b2c3d4e5"))
}

func TestContentStoreRejectsTraversal(t *testing.T) {
	store, err := NewContentStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Read("../../etc/passwd")
	require.Error(t, err)
	_, err = store.Save("ab", []byte("x"))
	require.Error(t, err)
	assert.Equal(t, "", store.Path("../x"))
}
