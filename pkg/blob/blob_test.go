package blob_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tstromberg/fotoautomat/pkg/blob"
)

func stores(t *testing.T) map[string]blob.Store {
	t.Helper()
	dir, err := blob.NewDir(filepath.Join(t.TempDir(), "gallery"))
	require.NoError(t, err)
	db, err := blob.NewSQLite(filepath.Join(t.TempDir(), "gallery.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return map[string]blob.Store{
		"memory": blob.NewMemory(0),
		"dir":    dir,
		"sqlite": db,
	}
}

func TestStoreContract(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get("galleryPhotos")
			assert.ErrorIs(t, err, blob.ErrNotFound)

			require.NoError(t, s.Set("galleryPhotos", `[{"id":"a"}]`))
			v, err := s.Get("galleryPhotos")
			require.NoError(t, err)
			assert.Equal(t, `[{"id":"a"}]`, v)

			require.NoError(t, s.Set("galleryPhotos", `[]`))
			v, err = s.Get("galleryPhotos")
			require.NoError(t, err)
			assert.Equal(t, `[]`, v)

			require.NoError(t, s.Set("odd/key name", "x"))
			v, err = s.Get("odd/key name")
			require.NoError(t, err)
			assert.Equal(t, "x", v)

			require.NoError(t, s.Remove("galleryPhotos"))
			require.NoError(t, s.Remove("galleryPhotos"))
			_, err = s.Get("galleryPhotos")
			assert.ErrorIs(t, err, blob.ErrNotFound)
		})
	}
}

func TestMemoryQuota(t *testing.T) {
	m := blob.NewMemory(10)
	require.NoError(t, m.Set("a", "12345"))
	require.NoError(t, m.Set("a", "1234567890"))
	assert.ErrorIs(t, m.Set("b", "x"), blob.ErrQuotaExceeded)
	_, err := m.Get("b")
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestSQLitePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.db")
	db, err := blob.NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, db.Set("k", "v"))
	require.NoError(t, db.Close())

	db, err = blob.NewSQLite(path)
	require.NoError(t, err)
	defer db.Close()
	v, err := db.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestDirBackup(t *testing.T) {
	d, err := blob.NewDir(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)
	require.NoError(t, d.Set("galleryPhotos", "[]"))
	require.NoError(t, os.WriteFile(filepath.Join(d.Root(), ".tmp-stale"), []byte("junk"), 0o600))

	dst := filepath.Join(t.TempDir(), "backup")
	require.NoError(t, d.Backup(dst))

	restored, err := blob.NewDir(dst)
	require.NoError(t, err)
	v, err := restored.Get("galleryPhotos")
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
	_, err = os.Stat(filepath.Join(dst, ".tmp-stale"))
	assert.True(t, os.IsNotExist(err))
}

func TestOpen(t *testing.T) {
	s, err := blob.Open("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &blob.Memory{}, s)

	_, err = blob.Open("dir", "")
	assert.Error(t, err)

	_, err = blob.Open("s3", "bucket")
	assert.Error(t, err)
}
