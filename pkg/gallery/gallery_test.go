package gallery_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tstromberg/fotoautomat/pkg/blob"
	"github.com/tstromberg/fotoautomat/pkg/gallery"
)

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Hour)
	return c.t
}

func photo(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	store := blob.NewMemory(0)
	g, err := gallery.Open(store)
	require.NoError(t, err)
	assert.Empty(t, g.List())

	first, err := g.Save([]byte("one"), nil)
	require.NoError(t, err)
	second, err := g.Save([]byte("two"), &gallery.Metadata{HasStickers: true, StickerCount: 3, Template: "4x1"})
	require.NoError(t, err)

	list := g.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	reopened, err := gallery.Open(store)
	require.NoError(t, err)
	got, err := reopened.Get(second.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got.ImageData)
	assert.Equal(t, "4x1", got.Metadata.Template)

	require.NoError(t, g.Delete(second.ID))
	list = g.List()
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
	assert.ErrorIs(t, g.Delete(second.ID), gallery.ErrNotFound)

	require.NoError(t, g.Clear())
	assert.Empty(t, g.List())
	_, err = store.Get(gallery.Key)
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestSQLiteBacked(t *testing.T) {
	db, err := blob.NewSQLite(filepath.Join(t.TempDir(), "gallery.db"))
	require.NoError(t, err)
	defer db.Close()

	g, err := gallery.Open(db)
	require.NoError(t, err)
	e, err := g.Save([]byte("strip"), &gallery.Metadata{Template: "2x2"})
	require.NoError(t, err)

	again, err := gallery.Open(db)
	require.NoError(t, err)
	require.Equal(t, 1, again.Len())
	assert.Equal(t, e.ID, again.List()[0].ID)
}

func TestQuotaExceededKeepsMemoryAndCanFlush(t *testing.T) {
	store := blob.NewMemory(300)
	g, err := gallery.Open(store)
	require.NoError(t, err)

	_, err = g.Save(bytes.Repeat([]byte("x"), 20), nil)
	require.NoError(t, err)

	big, err := g.Save(bytes.Repeat([]byte("y"), 400), nil)
	assert.ErrorIs(t, err, gallery.ErrPersistence)
	assert.ErrorIs(t, err, blob.ErrQuotaExceeded)
	assert.Equal(t, 2, g.Len(), "memory is not rolled back")
	assert.True(t, g.Dirty())

	persisted, err := gallery.Open(store)
	require.NoError(t, err)
	assert.Equal(t, 1, persisted.Len())

	require.NoError(t, g.Delete(big.ID))
	assert.False(t, g.Dirty())
	require.NoError(t, g.Flush())
}

func TestOpenCorrupt(t *testing.T) {
	store := blob.NewMemory(0)
	require.NoError(t, store.Set(gallery.Key, "{not json"))
	_, err := gallery.Open(store)
	assert.ErrorIs(t, err, gallery.ErrPersistence)
}

func TestStatsAndDays(t *testing.T) {
	clk := &stepClock{t: time.Date(2026, 10, 17, 20, 0, 0, 0, time.Local)}
	g, err := gallery.Open(blob.NewMemory(0), gallery.WithClock(clk.now))
	require.NoError(t, err)

	_, err = g.Save([]byte("a"), &gallery.Metadata{HasStickers: true, StickerCount: 2})
	require.NoError(t, err)
	_, err = g.Save([]byte("b"), nil)
	require.NoError(t, err)
	_, err = g.Save([]byte("c"), &gallery.Metadata{HasStickers: true, StickerCount: 1})
	require.NoError(t, err)
	_, err = g.Save([]byte("d"), &gallery.Metadata{})
	require.NoError(t, err)
	_, err = g.Save([]byte("e"), nil)
	require.NoError(t, err)

	assert.Equal(t, gallery.Stats{Total: 5, WithStickers: 2, Stickers: 3}, g.Stats())

	days := g.Days()
	require.Len(t, days, 2)
	assert.Equal(t, "2026-10-18", days[0].Date)
	assert.Len(t, days[0].Entries, 2)
	assert.Equal(t, "2026-10-17", days[1].Date)
	assert.Len(t, days[1].Entries, 3)
}

func TestThumbnail(t *testing.T) {
	g, err := gallery.Open(blob.NewMemory(0))
	require.NoError(t, err)
	e, err := g.Save(photo(t, 400, 600), nil)
	require.NoError(t, err)

	thumb, err := g.Thumbnail(context.Background(), e.ID, gallery.DefaultThumb)
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 180, cfg.Height)
	assert.Equal(t, 120, cfg.Width)

	again, err := g.Thumbnail(context.Background(), e.ID, gallery.DefaultThumb)
	require.NoError(t, err)
	assert.Equal(t, thumb, again)

	_, err = g.Thumbnail(context.Background(), "missing", gallery.DefaultThumb)
	assert.ErrorIs(t, err, gallery.ErrNotFound)
}
