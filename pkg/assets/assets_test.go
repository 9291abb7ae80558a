package assets

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tstromberg/fotoautomat/pkg/imgload"
)

func TestBuiltinStickersRasterize(t *testing.T) {
	for _, s := range Stickers() {
		t.Run(s.ID, func(t *testing.T) {
			img, err := s.Load(context.Background(), time.Second)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, StickerRaster.X, StickerRaster.Y), img.Bounds())

			opaque := 0
			b := img.Bounds()
			for y := b.Min.Y; y < b.Max.Y; y += 4 {
				for x := b.Min.X; x < b.Max.X; x += 4 {
					if _, _, _, a := img.At(x, y).RGBA(); a > 0 {
						opaque++
					}
				}
			}
			assert.Positive(t, opaque, "sticker painted nothing")
		})
	}
}

func TestFramesLeaveWindowTransparent(t *testing.T) {
	for _, f := range Frames() {
		if f.None() {
			continue
		}
		t.Run(f.ID, func(t *testing.T) {
			img, err := f.Load(context.Background(), time.Second)
			require.NoError(t, err)
			assert.Equal(t, FrameRaster.X, img.Bounds().Dx())

			_, _, _, center := img.At(FrameRaster.X/2, FrameRaster.Y/2).RGBA()
			assert.Zero(t, center, "frame window must be transparent")
			_, _, _, edge := img.At(1, FrameRaster.Y/2).RGBA()
			assert.NotZero(t, edge, "frame edge must be painted")
		})
	}
}

func TestBackgrounds(t *testing.T) {
	for _, b := range Backgrounds() {
		t.Run(b.ID, func(t *testing.T) {
			if b.Kind == Solid {
				return
			}
			img, err := b.Rasterize(60, 40)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 60, 40), img.Bounds())
			_, _, _, a := img.At(30, 20).RGBA()
			assert.NotZero(t, a)
		})
	}
}

func TestDecorates(t *testing.T) {
	white, err := BackgroundByID("white")
	require.NoError(t, err)
	assert.False(t, white.Decorates())

	clear, err := BackgroundByID("transparent")
	require.NoError(t, err)
	assert.False(t, clear.Decorates())
	assert.Equal(t, 0.0, clear.Fill().A)

	pink, err := BackgroundByID("pink-soft")
	require.NoError(t, err)
	assert.True(t, pink.Decorates())

	sunset, err := BackgroundByID("sunset")
	require.NoError(t, err)
	assert.True(t, sunset.Decorates())
}

func TestRasterizeErrors(t *testing.T) {
	_, err := Background{ID: "x", Kind: Gradient, Stops: []Stop{{0, "#000000"}}}.Rasterize(10, 10)
	assert.Error(t, err)
	_, err = Background{ID: "x", Kind: Pattern, Pattern: Dots, Color: "#ffffff", Ink: "#000000"}.Rasterize(10, 10)
	assert.Error(t, err)
	_, err = Background{ID: "x", Kind: Gradient}.Rasterize(0, 10)
	assert.Error(t, err)

	_, err = Asset{ID: "empty"}.Load(context.Background(), time.Second)
	assert.ErrorIs(t, err, imgload.ErrAssetLoadFailed)
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.Black)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}

func TestScanAndLibrary(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "animals", "cat-ears.png"))
	writePNG(t, filepath.Join(root, "frames", "confetti.png"))
	writePNG(t, filepath.Join(root, ".hidden", "secret.png"))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hi"), 0o600))

	found, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, found, 2)

	lib, err := NewLibrary(root)
	require.NoError(t, err)
	assert.Len(t, lib.Stickers(), len(Stickers())+1)
	assert.Len(t, lib.Frames(), len(Frames())+1)

	cat, err := lib.Sticker("file:animals/cat-ears.png")
	require.NoError(t, err)
	assert.Equal(t, "animals", cat.Category)
	assert.Equal(t, "cat ears", cat.Name)
	img, err := cat.Load(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	fr, err := lib.Frame("file:frames/confetti.png")
	require.NoError(t, err)
	assert.Equal(t, KindFrame, fr.Kind)

	_, err = lib.Sticker("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	writePNG(t, filepath.Join(root, "animals", "dog-nose.png"))
	require.NoError(t, lib.Reload())
	assert.Len(t, lib.Stickers(), len(Stickers())+2)
}

func TestWatchReloads(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "misc"), 0o755))
	lib, err := NewLibrary(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, lib) }()
	time.Sleep(100 * time.Millisecond)

	writePNG(t, filepath.Join(root, "misc", "new.png"))
	assert.Eventually(t, func() bool {
		_, err := lib.Sticker("file:misc/new.png")
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestEmptyLibraryHasBuiltins(t *testing.T) {
	lib, err := NewLibrary("")
	require.NoError(t, err)
	_, err = lib.Sticker("heart")
	assert.NoError(t, err)
	_, err = lib.Frame("none")
	assert.NoError(t, err)
	assert.Error(t, Watch(context.Background(), lib))
}
