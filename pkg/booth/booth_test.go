package booth

import (
	"context"
	"errors"
	"image"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tstromberg/fotoautomat/pkg/blob"
	"github.com/tstromberg/fotoautomat/pkg/capture"
	"github.com/tstromberg/fotoautomat/pkg/gallery"
	"github.com/tstromberg/fotoautomat/pkg/imgload"
	"github.com/tstromberg/fotoautomat/pkg/session"
	"github.com/tstromberg/fotoautomat/pkg/template"
)

var fixed = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func newBooth(t *testing.T, mutate func(*Config), opts ...Option) (*Booth, *session.ManualScheduler) {
	t.Helper()
	c := DefaultConfig()
	c.DownloadDir = t.TempDir()
	if mutate != nil {
		mutate(c)
	}
	sched := &session.ManualScheduler{}
	opts = append([]Option{
		WithScheduler(sched),
		WithClock(func() time.Time { return fixed }),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	}, opts...)
	b, err := New(c, capture.TestPattern{Width: 200, Height: 150}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	require.NoError(t, b.Start(context.Background()))
	return b, sched
}

func TestBurstAutoSaves(t *testing.T) {
	var ticks []int
	var saved []gallery.Entry
	b, sched := newBooth(t, nil, WithEvents(Events{
		Tick:  func(n int) { ticks = append(ticks, n) },
		Saved: func(e gallery.Entry) { saved = append(saved, e) },
	}))

	require.NoError(t, b.Shoot())
	assert.ErrorIs(t, b.Shoot(), session.ErrBusy)
	sched.Drain(100)

	res, err := b.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Multi)
	assert.Equal(t, 4, res.Frames)
	assert.Equal(t, session.Complete, b.Status().State)
	assert.Equal(t, 5, ticks[0])

	require.Len(t, saved, 1)
	assert.Equal(t, 1, b.Gallery().Len())
	e := b.Gallery().List()[0]
	assert.Equal(t, "4x1", e.Metadata.Template)
	assert.False(t, e.Metadata.HasStickers)
	assert.Equal(t, fixed, e.Timestamp)
	assert.True(t, b.Scene().HasPhoto())
}

func TestSingleEditSaveDownload(t *testing.T) {
	b, _ := newBooth(t, func(c *Config) {
		c.Mode = ModeSingle
		c.Template = "1x1"
		c.Background = "sunset"
		c.Frame = "polaroid"
	})

	_, err := b.Save(context.Background())
	assert.ErrorIs(t, err, ErrNoResult)

	require.NoError(t, b.Shoot())
	res, err := b.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Multi)
	assert.Equal(t, 0, b.Gallery().Len(), "single shots are not auto-saved")

	_, err = b.AddSticker(context.Background(), "heart")
	require.NoError(t, err)
	_, err = b.AddSticker(context.Background(), "no-such-sticker")
	assert.Error(t, err)

	e, err := b.Save(context.Background())
	require.NoError(t, err)
	assert.True(t, e.Metadata.HasStickers)
	assert.Equal(t, 1, e.Metadata.StickerCount)
	assert.Equal(t, "1x1", e.Metadata.Template)

	path, err := b.Download(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "photobooth-"+strconv.FormatInt(fixed.UnixMilli(), 10)+".png", filepath.Base(path))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	w, h := b.Scene().Size()
	assert.Equal(t, 2*w, cfg.Width)
	assert.Equal(t, 2*h, cfg.Height)
}

type brokenCam struct{}

func (brokenCam) Open(context.Context, capture.Facing) (capture.Stream, error) {
	return nil, capture.ErrCameraUnavailable
}

func TestCaptureFailureResets(t *testing.T) {
	c := DefaultConfig()
	c.Mode = ModeSingle
	var failed error
	b, err := New(c, brokenCam{}, WithScheduler(&session.ManualScheduler{}), WithEvents(Events{
		Failed: func(err error) { failed = err },
	}))
	require.NoError(t, err)
	defer b.Close()

	assert.ErrorIs(t, b.Start(context.Background()), capture.ErrCameraUnavailable)
	require.NoError(t, b.Shoot())
	_, err = b.Wait(context.Background())
	assert.ErrorIs(t, err, capture.ErrCaptureFailed)
	assert.ErrorIs(t, failed, capture.ErrCaptureFailed)
	assert.Equal(t, session.Idle, b.Status().State)
}

func TestRetakeAndTemplate(t *testing.T) {
	b, sched := newBooth(t, nil)
	require.NoError(t, b.Shoot())
	sched.Fire()
	assert.Equal(t, session.BurstCapturing, b.Status().State)

	require.NoError(t, b.SelectTemplate("2x2"))
	assert.Equal(t, session.Idle, b.Status().State)
	assert.Equal(t, "2x2", b.Status().Template.ID)
	assert.Error(t, b.SelectTemplate("9x9"))

	b.Retake()
	_, err := b.Download(context.Background())
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestUndecodableResultResets(t *testing.T) {
	garbage := func(context.Context, template.Template, [][]byte) ([]byte, error) {
		return []byte("not an image"), nil
	}
	b, _ := newBooth(t, func(c *Config) { c.Mode = ModeSingle }, WithComposer(garbage))

	require.NoError(t, b.Shoot())
	_, err := b.Wait(context.Background())
	assert.ErrorIs(t, err, imgload.ErrAssetLoadFailed)
	assert.Equal(t, session.Idle, b.Status().State)
	assert.Zero(t, b.Gallery().Len())
	assert.False(t, b.Scene().HasPhoto())

	_, err = b.Save(context.Background())
	assert.ErrorIs(t, err, ErrNoResult)
}

type failingStore struct{ blob.Store }

func (failingStore) Set(string, string) error { return errors.New("disk full") }

func TestAutoSaveFailureKeepsResult(t *testing.T) {
	b, sched := newBooth(t, func(c *Config) { c.Template = "3x1" }, WithStore(failingStore{blob.NewMemory(0)}))
	require.NoError(t, b.Shoot())
	sched.Drain(100)
	_, err := b.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, b.Gallery().Len())
	assert.True(t, b.Gallery().Dirty())
}

func TestWaitHonorsContext(t *testing.T) {
	b, _ := newBooth(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSQLiteGallery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.db")
	b, _ := newBooth(t, func(c *Config) {
		c.Mode = ModeSingle
		c.Template = "4x1"
		c.Gallery = GalleryConfig{Backend: "sqlite", Path: path}
	})
	require.NoError(t, b.Shoot())
	_, err := b.Wait(context.Background())
	require.NoError(t, err)
	require.NoError(t, b.Close())

	s, err := blob.NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	g, err := gallery.Open(s)
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())
}
