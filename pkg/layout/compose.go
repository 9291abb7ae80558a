package layout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"
	"k8s.io/klog/v2"

	"github.com/tstromberg/fotoautomat/pkg/imgload"
	"github.com/tstromberg/fotoautomat/pkg/template"
)

// ErrInsufficientImages is returned when too few frames decode to build a strip.
var ErrInsufficientImages = errors.New("insufficient images")

const (
	// DefaultQuality is the JPEG quality of composed strips.
	DefaultQuality = 85
	// DefaultMinLoadRatio is the share of frames that must decode.
	DefaultMinLoadRatio = 0.75

	photoBorder   = 2
	captionSize   = 12
	captionLayout = "2006-01-02 15:04"
)

type options struct {
	border   int
	spacing  int
	quality  int
	minRatio float64
	timeout  time.Duration
	now      func() time.Time
}

// Option customizes Compose.
type Option func(*options)

// WithBorder sets the outer border and margin width.
func WithBorder(px int) Option { return func(o *options) { o.border = px } }

// WithSpacing sets the gap between photos.
func WithSpacing(px int) Option { return func(o *options) { o.spacing = px } }

// WithQuality sets the JPEG quality (1-100).
func WithQuality(q int) Option { return func(o *options) { o.quality = q } }

// WithMinLoadRatio sets the minimum share of frames that must decode.
func WithMinLoadRatio(r float64) Option { return func(o *options) { o.minRatio = r } }

// WithLoadTimeout bounds the decode of each frame.
func WithLoadTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// WithClock sets the time source for the caption.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

var (
	faceOnce   sync.Once
	faceSource *text.FontSource
	faceErr    error
)

func captionFace() (text.Face, error) {
	faceOnce.Do(func() {
		faceSource, faceErr = text.NewFontSource(goregular.TTF)
	})
	if faceErr != nil {
		return nil, faceErr
	}
	return faceSource.Face(captionSize), nil
}

// Compose decodes frames and draws them into t's layout. The result is a
// JPEG. Missing frames are back-filled with the last decoded one as long as
// the configured share of frames decoded.
func Compose(ctx context.Context, t template.Template, frames [][]byte, opts ...Option) ([]byte, error) {
	o := options{
		border:   DefaultBorder,
		spacing:  DefaultSpacing,
		quality:  DefaultQuality,
		minRatio: DefaultMinLoadRatio,
		timeout:  imgload.DefaultTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	if len(frames) > t.PhotoCount {
		frames = frames[:t.PhotoCount]
	}
	results, err := imgload.LoadAll(ctx, frames, o.timeout)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	imgs := make([]image.Image, 0, t.PhotoCount)
	for _, r := range results {
		if r.Err == nil {
			imgs = append(imgs, r.Image)
		}
	}
	ratio := float64(len(imgs)) / float64(t.PhotoCount)
	if len(imgs) == 0 || ratio < o.minRatio {
		return nil, fmt.Errorf("%w: %d of %d frames decoded", ErrInsufficientImages, len(imgs), t.PhotoCount)
	}
	if missing := t.PhotoCount - len(imgs); missing > 0 {
		klog.Warningf("back-filling %d of %d slots with the last decoded frame", missing, t.PhotoCount)
		last := imgs[len(imgs)-1]
		for len(imgs) < t.PhotoCount {
			imgs = append(imgs, last)
		}
	}

	first := imgs[0].Bounds()
	g := Geometry{Width: first.Dx(), Height: first.Dy(), Border: o.border, Spacing: o.spacing}
	return draw(t, g, imgs, o)
}

func draw(t template.Template, g Geometry, imgs []image.Image, o options) ([]byte, error) {
	cw, ch := CanvasSize(t, g)
	dc := gg.NewContext(cw, ch)
	defer func() {
		if err := dc.Close(); err != nil {
			klog.Warningf("close canvas: %v", err)
		}
	}()
	dc.ClearWithColor(gg.White)

	for i, r := range Placements(t, g) {
		dc.DrawImageEx(gg.ImageBufFromImage(imgs[i]), gg.DrawImageOptions{
			X:         float64(r.Min.X),
			Y:         float64(r.Min.Y),
			DstWidth:  float64(r.Dx()),
			DstHeight: float64(r.Dy()),
		})
		if !t.HasBorders {
			continue
		}
		dc.SetHexColor("#333333")
		dc.SetLineWidth(photoBorder)
		dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
		if err := dc.Stroke(); err != nil {
			return nil, fmt.Errorf("photo border: %w", err)
		}
	}

	if g.Border > 0 {
		half := float64(g.Border) / 2
		dc.SetRGB(0, 0, 0)
		dc.SetLineWidth(float64(g.Border))
		dc.DrawRectangle(half, half, float64(cw)-float64(g.Border), float64(ch)-float64(g.Border))
		if err := dc.Stroke(); err != nil {
			return nil, fmt.Errorf("outer border: %w", err)
		}
	}

	if err := caption(dc, o.now().Format(captionLayout), g.Border, ch); err != nil {
		klog.Warningf("caption: %v", err)
	}

	var buf bytes.Buffer
	if err := dc.EncodeJPEG(&buf, o.quality); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

func caption(dc *gg.Context, s string, border, height int) error {
	face, err := captionFace()
	if err != nil {
		return err
	}
	dc.SetFont(face)
	dc.SetHexColor("#666666")
	dc.DrawString(s, float64(border+4), float64(height-2))
	return nil
}
