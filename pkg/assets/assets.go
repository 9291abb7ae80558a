// Package assets holds the decorations a scene can use: backgrounds,
// frames, and stickers. Built-ins are vector painters; raster assets can be
// added from an asset directory.
package assets

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/gogpu/gg"
	"k8s.io/klog/v2"

	"github.com/tstromberg/fotoautomat/pkg/imgload"
)

// ErrNotFound is returned for unknown asset ids.
var ErrNotFound = errors.New("asset not found")

// Kind is the role an asset plays in a scene.
type Kind string

const (
	KindSticker Kind = "sticker"
	KindFrame   Kind = "frame"
)

// Vector assets are rasterized at these sizes before they enter a scene.
var (
	StickerRaster = image.Pt(200, 200)
	FrameRaster   = image.Pt(400, 500)
)

// Painter draws a vector asset into a w×h area of dc.
type Painter func(dc *gg.Context, w, h float64) error

// Asset is a sticker or frame. Exactly one of Paint, Data or Path is set.
type Asset struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Kind     Kind   `json:"kind"`

	Paint Painter `json:"-"`
	Data  []byte  `json:"-"`
	Path  string  `json:"path,omitempty"`
}

// None reports whether the asset is the empty "none" frame.
func (a Asset) None() bool {
	return a.ID == "" || a.ID == "none"
}

// Vector reports whether the asset is drawn rather than decoded.
func (a Asset) Vector() bool {
	return a.Paint != nil
}

// Load returns the asset as a bitmap. Vector assets are rasterized at the
// fixed size for their kind; raster assets are decoded within timeout.
func (a Asset) Load(ctx context.Context, timeout time.Duration) (image.Image, error) {
	switch {
	case a.Paint != nil:
		size := StickerRaster
		if a.Kind == KindFrame {
			size = FrameRaster
		}
		img, err := a.Rasterize(size.X, size.Y)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", imgload.ErrAssetLoadFailed, err)
		}
		return img, nil
	case len(a.Data) > 0:
		return imgload.Load(ctx, a.Data, timeout)
	case a.Path != "":
		return imgload.LoadFile(ctx, a.Path, timeout)
	default:
		return nil, fmt.Errorf("%w: asset %q has no content", imgload.ErrAssetLoadFailed, a.ID)
	}
}

// Rasterize paints a vector asset onto a transparent w×h bitmap.
func (a Asset) Rasterize(w, h int) (image.Image, error) {
	if a.Paint == nil {
		return nil, fmt.Errorf("asset %q is not a vector", a.ID)
	}
	dc := gg.NewContext(w, h)
	defer closeCanvas(dc)
	dc.ClearWithColor(gg.Transparent)
	if err := a.Paint(dc, float64(w), float64(h)); err != nil {
		return nil, fmt.Errorf("paint %s: %w", a.ID, err)
	}
	return dc.Image(), nil
}

func closeCanvas(dc *gg.Context) {
	if err := dc.Close(); err != nil {
		klog.Warningf("close canvas: %v", err)
	}
}

// fill and stroke are shorthands for painters that build several shapes.
func fill(dc *gg.Context, hex string) error {
	dc.SetHexColor(hex)
	return dc.Fill()
}

func stroke(dc *gg.Context, hex string, width float64) error {
	dc.SetHexColor(hex)
	dc.SetLineWidth(width)
	return dc.Stroke()
}

// steps runs painter steps in order, stopping at the first error.
func steps(fns ...func() error) error {
	for _, fn := range fns {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}
