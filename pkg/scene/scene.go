// Package scene is the editable preview: an ordered stack of background,
// photo, frame, and sticker layers that can be flattened into one image.
package scene

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"github.com/gogpu/gg"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/tstromberg/fotoautomat/pkg/assets"
	"github.com/tstromberg/fotoautomat/pkg/imgload"
)

var (
	// ErrNoPhoto is returned by Export when no photo has been set.
	ErrNoPhoto = errors.New("no photo in scene")
	// ErrDisposed is returned by any operation after Dispose.
	ErrDisposed = errors.New("scene disposed")
	// ErrNoSticker is returned when a sticker id is not in the scene.
	ErrNoSticker = errors.New("no such sticker")
)

const (
	minStickerScale = 0.1
	maxStickerScale = 5
)

// Options controls canvas sizing and export.
type Options struct {
	MaxWidth   int
	MaxHeight  int
	Padding    int     // photo inset when the scene is decorated
	Multiplier float64 // export supersampling factor
	Timeout    time.Duration
	Rand       *rand.Rand
}

// DefaultOptions returns the standard preview geometry.
func DefaultOptions() Options {
	return Options{
		MaxWidth:   384,
		MaxHeight:  600,
		Padding:    40,
		Multiplier: 2,
		Timeout:    imgload.DefaultTimeout,
	}
}

// Scene owns the layer stack. All methods are safe for concurrent use;
// mutations are serialized and re-establish the stacking order.
type Scene struct {
	opts Options

	mu         sync.Mutex
	width      int
	height     int
	fill       gg.RGBA
	background *assets.Background
	decorated  bool
	photo      image.Image
	layers     []*Layer
	disposed   bool
}

// New returns an empty scene with a square placeholder canvas.
func New(opts Options) *Scene {
	d := DefaultOptions()
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = d.MaxWidth
	}
	if opts.MaxHeight <= 0 {
		opts.MaxHeight = d.MaxHeight
	}
	if opts.Padding < 0 {
		opts.Padding = 0
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = d.Multiplier
	}
	if opts.Timeout <= 0 {
		opts.Timeout = d.Timeout
	}
	return &Scene{
		opts:   opts,
		width:  opts.MaxWidth,
		height: opts.MaxWidth,
		fill:   gg.White,
	}
}

// Size returns the canvas dimensions at 1×.
func (s *Scene) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Layers returns a snapshot of the layer stack, bottom first.
func (s *Scene) Layers() []Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Layer, len(s.layers))
	for i, l := range s.layers {
		out[i] = *l
	}
	return out
}

// StickerCount is the number of sticker layers.
func (s *Scene) StickerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.layers {
		if l.Kind == KindSticker {
			n++
		}
	}
	return n
}

// HasPhoto reports whether a photo layer exists.
func (s *Scene) HasPhoto() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.photo != nil
}

// SetPhoto decodes data and makes it the photo layer, resizing the canvas
// to fit it.
func (s *Scene) SetPhoto(ctx context.Context, data []byte) error {
	img, err := imgload.Load(ctx, data, s.opts.Timeout)
	if err != nil {
		return fmt.Errorf("photo: %w", err)
	}
	return s.SetPhotoImage(img)
}

// SetPhotoImage is SetPhoto for an already decoded image.
func (s *Scene) SetPhotoImage(img image.Image) error {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return fmt.Errorf("photo: %w: empty image", imgload.ErrAssetLoadFailed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	s.photo = img
	klog.V(1).Infof("scene photo set: %dx%d", b.Dx(), b.Dy())
	return s.relayout()
}

// ApplyBackground replaces the background. Solid colors become the canvas
// fill; gradients and patterns become a background layer.
func (s *Scene) ApplyBackground(bg assets.Background) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}

	if bg.Kind != assets.Solid {
		// Rasterize first so a bad background leaves the scene untouched.
		if _, err := bg.Rasterize(s.width, s.height); err != nil {
			return fmt.Errorf("%w: %w", imgload.ErrAssetLoadFailed, err)
		}
	}
	s.background = &bg
	if bg.Kind == assets.Solid {
		s.fill = bg.Fill()
	} else {
		s.fill = gg.White
	}
	return s.relayout()
}

// ApplyFrame replaces the frame layer. The "none" frame removes it.
func (s *Scene) ApplyFrame(ctx context.Context, frame assets.Asset) error {
	if frame.None() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.disposed {
			return ErrDisposed
		}
		s.remove(func(l *Layer) bool { return l.Kind == KindFrame })
		return s.relayout()
	}

	img, err := frame.Load(ctx, s.opts.Timeout)
	if err != nil {
		return fmt.Errorf("frame %s: %w", frame.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	s.remove(func(l *Layer) bool { return l.Kind == KindFrame })
	s.layers = append(s.layers, &Layer{Kind: KindFrame, AssetID: frame.ID, Image: img, Scale: 1})
	return s.relayout()
}

// AddSticker loads asset and places it at a pseudo-random spot on the
// canvas. Nothing is added if the asset fails to load.
func (s *Scene) AddSticker(ctx context.Context, asset assets.Asset) (Layer, error) {
	img, err := asset.Load(ctx, s.opts.Timeout)
	if err != nil {
		return Layer{}, fmt.Errorf("sticker %s: %w", asset.ID, err)
	}
	b := img.Bounds()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return Layer{}, ErrDisposed
	}

	l := &Layer{
		Kind:       KindSticker,
		ID:         uuid.NewString(),
		AssetID:    asset.ID,
		Image:      img,
		Width:      float64(b.Dx()),
		Height:     float64(b.Dy()),
		Scale:      0.8,
		Selectable: true,
	}
	l.X = s.clampX(l, 100+s.random()*100)
	l.Y = s.clampY(l, 100+s.random()*100)
	s.layers = append(s.layers, l)
	normalize(s.layers)
	klog.V(1).Infof("added sticker %s (%s) at %.0f,%.0f", l.ID, asset.ID, l.X, l.Y)
	return *l, nil
}

// RemoveSticker deletes the sticker with id. Removing an absent sticker is
// a no-op and reports false.
func (s *Scene) RemoveSticker(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(func(l *Layer) bool { return l.Kind == KindSticker && l.ID == id }) > 0
}

// ClearStickers removes every sticker and returns how many were removed.
func (s *Scene) ClearStickers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(func(l *Layer) bool { return l.Kind == KindSticker })
}

// MoveSticker sets a sticker's top-left corner, keeping it on the canvas.
func (s *Scene) MoveSticker(id string, x, y float64) error {
	return s.updateSticker(id, func(l *Layer) {
		l.X = s.clampX(l, x)
		l.Y = s.clampY(l, y)
	})
}

// ScaleSticker sets a sticker's scale factor about its center.
func (s *Scene) ScaleSticker(id string, scale float64) error {
	scale = math.Max(minStickerScale, math.Min(maxStickerScale, scale))
	return s.updateSticker(id, func(l *Layer) {
		cx, cy := l.Center()
		l.Scale = scale
		w, h := l.Size()
		l.X, l.Y = cx-w/2, cy-h/2
	})
}

// RotateSticker sets a sticker's rotation in degrees.
func (s *Scene) RotateSticker(id string, degrees float64) error {
	return s.updateSticker(id, func(l *Layer) {
		l.Rotation = math.Mod(degrees, 360)
	})
}

// RaiseSticker moves a sticker above all other stickers.
func (s *Scene) RaiseSticker(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	for i, l := range s.layers {
		if l.Kind == KindSticker && l.ID == id {
			s.layers = append(append(s.layers[:i:i], s.layers[i+1:]...), l)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNoSticker, id)
}

// StickerAt returns the topmost sticker whose unrotated box contains x,y.
func (s *Scene) StickerAt(x, y float64) (Layer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.layers) - 1; i >= 0; i-- {
		l := s.layers[i]
		if l.Kind != KindSticker {
			break
		}
		w, h := l.Size()
		if x >= l.X && x <= l.X+w && y >= l.Y && y <= l.Y+h {
			return *l, true
		}
	}
	return Layer{}, false
}

// Dispose drops every layer and image. It may be called more than once.
func (s *Scene) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.layers = nil
	s.photo = nil
	s.background = nil
	s.disposed = true
	klog.V(1).Infof("scene disposed")
}

func (s *Scene) updateSticker(id string, fn func(*Layer)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	for _, l := range s.layers {
		if l.Kind == KindSticker && l.ID == id {
			fn(l)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNoSticker, id)
}

// remove drops matching layers and returns how many were removed.
func (s *Scene) remove(match func(*Layer) bool) int {
	kept := s.layers[:0]
	n := 0
	for _, l := range s.layers {
		if match(l) {
			n++
			continue
		}
		kept = append(kept, l)
	}
	clear(s.layers[len(kept):])
	s.layers = kept
	return n
}

func (s *Scene) random() float64 {
	if s.opts.Rand != nil {
		return s.opts.Rand.Float64()
	}
	return rand.Float64()
}

func (s *Scene) clampX(l *Layer, x float64) float64 {
	w, _ := l.Size()
	return math.Max(0, math.Min(x, float64(s.width)-w))
}

func (s *Scene) clampY(l *Layer, y float64) float64 {
	_, h := l.Size()
	return math.Max(0, math.Min(y, float64(s.height)-h))
}

// relayout recomputes canvas size and the geometry of the background,
// photo, and frame layers. Callers hold s.mu.
func (s *Scene) relayout() error {
	if s.photo != nil {
		b := s.photo.Bounds()
		fit := math.Min(float64(s.opts.MaxWidth)/float64(b.Dx()), float64(s.opts.MaxHeight)/float64(b.Dy()))
		s.width = max(1, int(math.Round(float64(b.Dx())*fit)))
		s.height = max(1, int(math.Round(float64(b.Dy())*fit)))
	}

	hasFrame := false
	for _, l := range s.layers {
		switch l.Kind {
		case KindFrame:
			hasFrame = true
			l.X, l.Y = 0, 0
			l.Width, l.Height = float64(s.width), float64(s.height)
		case KindSticker:
			// Keep stickers on a canvas that may have shrunk.
			l.X, l.Y = s.clampX(l, l.X), s.clampY(l, l.Y)
		}
	}
	s.decorated = hasFrame || (s.background != nil && s.background.Decorates())

	s.remove(func(l *Layer) bool { return l.Kind == KindBackground })
	if bg := s.background; bg != nil && bg.Kind != assets.Solid {
		img, err := bg.Rasterize(s.width, s.height)
		if err != nil {
			return fmt.Errorf("%w: %w", imgload.ErrAssetLoadFailed, err)
		}
		s.layers = append(s.layers, &Layer{
			Kind: KindBackground, AssetID: bg.ID, Image: img,
			Width: float64(s.width), Height: float64(s.height), Scale: 1,
		})
	}

	s.remove(func(l *Layer) bool { return l.Kind == KindPhoto })
	if s.photo != nil {
		s.layers = append(s.layers, s.photoLayer())
	}

	normalize(s.layers)
	return nil
}

func (s *Scene) photoLayer() *Layer {
	b := s.photo.Bounds()
	cw, ch := float64(s.width), float64(s.height)
	l := &Layer{Kind: KindPhoto, Image: s.photo, Width: cw, Height: ch, Scale: 1}
	if !s.decorated {
		return l
	}

	pad := float64(s.opts.Padding)
	availW, availH := math.Max(1, cw-2*pad), math.Max(1, ch-2*pad)
	fit := math.Min(availW/float64(b.Dx()), availH/float64(b.Dy()))
	l.Width, l.Height = float64(b.Dx())*fit, float64(b.Dy())*fit
	l.X, l.Y = (cw-l.Width)/2, (ch-l.Height)/2
	return l
}

// Render flattens the scene at the given pixel density.
func (s *Scene) Render(multiplier float64) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil, ErrDisposed
	}
	return s.flatten(multiplier)
}

// Export flattens the scene at the export multiplier and encodes it as PNG.
func (s *Scene) Export(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil, ErrDisposed
	}
	if s.photo == nil {
		return nil, ErrNoPhoto
	}
	img, err := s.flatten(s.opts.Multiplier)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imgio.PNGEncoder()(&buf, img); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Scene) flatten(m float64) (image.Image, error) {
	if m <= 0 {
		m = 1
	}
	dc := gg.NewContext(int(math.Round(float64(s.width)*m)), int(math.Round(float64(s.height)*m)))
	defer func() {
		if err := dc.Close(); err != nil {
			klog.Warningf("close canvas: %v", err)
		}
	}()
	dc.ClearWithColor(s.fill)

	for _, l := range s.layers {
		img := l.Image
		w, h := l.Size()
		x, y := l.X, l.Y
		if l.Kind == KindSticker && l.Rotation != 0 {
			src := img.Bounds()
			img = transform.Rotate(img, l.Rotation, &transform.RotationOptions{ResizeBounds: true})
			rb := img.Bounds()
			cx, cy := l.Center()
			w = float64(rb.Dx()) * w / float64(src.Dx())
			h = float64(rb.Dy()) * h / float64(src.Dy())
			x, y = cx-w/2, cy-h/2
		}
		dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
			X:         x * m,
			Y:         y * m,
			DstWidth:  w * m,
			DstHeight: h * m,
		})
	}
	return dc.Image(), nil
}
