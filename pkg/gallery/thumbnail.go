package gallery

import (
	"bytes"
	"context"
	"fmt"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"k8s.io/klog/v2"

	"github.com/tstromberg/fotoautomat/pkg/imgload"
)

// ThumbOpts are thumbnail options.
type ThumbOpts struct {
	Y       int
	Quality int
}

// DefaultThumb matches the gallery grid.
var DefaultThumb = ThumbOpts{Y: 180, Quality: 75}

// Thumbnail returns a JPEG of entry id scaled to t.Y pixels high. Results
// are cached per entry.
func (s *Store) Thumbnail(ctx context.Context, id string, t ThumbOpts) ([]byte, error) {
	key := fmt.Sprintf("%s@%d", id, t.Y)
	s.mu.Lock()
	if b, ok := s.thumbs[key]; ok {
		s.mu.Unlock()
		return b, nil
	}
	s.mu.Unlock()

	e, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	img, err := imgload.Load(ctx, e.ImageData, 0)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	b := img.Bounds()
	y := t.Y
	if y <= 0 || y > b.Dy() {
		y = b.Dy()
	}
	x := max(1, int(float64(b.Dx())*float64(y)/float64(b.Dy())))
	klog.V(1).Infof("thumbnail %s: %dx%d -> %dx%d", id, b.Dx(), b.Dy(), x, y)

	rimg := transform.Resize(img, x, y, transform.Lanczos)
	var buf bytes.Buffer
	if err := imgio.JPEGEncoder(t.Quality)(&buf, rimg); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	s.mu.Lock()
	s.thumbs[key] = buf.Bytes()
	s.mu.Unlock()
	return buf.Bytes(), nil
}
