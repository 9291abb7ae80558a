package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"github.com/karrick/godirwalk"
	"golang.org/x/image/font/gofont/goregular"
	"k8s.io/klog/v2"

	"github.com/tstromberg/fotoautomat/pkg/imgload"
)

// DirSource simulates a camera by cycling through the images in a
// directory tree, in lexical order.
type DirSource struct {
	Root    string
	Timeout time.Duration
}

// Open lists the images under Root.
func (d DirSource) Open(_ context.Context, _ Facing) (Stream, error) {
	paths := []string{}
	err := godirwalk.Walk(d.Root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if strings.HasPrefix(filepath.Base(path), ".") && path != d.Root {
				if de.IsDir() {
					return godirwalk.SkipThis
				}
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".jpg", ".jpeg", ".png", ".gif", ".webp":
				paths = append(paths, path)
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no frames in %s", ErrCameraUnavailable, d.Root)
	}
	klog.Infof("frame source %s: %d frames", d.Root, len(paths))
	return &dirStream{paths: paths, timeout: d.Timeout}, nil
}

type dirStream struct {
	mu      sync.Mutex
	paths   []string
	next    int
	timeout time.Duration
	closed  bool
}

func (s *dirStream) Frame() (image.Image, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.New("stream closed")
	}
	path := s.paths[s.next%len(s.paths)]
	s.next++
	s.mu.Unlock()

	klog.V(1).Infof("frame from %s", path)
	return imgload.LoadFile(context.Background(), path, s.timeout)
}

func (s *dirStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// TestPattern is a synthetic source used when no camera is present.
type TestPattern struct {
	Width, Height int
}

// Open always succeeds.
func (p TestPattern) Open(_ context.Context, _ Facing) (Stream, error) {
	w, h := p.Width, p.Height
	if w <= 0 || h <= 0 {
		w, h = 400, 300
	}
	return &patternStream{width: w, height: h}, nil
}

type patternStream struct {
	mu     sync.Mutex
	width  int
	height int
	n      int
}

func (s *patternStream) Frame() (image.Image, error) {
	s.mu.Lock()
	s.n++
	n := s.n
	s.mu.Unlock()

	w, h := float64(s.width), float64(s.height)
	dc := gg.NewContext(s.width, s.height)
	defer func() {
		if err := dc.Close(); err != nil {
			klog.Warningf("close canvas: %v", err)
		}
	}()
	dc.SetFillBrush(gg.NewLinearGradientBrush(0, 0, w, h).
		AddColorStop(0, gg.Hex("#ff6b6b")).
		AddColorStop(1, gg.Hex("#4ecdc4")))
	dc.DrawRectangle(0, 0, w, h)
	if err := dc.Fill(); err != nil {
		return nil, fmt.Errorf("fill: %w", err)
	}

	if src, err := text.NewFontSource(goregular.TTF); err == nil {
		dc.SetFont(src.Face(20))
		dc.SetHexColor("#ffffff")
		dc.DrawStringAnchored(fmt.Sprintf("Test pattern #%d", n), w/2, h/2, 0.5, 0.5)
	}
	return dc.Image(), nil
}

func (s *patternStream) Close() error { return nil }

// Fallback opens Primary and, if it is unavailable, Secondary.
type Fallback struct {
	Primary   Source
	Secondary Source
}

// Open tries the sources in order.
func (f Fallback) Open(ctx context.Context, facing Facing) (Stream, error) {
	st, err := f.Primary.Open(ctx, facing)
	if err == nil {
		return st, nil
	}
	klog.Warningf("primary source unavailable, using fallback: %v", err)
	return f.Secondary.Open(ctx, facing)
}
