// Package capture wraps a live frame source and turns its current frame
// into an encoded still.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"k8s.io/klog/v2"
)

var (
	// ErrCameraUnavailable means the source could not be opened.
	ErrCameraUnavailable = errors.New("camera unavailable")
	// ErrCaptureFailed means no frame could be taken from an open source.
	ErrCaptureFailed = errors.New("capture failed")
)

// Facing is the preferred camera direction.
type Facing string

const (
	User        Facing = "user"
	Environment Facing = "environment"
)

// Source opens live frame streams. It is the boundary to camera hardware.
type Source interface {
	Open(ctx context.Context, facing Facing) (Stream, error)
}

// Stream yields the current frame of an open source.
type Stream interface {
	Frame() (image.Image, error)
	Close() error
}

// Flasher shows a brief visual cue after a successful snapshot.
type Flasher interface {
	Flash()
}

// FlashFunc adapts a function to Flasher.
type FlashFunc func()

// Flash calls f.
func (f FlashFunc) Flash() { f() }

// DefaultQuality is the JPEG quality of snapshots.
const DefaultQuality = 90

// Service owns the single live stream.
type Service struct {
	source  Source
	flash   Flasher
	quality int

	mu     sync.Mutex
	stream Stream
	gen    uint64
}

// Option customizes a Service.
type Option func(*Service)

// WithFlasher sets the snapshot cue.
func WithFlasher(f Flasher) Option { return func(s *Service) { s.flash = f } }

// WithQuality sets snapshot JPEG quality.
func WithQuality(q int) Option { return func(s *Service) { s.quality = q } }

// New returns a Service reading from src.
func New(src Source, opts ...Option) *Service {
	s := &Service{source: src, quality: DefaultQuality}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Acquire opens the source. If Release is called while the open is still
// in flight, the late stream is closed on arrival and Acquire returns nil
// without binding it.
func (s *Service) Acquire(ctx context.Context, facing Facing) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	old := s.stream
	s.stream = nil
	s.mu.Unlock()
	closeStream(old)

	st, err := s.source.Open(ctx, facing)
	if err != nil {
		if errors.Is(err, ErrCameraUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		klog.Infof("camera acquisition superseded; closing late stream")
		closeStream(st)
		return nil
	}
	s.stream = st
	klog.Infof("camera acquired (facing %s)", facing)
	return nil
}

// Release stops the stream. It is safe to call at any time.
func (s *Service) Release() {
	s.mu.Lock()
	s.gen++
	st := s.stream
	s.stream = nil
	s.mu.Unlock()
	if st != nil {
		closeStream(st)
		klog.Infof("camera released")
	}
}

// Ready reports whether a stream is bound.
func (s *Service) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}

// Snapshot encodes the current frame as JPEG at native resolution,
// optionally mirrored horizontally.
func (s *Service) Snapshot(mirror bool) ([]byte, error) {
	s.mu.Lock()
	if s.stream == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: stream not ready", ErrCaptureFailed)
	}
	img, err := s.stream.Frame()
	s.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty frame", ErrCaptureFailed)
	}
	if mirror {
		img = transform.FlipH(img)
	}

	var buf bytes.Buffer
	if err := imgio.JPEGEncoder(s.quality)(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: encode: %w", ErrCaptureFailed, err)
	}
	s.cue()
	return buf.Bytes(), nil
}

func (s *Service) cue() {
	if s.flash == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				klog.Warningf("flash cue panicked: %v", r)
			}
		}()
		s.flash.Flash()
	}()
}

func closeStream(st Stream) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		klog.Warningf("close stream: %v", err)
	}
}
