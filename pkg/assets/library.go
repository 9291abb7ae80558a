package assets

import (
	"fmt"
	"sync"

	"k8s.io/klog/v2"
)

// Library is the set of stickers and frames available to a booth: the
// built-ins plus whatever was found in an optional asset directory.
type Library struct {
	root string

	mu       sync.RWMutex
	stickers []Asset
	frames   []Asset
}

// NewLibrary returns a library rooted at dir. An empty dir yields only the
// built-in assets.
func NewLibrary(dir string) (*Library, error) {
	l := &Library{root: dir}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Root is the scanned asset directory, if any.
func (l *Library) Root() string { return l.root }

// Reload rescans the asset directory.
func (l *Library) Reload() error {
	st := Stickers()
	fr := Frames()
	if l.root != "" {
		found, err := Scan(l.root)
		if err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		for _, a := range found {
			if a.Kind == KindFrame {
				fr = append(fr, a)
				continue
			}
			st = append(st, a)
		}
	}

	l.mu.Lock()
	l.stickers, l.frames = st, fr
	l.mu.Unlock()
	klog.Infof("asset library: %d stickers, %d frames", len(st), len(fr))
	return nil
}

// Stickers lists available stickers.
func (l *Library) Stickers() []Asset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Asset(nil), l.stickers...)
}

// Frames lists available frames, starting with "none".
func (l *Library) Frames() []Asset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Asset(nil), l.frames...)
}

// Sticker finds a sticker by id.
func (l *Library) Sticker(id string) (Asset, error) {
	return find(l.Stickers(), id, "sticker")
}

// Frame finds a frame by id.
func (l *Library) Frame(id string) (Asset, error) {
	return find(l.Frames(), id, "frame")
}

func find(as []Asset, id, what string) (Asset, error) {
	for _, a := range as {
		if a.ID == id {
			return a, nil
		}
	}
	return Asset{}, fmt.Errorf("%w: %s %q", ErrNotFound, what, id)
}
