// Package gallery persists finished photos, most recent first.
package gallery

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/tstromberg/fotoautomat/pkg/blob"
)

// Key is the blob key the entry list is stored under.
const Key = "galleryPhotos"

var (
	// ErrPersistence wraps any failure of the backing store.
	ErrPersistence = errors.New("gallery persistence failed")
	// ErrNotFound is returned for unknown entry ids.
	ErrNotFound = errors.New("gallery entry not found")
)

// Metadata describes how an entry was made.
type Metadata struct {
	HasStickers  bool   `json:"hasStickers"`
	StickerCount int    `json:"stickerCount"`
	Template     string `json:"template,omitempty"`
}

// Entry is one saved image. Entries are never modified after Save.
type Entry struct {
	ID        string    `json:"id"`
	ImageData []byte    `json:"imageData"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

// Store is the gallery. The whole list is written on every change; the
// last writer wins.
type Store struct {
	blob blob.Store
	now  func() time.Time

	mu      sync.Mutex
	entries []Entry
	thumbs  map[string][]byte
	dirty   bool
}

// Option customizes a Store.
type Option func(*Store)

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// Open loads the gallery from b. A missing key is an empty gallery.
func Open(b blob.Store, opts ...Option) (*Store, error) {
	s := &Store{blob: b, now: time.Now, thumbs: map[string][]byte{}}
	for _, o := range opts {
		o(s)
	}

	raw, err := b.Get(Key)
	switch {
	case errors.Is(err, blob.ErrNotFound):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("%w: load: %w", ErrPersistence, err)
	}
	if err := json.Unmarshal([]byte(raw), &s.entries); err != nil {
		return nil, fmt.Errorf("%w: parse: %w", ErrPersistence, err)
	}
	klog.Infof("gallery loaded: %d entries", len(s.entries))
	return s, nil
}

// Save prepends a new entry and persists the list. If persistence fails
// the entry stays in memory, the error wraps ErrPersistence, and Flush can
// retry.
func (s *Store) Save(data []byte, meta *Metadata) (Entry, error) {
	if len(data) == 0 {
		return Entry{}, errors.New("empty image")
	}
	e := Entry{
		ID:        uuid.NewString(),
		ImageData: append([]byte(nil), data...),
		Timestamp: s.now(),
	}
	if meta != nil {
		m := *meta
		e.Metadata = &m
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]Entry{e}, s.entries...)
	klog.V(1).Infof("gallery save %s (%d bytes)", e.ID, len(data))
	return e, s.persist()
}

// List returns all entries, most recent first.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// Len is the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Get returns the entry with id.
func (s *Store) Get(id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Delete removes the entry with id and persists the list.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.ID != id {
			continue
		}
		s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
		for k := range s.thumbs {
			if strings.HasPrefix(k, id+"@") {
				delete(s.thumbs, k)
			}
		}
		return s.persist()
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Clear empties the gallery.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.thumbs = map[string][]byte{}
	if err := s.blob.Remove(Key); err != nil {
		s.dirty = true
		return fmt.Errorf("%w: clear: %w", ErrPersistence, err)
	}
	s.dirty = false
	return nil
}

// Dirty reports whether memory holds changes that failed to persist.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Flush writes the in-memory list to the store.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist()
}

func (s *Store) persist() error {
	raw, err := json.Marshal(s.entries)
	if err != nil {
		s.dirty = true
		return fmt.Errorf("%w: encode: %w", ErrPersistence, err)
	}
	if err := s.blob.Set(Key, string(raw)); err != nil {
		s.dirty = true
		klog.Errorf("gallery persist failed (%d entries in memory): %v", len(s.entries), err)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.dirty = false
	return nil
}
