// Package booth wires a camera, the capture sequence, the editing scene and
// the gallery into one photo booth.
package booth

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/tstromberg/fotoautomat/pkg/assets"
	"github.com/tstromberg/fotoautomat/pkg/blob"
	"github.com/tstromberg/fotoautomat/pkg/capture"
	"github.com/tstromberg/fotoautomat/pkg/download"
	"github.com/tstromberg/fotoautomat/pkg/gallery"
	"github.com/tstromberg/fotoautomat/pkg/layout"
	"github.com/tstromberg/fotoautomat/pkg/scene"
	"github.com/tstromberg/fotoautomat/pkg/session"
	"github.com/tstromberg/fotoautomat/pkg/template"
)

// ErrNoResult is returned when there is nothing to save or download yet.
var ErrNoResult = errors.New("no finished photo")

// Booth is one running photo booth.
type Booth struct {
	cfg     *Config
	cam     *capture.Service
	orch    *session.Orchestrator
	scene   *scene.Scene
	gallery *gallery.Store
	lib     *assets.Library
	saver   *download.Saver
	closer  func() error
	now     func() time.Time
	events  Events

	done chan outcome

	mu   sync.Mutex
	last *session.Result
}

type outcome struct {
	res session.Result
	err error
}

// Events observe a booth. Every field is optional.
type Events struct {
	Tick     func(remaining int)
	Captured func(session.Frame)
	Ready    func(session.Result)
	Saved    func(gallery.Entry)
	Failed   func(error)
}

type options struct {
	sched   session.Scheduler
	now     func() time.Time
	rng     *rand.Rand
	flash   capture.Flasher
	tagger  *download.Tagger
	events  Events
	store   blob.Store
	library *assets.Library
	compose session.Composer
}

// Option customizes New.
type Option func(*options)

// WithScheduler replaces the countdown timer.
func WithScheduler(s session.Scheduler) Option { return func(o *options) { o.sched = s } }

// WithClock sets the time source for captions, gallery timestamps and filenames.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithRand seeds sticker placement.
func WithRand(r *rand.Rand) Option { return func(o *options) { o.rng = r } }

// WithFlasher sets the capture flash cue.
func WithFlasher(f capture.Flasher) Option { return func(o *options) { o.flash = f } }

// WithTagger stamps downloads with metadata.
func WithTagger(t *download.Tagger) Option { return func(o *options) { o.tagger = t } }

// WithEvents sets event callbacks.
func WithEvents(e Events) Option { return func(o *options) { o.events = e } }

// WithStore uses b for the gallery instead of the configured backend.
func WithStore(b blob.Store) Option { return func(o *options) { o.store = b } }

// WithComposer replaces the layout.Compose step for multi-photo templates.
func WithComposer(c session.Composer) Option { return func(o *options) { o.compose = c } }

// WithLibrary shares an asset library, e.g. one kept fresh by assets.Watch.
func WithLibrary(l *assets.Library) Option { return func(o *options) { o.library = l } }

// New builds a booth from c reading frames from src.
func New(c *Config, src capture.Source, opts ...Option) (*Booth, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	o := options{sched: session.RealScheduler{}, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	b := &Booth{
		cfg:    c,
		now:    o.now,
		events: o.events,
		done:   make(chan outcome, 1),
		closer: func() error { return nil },
	}

	copts := []capture.Option{}
	if o.flash != nil {
		copts = append(copts, capture.WithFlasher(o.flash))
	}
	b.cam = capture.New(src, copts...)

	store := o.store
	if store == nil {
		s, err := openStore(c.Gallery)
		if err != nil {
			return nil, fmt.Errorf("gallery store: %w", err)
		}
		store = s
		if sq, ok := s.(*blob.SQLite); ok {
			b.closer = sync.OnceValue(sq.Close)
		}
	}
	g, err := gallery.Open(store, gallery.WithClock(o.now))
	if err != nil {
		return nil, err
	}
	b.gallery = g

	b.lib = o.library
	if b.lib == nil {
		if b.lib, err = assets.NewLibrary(c.AssetDir); err != nil {
			return nil, fmt.Errorf("assets: %w", err)
		}
	}

	sopts := scene.DefaultOptions()
	sopts.MaxWidth, sopts.MaxHeight = c.MaxWidth, c.MaxHeight
	sopts.Padding = c.Padding
	sopts.Multiplier = c.Multiplier
	sopts.Timeout = c.LoadTimeout.Duration
	sopts.Rand = o.rng
	b.scene = scene.New(sopts)

	b.saver = &download.Saver{Dir: c.DownloadDir, Now: o.now, Tagger: o.tagger}

	t, err := template.Lookup(c.Template)
	if err != nil {
		return nil, err
	}
	scfg := session.Config{
		Tick:       time.Second,
		Countdown:  c.Countdown,
		BurstTicks: c.burstTicks(),
		Mirror:     c.Mirror,
	}
	hooks := session.Hooks{
		OnTick:     o.events.Tick,
		OnCapture:  o.events.Captured,
		OnComplete: b.complete,
		OnError:    b.fail,
	}
	compose := session.Composer(b.compose)
	if o.compose != nil {
		compose = o.compose
	}
	b.orch, err = session.New(b.cam, compose, t, scfg, session.WithScheduler(o.sched), session.WithHooks(hooks))
	if err != nil {
		return nil, err
	}
	return b, nil
}

func openStore(g GalleryConfig) (blob.Store, error) {
	if g.Backend == "memory" {
		return blob.NewMemory(g.Quota), nil
	}
	return blob.Open(g.Backend, g.Path)
}

func (b *Booth) compose(ctx context.Context, t template.Template, frames [][]byte) ([]byte, error) {
	return layout.Compose(ctx, t, frames,
		layout.WithBorder(b.cfg.Border),
		layout.WithSpacing(b.cfg.Spacing),
		layout.WithQuality(b.cfg.Quality),
		layout.WithMinLoadRatio(b.cfg.MinLoadRatio),
		layout.WithLoadTimeout(b.cfg.LoadTimeout.Duration),
		layout.WithClock(b.now),
	)
}

// complete puts a finished result into the scene and, for strips, the gallery.
func (b *Booth) complete(res session.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.LoadTimeout.Duration)
	defer cancel()

	if err := b.scene.SetPhoto(ctx, res.Data); err != nil {
		b.orch.Reset()
		b.fail(fmt.Errorf("scene: %w", err))
		return
	}
	if err := b.decorate(ctx); err != nil {
		klog.Warningf("decorations skipped: %v", err)
	}

	b.mu.Lock()
	r := res
	b.last = &r
	b.mu.Unlock()

	if b.events.Ready != nil {
		b.events.Ready(res)
	}
	if b.cfg.AutoSave && res.Multi {
		if _, err := b.save(res.Data, res.Template.ID, 0); err != nil {
			klog.Errorf("auto-save: %v", err)
		}
	}
	b.signal(outcome{res: res})
}

func (b *Booth) fail(err error) {
	klog.Errorf("booth: %v", err)
	if b.events.Failed != nil {
		b.events.Failed(err)
	}
	b.signal(outcome{err: err})
}

// signal keeps only the latest outcome for Wait.
func (b *Booth) signal(o outcome) {
	select {
	case <-b.done:
	default:
	}
	select {
	case b.done <- o:
	default:
	}
}

func (b *Booth) decorate(ctx context.Context) error {
	var errs []error
	if b.cfg.Background != "" {
		if err := b.SetBackground(b.cfg.Background); err != nil {
			errs = append(errs, err)
		}
	}
	if b.cfg.Frame != "" {
		if err := b.SetFrame(ctx, b.cfg.Frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Start opens the camera.
func (b *Booth) Start(ctx context.Context) error {
	return b.cam.Acquire(ctx, b.cfg.Facing)
}

// Shoot starts a sequence in the configured mode.
func (b *Booth) Shoot() error {
	switch b.cfg.Mode {
	case ModeSingle:
		return b.orch.Capture()
	case ModeCountdown:
		return b.orch.StartCountdown()
	default:
		return b.orch.StartBurst()
	}
}

// Wait blocks until the current sequence completes or fails.
func (b *Booth) Wait(ctx context.Context) (session.Result, error) {
	select {
	case o := <-b.done:
		return o.res, o.err
	case <-ctx.Done():
		return session.Result{}, ctx.Err()
	}
}

// Status reports the capture sequence state.
func (b *Booth) Status() session.Status { return b.orch.Status() }

// SelectTemplate switches the layout for the next sequence.
func (b *Booth) SelectTemplate(id string) error {
	t, err := template.Lookup(id)
	if err != nil {
		return err
	}
	return b.orch.SelectTemplate(t)
}

// Retake discards the current result and stickers.
func (b *Booth) Retake() {
	b.orch.Reset()
	b.scene.ClearStickers()
	b.mu.Lock()
	b.last = nil
	b.mu.Unlock()
}

// Scene exposes the editing scene for sticker manipulation.
func (b *Booth) Scene() *scene.Scene { return b.scene }

// Gallery exposes the gallery.
func (b *Booth) Gallery() *gallery.Store { return b.gallery }

// Library exposes the sticker and frame library.
func (b *Booth) Library() *assets.Library { return b.lib }

// AddSticker places a library sticker on the scene.
func (b *Booth) AddSticker(ctx context.Context, id string) (scene.Layer, error) {
	a, err := b.lib.Sticker(id)
	if err != nil {
		return scene.Layer{}, err
	}
	return b.scene.AddSticker(ctx, a)
}

// SetBackground applies a built-in background.
func (b *Booth) SetBackground(id string) error {
	bg, err := assets.BackgroundByID(id)
	if err != nil {
		return err
	}
	return b.scene.ApplyBackground(bg)
}

// SetFrame applies a library frame; "none" removes it.
func (b *Booth) SetFrame(ctx context.Context, id string) error {
	f, err := b.lib.Frame(id)
	if err != nil {
		return err
	}
	return b.scene.ApplyFrame(ctx, f)
}

// Export flattens the scene at the configured multiplier.
func (b *Booth) Export(ctx context.Context) ([]byte, error) {
	return b.scene.Export(ctx)
}

// Save exports the edited scene into the gallery.
func (b *Booth) Save(ctx context.Context) (gallery.Entry, error) {
	res, ok := b.result()
	if !ok {
		return gallery.Entry{}, ErrNoResult
	}
	data, err := b.scene.Export(ctx)
	if err != nil {
		return gallery.Entry{}, err
	}
	return b.save(data, res.Template.ID, b.scene.StickerCount())
}

func (b *Booth) save(data []byte, tmpl string, stickers int) (gallery.Entry, error) {
	e, err := b.gallery.Save(data, &gallery.Metadata{
		HasStickers:  stickers > 0,
		StickerCount: stickers,
		Template:     tmpl,
	})
	if err != nil {
		// The entry is still in memory; Flush retries.
		return e, err
	}
	klog.Infof("saved %s to gallery (%d total)", e.ID, b.gallery.Len())
	if b.events.Saved != nil {
		b.events.Saved(e)
	}
	return e, nil
}

// Download writes the edited scene to the download directory.
func (b *Booth) Download(ctx context.Context) (string, error) {
	res, ok := b.result()
	if !ok {
		return "", ErrNoResult
	}
	data, err := b.scene.Export(ctx)
	if err != nil {
		return "", err
	}
	return b.saver.Save(data, res.Multi)
}

func (b *Booth) result() (session.Result, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last == nil {
		return session.Result{}, false
	}
	return *b.last, true
}

// Close stops the sequence, releases the camera and flushes the gallery.
func (b *Booth) Close() error {
	b.orch.Reset()
	b.cam.Release()
	b.scene.Dispose()
	var errs []error
	if b.gallery.Dirty() {
		errs = append(errs, b.gallery.Flush())
	}
	errs = append(errs, b.closer())
	return errors.Join(errs...)
}
