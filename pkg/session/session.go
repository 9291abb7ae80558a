// Package session sequences captures for a template: countdown-gated
// singles and timed bursts, followed by composition.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/tstromberg/fotoautomat/pkg/template"
)

// State of the capture sequence.
type State int

const (
	Idle State = iota
	CountdownPending
	BurstCapturing
	Processing
	Complete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CountdownPending:
		return "countdown"
	case BurstCapturing:
		return "burst"
	case Processing:
		return "processing"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrBusy is returned when a sequence is started while another is running.
var ErrBusy = errors.New("capture sequence already running")

// Snapshotter takes one still. *capture.Service satisfies it.
type Snapshotter interface {
	Snapshot(mirror bool) ([]byte, error)
}

// Composer combines a template's worth of frames into one image.
type Composer func(ctx context.Context, t template.Template, frames [][]byte) ([]byte, error)

// Frame is one captured still.
type Frame struct {
	Data  []byte
	Index int
}

// Result is a finished photo or strip.
type Result struct {
	Data     []byte
	Template template.Template
	Multi    bool
	Frames   int
}

// Hooks observe the sequence. They run outside the orchestrator's lock and
// only for events of the current session.
type Hooks struct {
	OnTick     func(remaining int)
	OnCapture  func(Frame)
	OnComplete func(Result)
	OnError    func(error)
}

// Config sets sequence timing.
type Config struct {
	Tick       time.Duration // countdown step
	Countdown  int           // ticks before a countdown capture
	BurstTicks int           // ticks before each burst capture
	Mirror     bool
}

// DefaultConfig is a 5 second countdown and a shot every 5 seconds.
func DefaultConfig() Config {
	return Config{Tick: time.Second, Countdown: 5, BurstTicks: 5, Mirror: true}
}

// Status is a point-in-time view of the orchestrator.
type Status struct {
	State      State
	Template   template.Template
	Frames     int
	Remaining  int
	Generation uint64
}

// Orchestrator is the capture state machine. At most one timer is pending
// at any time; every timer and capture is tagged with the generation it
// was started in and ignored once that generation has ended.
type Orchestrator struct {
	cam     Snapshotter
	compose Composer
	sched   Scheduler
	hooks   Hooks
	cfg     Config

	mu        sync.Mutex
	state     State
	tmpl      template.Template
	frames    []Frame
	fill      bool // duplicate a single capture into every slot
	remaining int
	timer     Timer
	gen       uint64
	cancel    context.CancelFunc // aborts the running compose
	result    *Result
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) Option { return func(o *Orchestrator) { o.sched = s } }

// WithHooks sets event callbacks.
func WithHooks(h Hooks) Option { return func(o *Orchestrator) { o.hooks = h } }

// New returns an idle orchestrator for t.
func New(cam Snapshotter, compose Composer, t template.Template, cfg Config, opts ...Option) (*Orchestrator, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if cfg.Countdown < 0 || cfg.BurstTicks < 0 {
		return nil, fmt.Errorf("negative countdown")
	}
	o := &Orchestrator{cam: cam, compose: compose, cfg: cfg, tmpl: t, sched: RealScheduler{}}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Status returns the current state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{
		State:      o.state,
		Template:   o.tmpl,
		Frames:     len(o.frames),
		Remaining:  o.remaining,
		Generation: o.gen,
	}
}

// Result returns the last finished result, if the state is Complete.
func (o *Orchestrator) Result() (Result, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.result == nil {
		return Result{}, false
	}
	return *o.result, true
}

// SelectTemplate switches templates. Switching to a different template
// abandons any frames already captured.
func (o *Orchestrator) SelectTemplate(t template.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if t.ID == o.tmpl.ID {
		return nil
	}
	if len(o.frames) > 0 || o.state != Idle {
		klog.Infof("template changed to %s mid-session; resetting", t.ID)
		o.resetLocked()
	}
	o.tmpl = t
	return nil
}

// Reset cancels any pending timer, drops captured frames and returns to
// Idle. It is valid in every state.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resetLocked()
}

func (o *Orchestrator) resetLocked() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.frames = nil
	o.fill = false
	o.remaining = 0
	o.result = nil
	o.state = Idle
	o.gen++
}

// Capture takes one photo immediately, filling every slot of the template.
func (o *Orchestrator) Capture() error {
	return o.start(CountdownPending, 0, true)
}

// StartCountdown takes one photo after the configured countdown, filling
// every slot of the template.
func (o *Orchestrator) StartCountdown() error {
	return o.start(CountdownPending, o.cfg.Countdown, true)
}

// StartBurst captures the template's photo count, one every BurstTicks.
func (o *Orchestrator) StartBurst() error {
	return o.start(BurstCapturing, o.cfg.BurstTicks, false)
}

func (o *Orchestrator) start(s State, ticks int, fill bool) error {
	o.mu.Lock()
	switch o.state {
	case CountdownPending, BurstCapturing, Processing:
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBusy, o.state)
	case Complete:
		o.resetLocked()
	}
	o.state = s
	o.fill = fill
	o.frames = make([]Frame, 0, o.tmpl.PhotoCount)
	o.remaining = ticks
	gen := o.gen
	klog.Infof("starting %s for template %s (%d photos)", s, o.tmpl.ID, o.tmpl.PhotoCount)

	if ticks == 0 {
		o.mu.Unlock()
		o.shoot(gen)
		return nil
	}
	o.timer = o.sched.AfterFunc(o.cfg.Tick, func() { o.tick(gen) })
	o.mu.Unlock()
	o.emitTick(ticks)
	return nil
}

func (o *Orchestrator) active() bool {
	return o.state == CountdownPending || o.state == BurstCapturing
}

func (o *Orchestrator) tick(gen uint64) {
	o.mu.Lock()
	if gen != o.gen || !o.active() {
		o.mu.Unlock()
		return
	}
	o.timer = nil
	o.remaining--
	if o.remaining > 0 {
		remaining := o.remaining
		o.timer = o.sched.AfterFunc(o.cfg.Tick, func() { o.tick(gen) })
		o.mu.Unlock()
		o.emitTick(remaining)
		return
	}
	o.mu.Unlock()
	o.shoot(gen)
}

func (o *Orchestrator) shoot(gen uint64) {
	data, err := o.cam.Snapshot(o.cfg.Mirror)

	o.mu.Lock()
	if gen != o.gen || !o.active() {
		o.mu.Unlock()
		klog.V(1).Infof("dropping capture from ended session %d", gen)
		return
	}
	if err != nil {
		klog.Errorf("capture failed, resetting: %v", err)
		o.resetLocked()
		o.mu.Unlock()
		o.emitError(err)
		return
	}

	f := Frame{Data: data, Index: len(o.frames)}
	o.frames = append(o.frames, f)
	if o.fill {
		for len(o.frames) < o.tmpl.PhotoCount {
			o.frames = append(o.frames, Frame{Data: data, Index: len(o.frames)})
		}
	}
	klog.V(1).Infof("captured frame %d of %d", len(o.frames), o.tmpl.PhotoCount)

	if len(o.frames) >= o.tmpl.PhotoCount {
		o.state = Processing
		o.remaining = 0
		o.mu.Unlock()
		o.emitCapture(f)
		o.process(gen)
		return
	}

	o.remaining = o.cfg.BurstTicks
	remaining := o.remaining
	if remaining == 0 {
		// No countdown between shots: fire on the next tick.
		o.remaining = 1
		remaining = 1
	}
	o.timer = o.sched.AfterFunc(o.cfg.Tick, func() { o.tick(gen) })
	o.mu.Unlock()
	o.emitCapture(f)
	o.emitTick(remaining)
}

func (o *Orchestrator) process(gen uint64) {
	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.cancel = cancel
	t := o.tmpl
	data := make([][]byte, len(o.frames))
	for i, f := range o.frames {
		data[i] = f.Data
	}
	o.mu.Unlock()

	var out []byte
	var err error
	if t.PhotoCount == 1 {
		out = data[0]
	} else {
		out, err = o.compose(ctx, t, data)
	}

	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		klog.V(1).Infof("dropping result from ended session %d", gen)
		return
	}
	o.cancel = nil
	if err != nil {
		klog.Errorf("composition failed, resetting: %v", err)
		o.resetLocked()
		o.mu.Unlock()
		o.emitError(err)
		return
	}
	res := Result{Data: out, Template: t, Multi: t.Multi(), Frames: len(data)}
	o.frames = nil
	o.result = &res
	o.state = Complete
	o.mu.Unlock()
	klog.Infof("session complete: %s, %d bytes", t.ID, len(out))
	if o.hooks.OnComplete != nil {
		o.hooks.OnComplete(res)
	}
}

func (o *Orchestrator) emitTick(n int) {
	if o.hooks.OnTick != nil {
		o.hooks.OnTick(n)
	}
}

func (o *Orchestrator) emitCapture(f Frame) {
	if o.hooks.OnCapture != nil {
		o.hooks.OnCapture(f)
	}
}

func (o *Orchestrator) emitError(err error) {
	if o.hooks.OnError != nil {
		o.hooks.OnError(err)
	}
}
