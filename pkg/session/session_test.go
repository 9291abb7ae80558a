package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tstromberg/fotoautomat/pkg/capture"
	"github.com/tstromberg/fotoautomat/pkg/layout"
	"github.com/tstromberg/fotoautomat/pkg/template"
)

type scriptedCamera struct {
	mu    sync.Mutex
	shots [][]byte
	errs  []error
	n     int
}

func (c *scriptedCamera) Snapshot(bool) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.n
	c.n++
	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	if len(c.shots) == 0 {
		return []byte(fmt.Sprintf("shot-%d", i)), nil
	}
	return c.shots[i%len(c.shots)], nil
}

type recorder struct {
	mu       sync.Mutex
	ticks    []int
	captures []Frame
	results  []Result
	errs     []error
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnTick:     func(n int) { r.mu.Lock(); r.ticks = append(r.ticks, n); r.mu.Unlock() },
		OnCapture:  func(f Frame) { r.mu.Lock(); r.captures = append(r.captures, f); r.mu.Unlock() },
		OnComplete: func(res Result) { r.mu.Lock(); r.results = append(r.results, res); r.mu.Unlock() },
		OnError:    func(err error) { r.mu.Lock(); r.errs = append(r.errs, err); r.mu.Unlock() },
	}
}

// joinComposer concatenates frames so tests can see exactly what was composed.
func joinComposer(_ context.Context, _ template.Template, frames [][]byte) ([]byte, error) {
	return bytes.Join(frames, []byte("|")), nil
}

func tmpl(t *testing.T, id string) template.Template {
	t.Helper()
	tt, err := template.Lookup(id)
	require.NoError(t, err)
	return tt
}

func newOrchestrator(t *testing.T, cam Snapshotter, compose Composer, id string) (*Orchestrator, *ManualScheduler, *recorder) {
	t.Helper()
	sched := &ManualScheduler{}
	rec := &recorder{}
	cfg := Config{Tick: 1, Countdown: 3, BurstTicks: 2}
	o, err := New(cam, compose, tmpl(t, id), cfg, WithScheduler(sched), WithHooks(rec.hooks()))
	require.NoError(t, err)
	return o, sched, rec
}

func TestCountdownSingle(t *testing.T) {
	o, sched, rec := newOrchestrator(t, &scriptedCamera{}, joinComposer, "1x1")
	require.NoError(t, o.StartCountdown())
	assert.Equal(t, CountdownPending, o.Status().State)
	assert.Equal(t, 3, o.Status().Remaining)

	assert.Equal(t, 3, sched.Drain(10))
	assert.Equal(t, Complete, o.Status().State)
	assert.Equal(t, []int{3, 2, 1}, rec.ticks)
	require.Len(t, rec.results, 1)
	assert.Equal(t, []byte("shot-0"), rec.results[0].Data)
	assert.False(t, rec.results[0].Multi)

	res, ok := o.Result()
	require.True(t, ok)
	assert.Equal(t, "1x1", res.Template.ID)
}

func TestCountdownFillsMultiTemplate(t *testing.T) {
	o, sched, rec := newOrchestrator(t, &scriptedCamera{}, joinComposer, "3x1")
	require.NoError(t, o.StartCountdown())
	sched.Drain(10)
	require.Len(t, rec.results, 1)
	assert.Equal(t, []byte("shot-0|shot-0|shot-0"), rec.results[0].Data)
	assert.True(t, rec.results[0].Multi)
}

func TestImmediateCapture(t *testing.T) {
	o, sched, rec := newOrchestrator(t, &scriptedCamera{}, joinComposer, "1x1")
	require.NoError(t, o.Capture())
	assert.Equal(t, 0, sched.Pending())
	assert.Equal(t, Complete, o.Status().State)
	require.Len(t, rec.results, 1)
}

func TestBurstCollectsInOrder(t *testing.T) {
	o, sched, rec := newOrchestrator(t, &scriptedCamera{}, joinComposer, "4x1")
	require.NoError(t, o.StartBurst())
	for sched.Pending() > 0 {
		assert.Equal(t, 1, sched.Pending(), "only one timer may be pending")
		st := o.Status()
		assert.LessOrEqual(t, st.Frames, 4)
		sched.Fire()
	}
	assert.Equal(t, Complete, o.Status().State)
	require.Len(t, rec.captures, 4)
	for i, f := range rec.captures {
		assert.Equal(t, i, f.Index)
	}
	assert.Equal(t, []byte("shot-0|shot-1|shot-2|shot-3"), rec.results[0].Data)
}

func TestStartWhileActiveIsRejected(t *testing.T) {
	o, sched, _ := newOrchestrator(t, &scriptedCamera{}, joinComposer, "4x1")
	require.NoError(t, o.StartBurst())
	assert.ErrorIs(t, o.StartBurst(), ErrBusy)
	assert.ErrorIs(t, o.StartCountdown(), ErrBusy)
	assert.ErrorIs(t, o.Capture(), ErrBusy)
	assert.Equal(t, 1, sched.Pending())

	sched.Drain(100)
	require.Equal(t, Complete, o.Status().State)
	assert.NoError(t, o.StartCountdown(), "a completed session may start again")
}

func TestCaptureFailureResets(t *testing.T) {
	cam := &scriptedCamera{errs: []error{nil, capture.ErrCaptureFailed}}
	o, sched, rec := newOrchestrator(t, cam, joinComposer, "3x1")
	require.NoError(t, o.StartBurst())
	sched.Drain(100)

	st := o.Status()
	assert.Equal(t, Idle, st.State)
	assert.Zero(t, st.Frames)
	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], capture.ErrCaptureFailed)
	assert.Zero(t, sched.Pending())
}

func pngFrame(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 12))
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestBurstWithUndecodableFrame(t *testing.T) {
	good := pngFrame(t)
	cam := &scriptedCamera{shots: [][]byte{good, []byte("raw but corrupt"), good}}
	compose := func(ctx context.Context, t template.Template, frames [][]byte) ([]byte, error) {
		return layout.Compose(ctx, t, frames)
	}
	o, sched, rec := newOrchestrator(t, cam, compose, "3x1")
	require.NoError(t, o.StartBurst())
	sched.Drain(100)

	assert.Equal(t, Idle, o.Status().State)
	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], layout.ErrInsufficientImages)
	assert.Empty(t, rec.results)
}

func TestResetMidBurst(t *testing.T) {
	cam := &scriptedCamera{}
	o, sched, rec := newOrchestrator(t, cam, joinComposer, "4x1")
	require.NoError(t, o.StartBurst())
	for o.Status().Frames < 2 {
		require.True(t, sched.Fire())
	}
	require.Equal(t, BurstCapturing, o.Status().State)

	o.Reset()
	st := o.Status()
	assert.Equal(t, Idle, st.State)
	assert.Zero(t, st.Frames)
	assert.Zero(t, sched.Pending())

	require.NoError(t, o.StartBurst())
	sched.Drain(100)
	assert.Equal(t, Complete, o.Status().State)
	require.Len(t, rec.results, 1)
	assert.Equal(t, []byte("shot-2|shot-3|shot-4|shot-5"), rec.results[0].Data)
}

type gatedCamera struct {
	entered chan struct{}
	release chan struct{}
}

func (c *gatedCamera) Snapshot(bool) ([]byte, error) {
	c.entered <- struct{}{}
	<-c.release
	return []byte("late"), nil
}

func TestLateCaptureIgnoredAfterReset(t *testing.T) {
	cam := &gatedCamera{entered: make(chan struct{}), release: make(chan struct{})}
	o, sched, rec := newOrchestrator(t, cam, joinComposer, "1x1")
	require.NoError(t, o.StartBurst())

	done := make(chan struct{})
	go func() {
		sched.Drain(10)
		close(done)
	}()
	<-cam.entered
	o.Reset()
	close(cam.release)
	<-done

	assert.Equal(t, Idle, o.Status().State)
	assert.Zero(t, o.Status().Frames)
	assert.Empty(t, rec.captures)
	assert.Empty(t, rec.results)
}

func TestResetCancelsCompose(t *testing.T) {
	started := make(chan struct{})
	seen := make(chan error, 1)
	blocking := func(ctx context.Context, _ template.Template, _ [][]byte) ([]byte, error) {
		close(started)
		<-ctx.Done()
		seen <- ctx.Err()
		return nil, ctx.Err()
	}
	o, _, rec := newOrchestrator(t, &scriptedCamera{}, blocking, "2x2")

	done := make(chan error, 1)
	go func() { done <- o.Capture() }()
	<-started
	assert.Equal(t, Processing, o.Status().State)

	o.Reset()
	assert.ErrorIs(t, <-seen, context.Canceled)
	require.NoError(t, <-done)

	assert.Equal(t, Idle, o.Status().State)
	assert.Empty(t, rec.errs, "a canceled compose from an ended session is not an error")
	assert.Empty(t, rec.results)
}

func TestSelectTemplateResets(t *testing.T) {
	o, sched, _ := newOrchestrator(t, &scriptedCamera{}, joinComposer, "4x1")
	require.NoError(t, o.StartBurst())
	sched.Drain(2)
	require.Equal(t, 1, o.Status().Frames)

	require.NoError(t, o.SelectTemplate(tmpl(t, "2x2")))
	st := o.Status()
	assert.Equal(t, Idle, st.State)
	assert.Equal(t, "2x2", st.Template.ID)
	assert.Zero(t, st.Frames)
	assert.Zero(t, sched.Pending())

	gen := o.Status().Generation
	require.NoError(t, o.SelectTemplate(tmpl(t, "2x2")))
	assert.Equal(t, gen, o.Status().Generation)

	assert.Error(t, o.SelectTemplate(template.Template{ID: "bad"}))
}

func TestNeverStuckInProcessing(t *testing.T) {
	flaky := func(ctx context.Context, t template.Template, frames [][]byte) ([]byte, error) {
		if len(frames[0])%2 == 0 {
			return nil, layout.ErrInsufficientImages
		}
		return joinComposer(ctx, t, frames)
	}
	for seed := uint64(0); seed < 25; seed++ {
		rng := rand.New(rand.NewPCG(seed, 99))
		errs := make([]error, 40)
		for i := range errs {
			if rng.IntN(5) == 0 {
				errs[i] = errors.New("blurry")
			}
		}
		ids := []string{"1x1", "3x1", "4x1", "2x2", "3x3"}
		o, sched, _ := newOrchestrator(t, &scriptedCamera{errs: errs}, flaky, ids[rng.IntN(len(ids))])

		for step := 0; step < 30; step++ {
			switch rng.IntN(6) {
			case 0:
				_ = o.StartBurst()
			case 1:
				_ = o.StartCountdown()
			case 2:
				o.Reset()
			case 3:
				_ = o.SelectTemplate(tmpl(t, ids[rng.IntN(len(ids))]))
			default:
				sched.Fire()
			}
			require.LessOrEqual(t, sched.Pending(), 1, "seed %d step %d", seed, step)
			st := o.Status()
			require.LessOrEqual(t, st.Frames, st.Template.PhotoCount)
		}
		sched.Drain(1000)
		st := o.Status().State
		assert.Contains(t, []State{Idle, Complete}, st, "seed %d", seed)
	}
}
