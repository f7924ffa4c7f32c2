package director

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/ledsim/internal/animation"
	"github.com/smazurov/ledsim/internal/events"
	"github.com/smazurov/ledsim/internal/pattern"
	"github.com/smazurov/ledsim/internal/strip"
)

var (
	R = strip.Px(strip.Red)
	G = strip.Px(strip.Green)
	B = strip.Px(strip.Blue)
	U = strip.Unset

	black = strip.Black
)

// recordingSink keeps a copy of every output.
type recordingSink struct {
	mu     sync.Mutex
	frames []strip.State
	err    error
}

func (s *recordingSink) SetLEDs(colors []strip.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, slices.Clone(colors))
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *recordingSink) last() strip.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[len(s.frames)-1]
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newDirector(t *testing.T, leds int, policy FaultPolicy, opts ...Option) (*Director, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	opts = append([]Option{WithLogger(newTestLogger())}, opts...)
	d, err := New(Config{LEDs: leds, FrameDuration: time.Millisecond, FaultPolicy: policy}, sink, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(d.Close)
	return d, sink
}

func mustAdd(t *testing.T, d *Director, start int, a animation.Animation) {
	t.Helper()
	if err := d.AddAnimation(start, a); err != nil {
		t.Fatalf("AddAnimation(%d) error = %v", start, err)
	}
}

func tickN(t *testing.T, d *Director, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := d.Tick(); err != nil {
			t.Fatalf("Tick() at frame %d error = %v", d.Frame(), err)
		}
	}
}

func assertState(t *testing.T, label string, got, want strip.State) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Errorf("%s = %v, want %v", label, got, want)
	}
}

func repeat(f strip.Frame, n int) []strip.Frame {
	out := make([]strip.Frame, n)
	for i := range out {
		out[i] = f
	}
	return out
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	sink := &recordingSink{}
	tests := []struct {
		name string
		cfg  Config
		sink Sink
	}{
		{"zero leds", Config{LEDs: 0}, sink},
		{"negative leds", Config{LEDs: -3}, sink},
		{"negative duration", Config{LEDs: 5, FrameDuration: -time.Millisecond}, sink},
		{"unknown policy", Config{LEDs: 5, FaultPolicy: FaultPolicy(7)}, sink},
		{"nil sink", Config{LEDs: 5}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, tt.sink, WithLogger(newTestLogger()))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestNew_DefaultFrameDuration(t *testing.T) {
	d, err := New(Config{LEDs: 1}, &recordingSink{}, WithLogger(newTestLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if d.Config().FrameDuration != DefaultFrameDuration {
		t.Errorf("FrameDuration = %v, want %v", d.Config().FrameDuration, DefaultFrameDuration)
	}
}

func TestAddAnimation_RejectsInvalidEntries(t *testing.T) {
	d, _ := newDirector(t, 3, FaultAbort)

	if err := d.AddAnimation(-1, animation.Scripted("a")); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("negative start frame: error = %v, want ErrInvalidConfig", err)
	}
	if err := d.AddAnimation(0, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("nil animation: error = %v, want ErrInvalidConfig", err)
	}
	if got := d.Snapshot().Scheduled; got != 0 {
		t.Errorf("Scheduled = %d after rejected registrations", got)
	}
}

func TestAddAnimation_DoesNotSpawn(t *testing.T) {
	d, sink := newDirector(t, 2, FaultAbort)
	mustAdd(t, d, 0, animation.Scripted("a", strip.Frame{R, R}))

	if got := d.Snapshot().Active; got != 0 {
		t.Errorf("Active = %d before any tick", got)
	}
	if sink.count() != 0 {
		t.Error("registration must not emit")
	}
}

func TestTick_SpawnsAtStartFrame(t *testing.T) {
	d, sink := newDirector(t, 2, FaultAbort)
	mustAdd(t, d, 2, animation.Scripted("late", repeat(strip.Frame{R, U}, 3)...))

	tickN(t, d, 2)
	assertState(t, "frame 1 output", sink.last(), strip.State{black, black})

	tickN(t, d, 1)
	assertState(t, "frame 2 output", sink.last(), strip.State{strip.Red, black})
	if got := d.Frame(); got != 3 {
		t.Errorf("Frame() = %d, want 3", got)
	}
}

func TestTick_PassedStartFrameNeverSpawns(t *testing.T) {
	d, sink := newDirector(t, 1, FaultAbort)
	tickN(t, d, 3)

	mustAdd(t, d, 1, animation.Scripted("missed", strip.Frame{R}))
	tickN(t, d, 3)

	assertState(t, "output", sink.last(), strip.State{black})
	if snap := d.Snapshot(); snap.Pending != 0 || snap.Scheduled != 1 {
		t.Errorf("Snapshot = %+v, want 1 scheduled and 0 pending", snap)
	}
}

func TestTick_SpawnOrderLayering(t *testing.T) {
	d, sink := newDirector(t, 3, FaultAbort)
	mustAdd(t, d, 10, animation.Scripted("A", repeat(strip.Frame{R, R, U}, 3)...))
	mustAdd(t, d, 10, animation.Scripted("B", repeat(strip.Frame{U, B, B}, 3)...))

	tickN(t, d, 11)

	assertState(t, "output", sink.last(), strip.State{strip.Red, strip.Blue, strip.Blue})
}

func TestTick_DisjointAnimationsAreOrderIndependent(t *testing.T) {
	a := strip.Frame{R, U, U, G}
	b := strip.Frame{U, B, U, U}
	want := strip.State{strip.Red, strip.Blue, black, strip.Green}

	for _, order := range [][]strip.Frame{{a, b}, {b, a}} {
		d, sink := newDirector(t, 4, FaultAbort)
		mustAdd(t, d, 0, animation.Scripted("first", repeat(order[0], 2)...))
		mustAdd(t, d, 0, animation.Scripted("second", repeat(order[1], 2)...))

		tickN(t, d, 1)
		assertState(t, "output", sink.last(), want)
	}
}

func TestTick_RetirementFoldsFinalFrameOnce(t *testing.T) {
	d, sink := newDirector(t, 3, FaultAbort)
	mustAdd(t, d, 0, animation.Scripted("A", strip.Frame{R, R, U}, strip.Frame{G, G, U}))
	mustAdd(t, d, 0, animation.Scripted("B", repeat(strip.Frame{U, B, U}, 5)...))

	tickN(t, d, 2)
	assertState(t, "tick 1", sink.last(), strip.State{strip.Green, strip.Blue, black})
	if got := d.Snapshot().Active; got != 2 {
		t.Fatalf("Active = %d, want 2", got)
	}

	// A finishes on tick 2 and is retired in the same tick.
	tickN(t, d, 1)
	assertState(t, "tick 2", sink.last(), strip.State{strip.Green, strip.Blue, black})
	if got := d.Snapshot().Active; got != 1 {
		t.Fatalf("Active after retirement = %d, want 1", got)
	}

	// B's uncovered positions keep A's final colors instead of reverting to black.
	tickN(t, d, 1)
	assertState(t, "tick 3", sink.last(), strip.State{strip.Green, strip.Blue, black})

	// Once B retires too, the state holds both final frames.
	tickN(t, d, 2)
	assertState(t, "tick 5", sink.last(), strip.State{strip.Green, strip.Blue, black})
	if got := d.Snapshot().Active; got != 0 {
		t.Errorf("Active = %d, want 0", got)
	}
}

func TestTick_FinishedLayerWaitsForEarlierLayers(t *testing.T) {
	d, sink := newDirector(t, 2, FaultAbort)
	mustAdd(t, d, 0, animation.Scripted("A", strip.Frame{R, R}, strip.Frame{G, G}, strip.Frame{G, G}))
	mustAdd(t, d, 0, animation.Scripted("B", strip.Frame{U, B}))

	tickN(t, d, 2)
	// B finished on tick 1 but stays on top of the still running A.
	assertState(t, "tick 1", sink.last(), strip.State{strip.Green, strip.Blue})
	if got := d.Snapshot().Active; got != 2 {
		t.Errorf("Active = %d, want 2 while B waits for A", got)
	}

	tickN(t, d, 2)
	if got := d.Snapshot().Active; got != 0 {
		t.Errorf("Active = %d, want 0 after A finished", got)
	}
	assertState(t, "tick 3", sink.last(), strip.State{strip.Green, strip.Blue})
}

func TestTick_SingleRedPixelScenario(t *testing.T) {
	d, sink := newDirector(t, 5, FaultAbort)
	mustAdd(t, d, 0, animation.Derive(singlePixel{}))

	tickN(t, d, 9)

	red := strip.Red
	want := []strip.State{
		{black, black, black, black, black},
		{red, black, black, black, black},
		{black, red, black, black, black},
		{black, black, red, black, black},
		{black, black, black, red, black},
		{black, black, black, black, red},
		{black, black, black, black, black},
		{black, black, black, black, black},
		{black, black, black, black, black},
	}
	for i, w := range want {
		assertState(t, "tick output", sink.frames[i], w)
	}
	if got := d.Snapshot().Active; got != 0 {
		t.Errorf("Active = %d, want 0 once the pixel has left", got)
	}
}

type singlePixel struct{}

func (singlePixel) Position(f int) int         { return f }
func (singlePixel) Pattern(int) pattern.Source { return pattern.Single(R) }

func TestTick_AbortPolicySkipsWholeTick(t *testing.T) {
	boom := errors.New("boom")
	d, sink := newDirector(t, 2, FaultAbort)
	mustAdd(t, d, 0, animation.Scripted("good", repeat(strip.Frame{R, U}, 5)...))
	mustAdd(t, d, 0, animation.Failing("bad", boom, strip.Frame{U, B}))

	tickN(t, d, 1)
	emitted := sink.count()

	err := d.Tick()

	var fault *FaultError
	if !errors.As(err, &fault) {
		t.Fatalf("Tick() error = %v, want *FaultError", err)
	}
	if !errors.Is(err, ErrAnimationFault) || !errors.Is(err, boom) {
		t.Errorf("error %v should match ErrAnimationFault and the cause", err)
	}
	if fault.Animation != "bad" || fault.Frame != 1 {
		t.Errorf("fault = %+v, want bad at frame 1", fault)
	}
	if sink.count() != emitted {
		t.Error("faulting tick must not emit")
	}
	if got := d.Frame(); got != 1 {
		t.Errorf("Frame() = %d, want 1 (faulting tick not counted)", got)
	}
	if again := d.Tick(); !errors.Is(again, ErrAnimationFault) {
		t.Errorf("Tick() after abort = %v, want the same fault", again)
	}
}

func TestTick_IsolatePolicyDropsFaultingAnimation(t *testing.T) {
	d, sink := newDirector(t, 2, FaultIsolate)
	mustAdd(t, d, 0, animation.Scripted("good", repeat(strip.Frame{R, U}, 5)...))
	mustAdd(t, d, 0, animation.Failing("bad", errors.New("boom"), strip.Frame{U, B}))

	tickN(t, d, 3)

	if got := d.Snapshot().Active; got != 1 {
		t.Errorf("Active = %d, want 1 after dropping the faulting animation", got)
	}
	if sink.count() != 3 {
		t.Errorf("emitted %d frames, want 3", sink.count())
	}
	// The dropped animation's last frame is discarded, not folded.
	assertState(t, "output", sink.last(), strip.State{strip.Red, black})
}

func TestTick_WrongFrameLengthIsFault(t *testing.T) {
	d, _ := newDirector(t, 3, FaultAbort)
	mustAdd(t, d, 0, animation.Scripted("short", strip.Frame{R, R}))

	err := d.Tick()

	if !errors.Is(err, ErrFrameLength) {
		t.Errorf("Tick() error = %v, want ErrFrameLength", err)
	}
}

type panicking struct{}

func (panicking) Position(int) int { panic("position exploded") }
func (panicking) Pattern(int) pattern.Source {
	return pattern.Cycle()
}

func TestTick_ProducerPanicIsFault(t *testing.T) {
	d, sink := newDirector(t, 2, FaultIsolate)
	mustAdd(t, d, 0, animation.Derive(panicking{}))
	mustAdd(t, d, 0, animation.Scripted("ok", strip.Frame{G, G}))

	tickN(t, d, 1)

	assertState(t, "output", sink.last(), strip.State{strip.Green, strip.Green})
	if got := d.Snapshot().Active; got != 1 {
		t.Errorf("Active = %d, want 1", got)
	}
}

func TestTick_SinkErrorDoesNotStopTicks(t *testing.T) {
	d, sink := newDirector(t, 1, FaultAbort)
	sink.err = errors.New("display unplugged")

	tickN(t, d, 3)

	if d.Frame() != 3 {
		t.Errorf("Frame() = %d, want 3", d.Frame())
	}
}

// levelCounter counts records per level.
type levelCounter struct {
	mu     sync.Mutex
	counts map[slog.Level]int
}

func (c *levelCounter) Enabled(context.Context, slog.Level) bool { return true }
func (c *levelCounter) WithAttrs([]slog.Attr) slog.Handler      { return c }
func (c *levelCounter) WithGroup(string) slog.Handler           { return c }

func (c *levelCounter) Handle(_ context.Context, r slog.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[r.Level]++
	return nil
}

func (c *levelCounter) count(l slog.Level) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[l]
}

func TestTick_SinkFailuresLoggedOncePerOutage(t *testing.T) {
	logs := &levelCounter{counts: make(map[slog.Level]int)}
	d, sink := newDirector(t, 1, FaultAbort, WithLogger(slog.New(logs)))
	setErr := func(err error) {
		sink.mu.Lock()
		sink.err = err
		sink.mu.Unlock()
	}

	setErr(errors.New("connection refused"))
	tickN(t, d, 200)
	if got := logs.count(slog.LevelWarn); got != 1 {
		t.Fatalf("warnings after 200 failed writes = %d, want 1", got)
	}

	setErr(nil)
	tickN(t, d, 5)
	if got := logs.count(slog.LevelInfo); got != 1 {
		t.Errorf("recovery logs = %d, want 1", got)
	}

	setErr(errors.New("connection refused"))
	tickN(t, d, 5)
	if got := logs.count(slog.LevelWarn); got != 2 {
		t.Errorf("warnings after second outage = %d, want 2", got)
	}
}

func TestTick_ConcurrentCallsAreExclusive(t *testing.T) {
	d, sink := newDirector(t, 1, FaultAbort)
	mustAdd(t, d, 0, animation.Scripted("a", repeat(strip.Frame{R}, 100)...))

	var wg sync.WaitGroup
	var mu sync.Mutex
	ticked := 0
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				err := d.Tick()
				switch {
				case err == nil:
					mu.Lock()
					ticked++
					mu.Unlock()
				case !errors.Is(err, ErrAlreadyRunning):
					t.Errorf("Tick() error = %v", err)
				}
			}
		}()
	}
	wg.Wait()

	if d.Frame() != ticked || sink.count() != ticked {
		t.Errorf("Frame() = %d, sink frames = %d, successful ticks = %d", d.Frame(), sink.count(), ticked)
	}
}

func TestTick_PublishesLifecycleEvents(t *testing.T) {
	bus := events.New()
	names := make(chan string, 8)
	defer bus.Subscribe(func(e events.AnimationSpawnedEvent) { names <- "spawned:" + e.Name })()
	defer bus.Subscribe(func(e events.AnimationFinishedEvent) { names <- "finished:" + e.Name })()
	defer bus.Subscribe(func(e events.AnimationRetiredEvent) { names <- "retired:" + e.Name })()

	d, _ := newDirector(t, 1, FaultAbort, WithEventBus(bus))
	mustAdd(t, d, 0, animation.Scripted("blip", strip.Frame{R}))

	tickN(t, d, 2)

	want := map[string]bool{"spawned:blip": false, "finished:blip": false, "retired:blip": false}
	timeout := time.After(time.Second)
	for seen := 0; seen < len(want); {
		select {
		case name := <-names:
			if done, ok := want[name]; ok && !done {
				want[name] = true
				seen++
			}
		case <-timeout:
			t.Fatalf("missing lifecycle events: %v", want)
		}
	}
}

// manualClock fires only when the test says so and reports every arm.
type manualClock struct {
	fire  chan time.Time
	armed chan time.Duration
}

func newManualClock() *manualClock {
	return &manualClock{fire: make(chan time.Time), armed: make(chan time.Duration, 16)}
}

func (c *manualClock) After(d time.Duration) <-chan time.Time {
	c.armed <- d
	return c.fire
}

func (c *manualClock) waitArmed(t *testing.T) time.Duration {
	t.Helper()
	select {
	case d := <-c.armed:
		return d
	case <-time.After(time.Second):
		t.Fatal("clock was not armed")
		return 0
	}
}

func TestRun_TicksOnlyWhenClockFires(t *testing.T) {
	clock := newManualClock()
	d, sink := newDirector(t, 1, FaultAbort, WithClock(clock))
	mustAdd(t, d, 0, animation.Scripted("a", repeat(strip.Frame{R}, 10)...))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	if got := clock.waitArmed(t); got != time.Millisecond {
		t.Errorf("armed for %v, want one frame duration", got)
	}
	if sink.count() != 0 {
		t.Fatal("ticked before the first interval elapsed")
	}

	for i := 1; i <= 3; i++ {
		clock.fire <- time.Now()
		clock.waitArmed(t)
		if sink.count() != i {
			t.Fatalf("after %d fires sink saw %d frames", i, sink.count())
		}
	}

	if err := d.Tick(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Tick() during Run = %v, want ErrAlreadyRunning", err)
	}
	if err := d.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() = %v, want ErrAlreadyRunning", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil on cancellation", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestAddAnimation_ConcurrentWithRun(t *testing.T) {
	clock := newManualClock()
	d, sink := newDirector(t, 1, FaultAbort, WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	clock.waitArmed(t)

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.AddAnimation(1, animation.Scripted("reload", strip.Frame{R})); err != nil {
				t.Errorf("AddAnimation() #%d error = %v", i, err)
			}
		}()
	}
	wg.Wait()

	for range 2 {
		clock.fire <- time.Now()
		clock.waitArmed(t)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() = %v", err)
	}

	if got := d.Snapshot().Scheduled; got != 4 {
		t.Errorf("Scheduled = %d, want 4", got)
	}
	assertState(t, "output at frame 1", sink.last(), strip.State{strip.Red})
}

func TestRun_ReturnsFaultUnderAbortPolicy(t *testing.T) {
	clock := newManualClock()
	d, _ := newDirector(t, 1, FaultAbort, WithClock(clock))
	mustAdd(t, d, 0, animation.Failing("bad", errors.New("boom")))

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	clock.waitArmed(t)
	clock.fire <- time.Now()

	select {
	case err := <-done:
		if !errors.Is(err, ErrAnimationFault) {
			t.Errorf("Run() = %v, want ErrAnimationFault", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the fault")
	}
}

func TestSinkFunc(t *testing.T) {
	var got []strip.Color
	d, err := New(Config{LEDs: 2}, SinkFunc(func(c []strip.Color) error {
		got = slices.Clone(c)
		return nil
	}), WithLogger(newTestLogger()))
	if err != nil {
		t.Fatal(err)
	}
	mustAdd(t, d, 0, animation.Scripted("a", strip.Frame{U, G}))
	tickN(t, d, 1)

	if !slices.Equal(got, []strip.Color{black, strip.Green}) {
		t.Errorf("sink got %v", got)
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	d, _ := newDirector(t, 2, FaultAbort)
	mustAdd(t, d, 0, animation.Scripted("a", strip.Frame{R, R}))
	tickN(t, d, 1)

	snap := d.Snapshot()
	snap.Colors[0] = strip.Blue

	if d.Snapshot().Colors[0] != strip.Red {
		t.Error("modifying a snapshot changed the director output")
	}
}

func TestParseFaultPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    FaultPolicy
		wantErr bool
	}{
		{"", FaultAbort, false},
		{"abort", FaultAbort, false},
		{"Isolate", FaultIsolate, false},
		{"retry", FaultAbort, true},
	}
	for _, tt := range tests {
		got, err := ParseFaultPolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFaultPolicy(%q) = %v, %v", tt.in, got, err)
		}
	}
}
