// Package director schedules animations against a global frame counter and
// composites their frames onto one LED strip.
//
// Every tick the director spawns the animations scheduled for the current
// frame, pulls one frame from each active animation in spawn order, retires
// the leading run of finished animations into the persistent strip state,
// blends the still-active frames on top of that state and hands the result to
// the display sink.
//
// A finished animation is only retired once every animation spawned before it
// has finished too. Until then its last frame keeps being blended underneath
// the later animations, so their Unset positions never reveal state that
// predates it.
package director

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/ledsim/internal/animation"
	"github.com/smazurov/ledsim/internal/events"
	"github.com/smazurov/ledsim/internal/logging"
	"github.com/smazurov/ledsim/internal/metrics"
	"github.com/smazurov/ledsim/internal/strip"
)

// DefaultFrameDuration is used when Config.FrameDuration is zero.
const DefaultFrameDuration = 5 * time.Millisecond

// Config holds the strip geometry and timing.
type Config struct {
	LEDs          int
	FrameDuration time.Duration
	FaultPolicy   FaultPolicy
}

// Option configures a Director.
type Option func(*Director)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(d *Director) { d.clock = c }
}

// WithEventBus publishes lifecycle events on bus.
func WithEventBus(bus *events.Bus) Option {
	return func(d *Director) { d.bus = bus }
}

// WithLogger replaces the "director" module logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Director) { d.logger = l }
}

// ScheduledAnimation is one registered schedule entry.
type ScheduledAnimation struct {
	StartFrame int
	Animation  animation.Animation
}

// Snapshot is a copy of the director's latest output.
type Snapshot struct {
	Frame     int         // frames emitted so far
	Colors    strip.State // last emitted output, nil before the first tick
	Active    int         // animations held in spawn order
	Scheduled int         // schedule length
	Pending   int         // schedule entries not yet due
}

// slot is an active animation: its producer and last frame.
type slot struct {
	name     string
	next     func() (strip.Frame, error, bool)
	stop     func()
	produced int
	finished bool
	frame    strip.Frame
}

// Director owns the schedule, the active animations and the strip state.
type Director struct {
	cfg     Config
	sink    Sink
	clock   Clock
	bus     *events.Bus
	logger  *slog.Logger
	running atomic.Bool

	mu       sync.Mutex
	schedule []ScheduledAnimation
	frame    int
	output   strip.State
	active   int

	// Touched only by the ticking goroutine.
	state  strip.State
	slots  []*slot
	failed error

	// Consecutive failed sink writes; only the first of a run is logged.
	sinkFailures int
}

// New validates cfg and returns an idle director writing to sink.
func New(cfg Config, sink Sink, opts ...Option) (*Director, error) {
	if cfg.LEDs <= 0 {
		return nil, fmt.Errorf("%w: nr of leds must be positive, got %d", ErrInvalidConfig, cfg.LEDs)
	}
	if cfg.FrameDuration == 0 {
		cfg.FrameDuration = DefaultFrameDuration
	}
	if cfg.FrameDuration < 0 {
		return nil, fmt.Errorf("%w: frame duration must be positive, got %v", ErrInvalidConfig, cfg.FrameDuration)
	}
	if cfg.FaultPolicy != FaultAbort && cfg.FaultPolicy != FaultIsolate {
		return nil, fmt.Errorf("%w: unknown fault policy %v", ErrInvalidConfig, cfg.FaultPolicy)
	}
	if sink == nil {
		return nil, fmt.Errorf("%w: sink is required", ErrInvalidConfig)
	}

	d := &Director{
		cfg:   cfg,
		sink:  sink,
		clock: SystemClock{},
		state: strip.NewState(cfg.LEDs),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logging.GetLogger("director")
	}
	return d, nil
}

// Config returns the validated configuration.
func (d *Director) Config() Config {
	return d.cfg
}

// AddAnimation appends a to the schedule. It spawns on the tick whose global
// frame equals startFrame; a start frame that has already passed never spawns.
// Safe to call while Run is active.
func (d *Director) AddAnimation(startFrame int, a animation.Animation) error {
	if startFrame < 0 {
		return fmt.Errorf("%w: start frame must be non-negative, got %d", ErrInvalidConfig, startFrame)
	}
	if a == nil {
		return fmt.Errorf("%w: animation is nil", ErrInvalidConfig)
	}

	d.mu.Lock()
	d.schedule = append(d.schedule, ScheduledAnimation{StartFrame: startFrame, Animation: a})
	current := d.frame
	scheduled := len(d.schedule)
	d.mu.Unlock()

	metrics.SetScheduled(scheduled)
	if startFrame < current {
		d.logger.Warn("Start frame already passed, animation will never spawn",
			"animation", animation.NameOf(a), "start_frame", startFrame, "frame", current)
	} else {
		d.logger.Debug("Animation scheduled", "animation", animation.NameOf(a), "start_frame", startFrame)
	}
	return nil
}

// Frame returns the global frame the next tick will process.
func (d *Director) Frame() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frame
}

// Snapshot returns a copy of the latest output and counters.
func (d *Director) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	pending := 0
	for _, s := range d.schedule {
		if s.StartFrame >= d.frame {
			pending++
		}
	}
	return Snapshot{
		Frame:     d.frame,
		Colors:    d.output.Clone(),
		Active:    d.active,
		Scheduled: len(d.schedule),
		Pending:   pending,
	}
}

// Run ticks once per frame duration until ctx is cancelled or an animation
// fault aborts the run. The first tick happens one frame duration after Run
// is called and the clock is re-armed only after each tick completes.
// Run returns nil on cancellation.
func (d *Director) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer d.running.Store(false)

	d.logger.Info("Director started",
		"leds", d.cfg.LEDs,
		"frame_duration", d.cfg.FrameDuration,
		"fault_policy", d.cfg.FaultPolicy.String(),
		"frame", d.Frame())

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Director stopped", "frame", d.Frame())
			return nil
		case <-d.clock.After(d.cfg.FrameDuration):
		}

		if err := d.tick(); err != nil {
			d.logger.Error("Run aborted", "error", err, "frame", d.Frame())
			return err
		}
	}
}

// Tick processes exactly one frame. It is meant for headless rendering and
// tests and fails with ErrAlreadyRunning while Run is active.
func (d *Director) Tick() error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer d.running.Store(false)
	return d.tick()
}

// Close stops every active producer. The director must not be used afterwards.
func (d *Director) Close() {
	for _, s := range d.slots {
		s.stop()
	}
	d.slots = nil
}

func (d *Director) tick() error {
	if d.failed != nil {
		return d.failed
	}
	started := time.Now()

	frame := d.Frame()
	d.spawn(frame)
	if err := d.advance(frame); err != nil {
		d.failed = err
		return err
	}
	d.retire(frame)
	output := d.compose()
	d.emit(output)

	d.mu.Lock()
	d.output = output
	d.active = len(d.slots)
	d.frame++
	d.mu.Unlock()

	metrics.ObserveTick(time.Since(started), len(d.slots))
	return nil
}

// spawn starts every animation scheduled for frame, in registration order.
func (d *Director) spawn(frame int) {
	d.mu.Lock()
	var due []animation.Animation
	for _, s := range d.schedule {
		if s.StartFrame == frame {
			due = append(due, s.Animation)
		}
	}
	d.mu.Unlock()

	for _, a := range due {
		next, stop := iter.Pull2(a.Frames(d.cfg.LEDs))
		s := &slot{name: animation.NameOf(a), next: next, stop: stop}
		d.slots = append(d.slots, s)

		d.logger.Debug("Animation spawned", "animation", s.name, "frame", frame, "active", len(d.slots))
		d.publish(events.AnimationSpawnedEvent{
			Name:       s.name,
			StartFrame: frame,
			Active:     len(d.slots),
			Timestamp:  timestamp(),
		})
	}
	metrics.AddSpawned(len(due))
}

type pulled struct {
	frame strip.Frame
	done  bool
	fault *FaultError
}

// advance pulls one frame from every unfinished slot. Results are committed
// only when no fault aborts the tick.
func (d *Director) advance(frame int) error {
	results := make([]pulled, len(d.slots))
	for i, s := range d.slots {
		if s.finished {
			results[i] = pulled{done: true}
			continue
		}

		f, ok, err := s.pull()
		switch {
		case err != nil:
			results[i].fault = &FaultError{Animation: s.name, Frame: s.produced, Err: err}
		case !ok:
			results[i].done = true
		case len(f) != d.cfg.LEDs:
			results[i].fault = &FaultError{
				Animation: s.name,
				Frame:     s.produced,
				Err:       fmt.Errorf("%w: frame has %d pixels, strip has %d", ErrFrameLength, len(f), d.cfg.LEDs),
			}
		default:
			results[i].frame = f
		}

		if fault := results[i].fault; fault != nil {
			metrics.IncFault(d.cfg.FaultPolicy.String())
			d.publish(events.AnimationFaultEvent{
				Name:      fault.Animation,
				Frame:     fault.Frame,
				Error:     fault.Err.Error(),
				Dropped:   d.cfg.FaultPolicy == FaultIsolate,
				Timestamp: timestamp(),
			})
			if d.cfg.FaultPolicy == FaultAbort {
				return fault
			}
		}
	}

	kept := make([]*slot, 0, len(d.slots))
	for i, s := range d.slots {
		r := results[i]
		switch {
		case r.fault != nil:
			s.stop()
			d.logger.Error("Animation dropped after fault", "animation", s.name, "error", r.fault)
			continue
		case r.done && !s.finished:
			s.finished = true
			d.logger.Debug("Animation finished", "animation", s.name, "frames", s.produced, "frame", frame)
			d.publish(events.AnimationFinishedEvent{
				Name:      s.name,
				Frames:    s.produced,
				Frame:     frame,
				Timestamp: timestamp(),
			})
		case !r.done:
			s.frame = r.frame
			s.produced++
		}
		kept = append(kept, s)
	}
	d.slots = kept
	return nil
}

// retire folds the leading run of finished slots into the strip state.
func (d *Director) retire(frame int) {
	n := 0
	for n < len(d.slots) && d.slots[n].finished {
		n++
	}
	if n == 0 {
		return
	}

	for _, s := range d.slots[:n] {
		d.state.Apply(s.frame)
		s.stop()
		d.logger.Debug("Animation retired", "animation", s.name, "frame", frame)
		d.publish(events.AnimationRetiredEvent{Name: s.name, Frame: frame, Timestamp: timestamp()})
	}
	d.slots = slices.Clone(d.slots[n:])
	metrics.AddRetired(n)
}

// compose blends the held slots over a copy of the strip state.
func (d *Director) compose() strip.State {
	frames := make([]strip.Frame, len(d.slots))
	for i, s := range d.slots {
		frames[i] = s.frame
	}
	return strip.Blend(d.state, frames...)
}

func (d *Director) emit(output strip.State) {
	err := d.sink.SetLEDs(output)
	switch {
	case err != nil:
		metrics.IncSinkError()
		if d.sinkFailures == 0 {
			d.logger.Warn("Display sink write failed, further failures are only counted", "error", err)
		}
		d.sinkFailures++
	case d.sinkFailures > 0:
		d.logger.Info("Display sink recovered", "failed_writes", d.sinkFailures)
		d.sinkFailures = 0
	}
}

func (d *Director) publish(ev events.Event) {
	if d.bus != nil {
		d.bus.Publish(ev)
	}
}

// pull reads the next frame, turning a producer panic into an error.
func (s *slot) pull() (frame strip.Frame, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			frame, ok, err = nil, false, fmt.Errorf("%w: %v", ErrProducerPanic, r)
		}
	}()
	frame, err, ok = s.next()
	return frame, ok, err
}

func timestamp() string {
	return time.Now().Format(time.RFC3339)
}
