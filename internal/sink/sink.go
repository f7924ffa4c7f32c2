// Package sink holds the display sinks the director writes each composed
// frame to.
package sink

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/smazurov/ledsim/internal/events"
	"github.com/smazurov/ledsim/internal/metrics"
	"github.com/smazurov/ledsim/internal/strip"
)

// Sink receives one full strip of colors per frame.
type Sink interface {
	SetLEDs(colors []strip.Color) error
}

// Named sinks label their errors and metrics.
type Named interface {
	Name() string
}

func nameOf(s Sink) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}

// MultiSink writes every frame to all of its sinks.
type MultiSink struct {
	sinks []Sink
}

// Multi fans out to sinks in order. A failing sink does not stop the others.
func Multi(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// SetLEDs writes to every sink and joins their errors.
func (m *MultiSink) SetLEDs(colors []strip.Color) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.SetLEDs(colors); err != nil {
			name := nameOf(s)
			metrics.IncSinkWriteError(name)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that implements Close.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if c, ok := s.(interface{ Close() error }); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps a copy of every frame it receives.
type Recorder struct {
	mu     sync.Mutex
	frames []strip.State
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Name() string { return "recorder" }

// SetLEDs implements Sink.
func (r *Recorder) SetLEDs(colors []strip.Color) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, slices.Clone(colors))
	return nil
}

// Frames returns the recorded frames, oldest first.
func (r *Recorder) Frames() []strip.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.frames)
}

// Len is the number of recorded frames.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// Last returns the newest frame, or nil.
func (r *Recorder) Last() strip.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}

// Bus publishes frames as events.FrameRenderedEvent.
type Bus struct {
	bus   *events.Bus
	every int

	mu    sync.Mutex
	count int
}

// NewBus publishes every n-th frame on bus; n < 1 publishes all frames.
func NewBus(bus *events.Bus, n int) *Bus {
	return &Bus{bus: bus, every: max(n, 1)}
}

func (b *Bus) Name() string { return "bus" }

// SetLEDs implements Sink.
func (b *Bus) SetLEDs(colors []strip.Color) error {
	b.mu.Lock()
	frame := b.count
	b.count++
	b.mu.Unlock()

	if frame%b.every != 0 {
		return nil
	}
	b.bus.Publish(events.FrameRenderedEvent{Frame: frame, Colors: strip.State(colors).Hex()})
	return nil
}

// HexLine formats colors as space separated #rrggbb values.
func HexLine(colors []strip.Color) string {
	return strings.Join(strip.State(colors).Hex(), " ")
}
