package director

import (
	"fmt"
	"strings"
	"time"

	"github.com/smazurov/ledsim/internal/strip"
)

// Clock arms one tick at a time. The director asks for the next tick only
// after the current one has been fully processed.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// After implements Clock.
func (SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Sink receives the composed strip output once per tick. colors is only valid
// for the duration of the call and must not be modified.
type Sink interface {
	SetLEDs(colors []strip.Color) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(colors []strip.Color) error

// SetLEDs implements Sink.
func (f SinkFunc) SetLEDs(colors []strip.Color) error {
	return f(colors)
}

// FaultPolicy decides what happens when an animation breaks its contract.
type FaultPolicy int

const (
	// FaultAbort discards the whole tick and stops the run.
	FaultAbort FaultPolicy = iota
	// FaultIsolate drops the faulting animation and keeps going.
	FaultIsolate
)

func (p FaultPolicy) String() string {
	switch p {
	case FaultAbort:
		return "abort"
	case FaultIsolate:
		return "isolate"
	default:
		return fmt.Sprintf("FaultPolicy(%d)", int(p))
	}
}

// ParseFaultPolicy accepts "abort" or "isolate"; empty means abort.
func ParseFaultPolicy(s string) (FaultPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return FaultAbort, nil
	case "isolate":
		return FaultIsolate, nil
	default:
		return FaultAbort, fmt.Errorf("%w: unknown fault policy %q", ErrInvalidConfig, s)
	}
}
