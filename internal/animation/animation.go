// Package animation defines the frame-producing contract shared by every
// animation and the derived position/pattern style most animations use.
//
// An Animation yields a finite, single-pass sequence of frames. Each call to
// Frames starts a fresh run at relative frame 0; the returned sequence is
// consumed once by the director.
package animation

import (
	"errors"
	"fmt"
	"iter"

	"github.com/smazurov/ledsim/internal/pattern"
	"github.com/smazurov/ledsim/internal/strip"
)

// ErrWindowOverflow is returned when a pattern source yields more pixels than
// the requested window holds.
var ErrWindowOverflow = errors.New("pattern window overflow")

// Animation produces one Frame of nrOfLEDs pixels per tick until it ends.
// A producer reports a contract violation by yielding a non-nil error, after
// which the sequence must stop.
type Animation interface {
	Frames(nrOfLEDs int) iter.Seq2[strip.Frame, error]
}

// Positioner is the derived style: a moving window over a pattern.
type Positioner interface {
	// Position is the pattern coordinate of the trailing edge at the given
	// relative frame. 0 means the pattern has not entered the strip yet.
	Position(frame int) int
	// Pattern is the animation's own color space at the given relative frame,
	// indexed from coordinate 0 and usually infinite.
	Pattern(frame int) pattern.Source
}

// Named is implemented by animations that report a display name.
type Named interface {
	Name() string
}

// NameOf returns a's name or its dynamic type.
func NameOf(a Animation) string {
	if n, ok := a.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", a)
}

// Derive turns a Positioner into an Animation.
func Derive(p Positioner) Animation {
	return derived{p: p}
}

type derived struct {
	p Positioner
}

func (d derived) Name() string {
	if n, ok := d.p.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", d.p)
}

// Frames stops at the first frame whose padded window equals the previous
// one; that frame is not yielded.
func (d derived) Frames(nrOfLEDs int) iter.Seq2[strip.Frame, error] {
	return func(yield func(strip.Frame, error) bool) {
		var previous strip.Frame
		for frame := 0; ; frame++ {
			current, err := Window(d.p, frame, nrOfLEDs)
			if err != nil {
				yield(nil, err)
				return
			}
			if previous != nil && current.Equal(previous) {
				return
			}
			if !yield(current, nil) {
				return
			}
			previous = current
		}
	}
}

// Window computes the visible, padded frame of p at the given relative frame:
// pattern coordinates [max(0, pos-n), pos) reversed so the most recently
// entered coordinate sits at strip position 0, then Unset up to n.
func Window(p Positioner, frame, nrOfLEDs int) (strip.Frame, error) {
	out := strip.NewFrame(nrOfLEDs)
	end := p.Position(frame)
	start := max(0, end-nrOfLEDs)
	if end <= start {
		return out, nil
	}

	pixels := p.Pattern(frame).Window(start, end)
	if len(pixels) > end-start {
		return nil, fmt.Errorf("%w: frame %d asked for %d pixels, got %d",
			ErrWindowOverflow, frame, end-start, len(pixels))
	}
	for i, px := range pixels {
		out[len(pixels)-1-i] = px
	}
	return out, nil
}
