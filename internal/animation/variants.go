package animation

import (
	"fmt"
	"iter"

	"github.com/smazurov/ledsim/internal/strip"
)

// Reverse mirrors every frame of a along the strip. It ends exactly when a ends.
func Reverse(a Animation) Animation {
	return transform{
		inner: a,
		name:  "reverse(" + NameOf(a) + ")",
		fn:    strip.Frame.Reversed,
	}
}

// Remap passes every set pixel of a through fn; Unset stays Unset.
func Remap(a Animation, fn func(strip.Color) strip.Color) Animation {
	return transform{
		inner: a,
		name:  "remap(" + NameOf(a) + ")",
		fn: func(f strip.Frame) strip.Frame {
			out := make(strip.Frame, len(f))
			for i, px := range f {
				if px.Set {
					out[i] = strip.Px(fn(px.Color))
				}
			}
			return out
		},
	}
}

// Tint is a Remap that blends every set pixel toward c by amount in [0,1].
func Tint(a Animation, c strip.Color, amount float64) Animation {
	return Remap(a, func(in strip.Color) strip.Color {
		return strip.Lerp(in, c, amount)
	})
}

// transform applies fn to each frame of inner without changing the stream's
// length or termination.
type transform struct {
	inner Animation
	name  string
	fn    func(strip.Frame) strip.Frame
}

func (t transform) Name() string { return t.name }

func (t transform) Frames(nrOfLEDs int) iter.Seq2[strip.Frame, error] {
	return func(yield func(strip.Frame, error) bool) {
		for frame, err := range t.inner.Frames(nrOfLEDs) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(t.fn(frame), nil) {
				return
			}
		}
	}
}

// Delay holds a back for the given number of frames, yielding all-Unset
// frames meanwhile. It ends exactly when a ends.
func Delay(a Animation, frames int) Animation {
	if frames <= 0 {
		return a
	}
	return delayed{inner: a, frames: frames}
}

type delayed struct {
	inner  Animation
	frames int
}

func (d delayed) Name() string {
	return fmt.Sprintf("delay(%s, %d)", NameOf(d.inner), d.frames)
}

func (d delayed) Frames(nrOfLEDs int) iter.Seq2[strip.Frame, error] {
	return func(yield func(strip.Frame, error) bool) {
		for i := 0; i < d.frames; i++ {
			if !yield(strip.NewFrame(nrOfLEDs), nil) {
				return
			}
		}
		for frame, err := range d.inner.Frames(nrOfLEDs) {
			if !yield(frame, err) || err != nil {
				return
			}
		}
	}
}

// Scripted plays a fixed list of frames and then ends. Frames are yielded as
// given, so a wrong-length frame reaches the director unchanged.
func Scripted(name string, frames ...strip.Frame) Animation {
	return scripted{name: name, frames: frames}
}

type scripted struct {
	name   string
	frames []strip.Frame
}

func (s scripted) Name() string { return s.name }

func (s scripted) Frames(int) iter.Seq2[strip.Frame, error] {
	return func(yield func(strip.Frame, error) bool) {
		for _, f := range s.frames {
			if !yield(f, nil) {
				return
			}
		}
	}
}

// Failing yields the given frames and then err.
func Failing(name string, err error, frames ...strip.Frame) Animation {
	return failing{scripted: scripted{name: name, frames: frames}, err: err}
}

type failing struct {
	scripted
	err error
}

func (f failing) Frames(n int) iter.Seq2[strip.Frame, error] {
	return func(yield func(strip.Frame, error) bool) {
		for frame, err := range f.scripted.Frames(n) {
			if !yield(frame, err) {
				return
			}
		}
		yield(nil, f.err)
	}
}
