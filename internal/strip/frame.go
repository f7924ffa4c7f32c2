package strip

import (
	"slices"
	"strings"
)

// Pixel is either a Color or Unset. The zero value is Unset.
type Pixel struct {
	Color Color
	Set   bool
}

// Unset means "do not overwrite this position this frame".
var Unset = Pixel{}

// Px wraps a color as a set pixel.
func Px(c Color) Pixel {
	return Pixel{Color: c, Set: true}
}

func (p Pixel) String() string {
	if !p.Set {
		return "."
	}
	return p.Color.Hex()
}

// Frame is the per-position output of one animation for one tick.
type Frame []Pixel

// NewFrame returns an all-Unset frame of n positions.
func NewFrame(n int) Frame {
	return make(Frame, n)
}

// Equal reports whether both frames hold the same pixels.
func (f Frame) Equal(other Frame) bool {
	return slices.Equal(f, other)
}

// Reversed returns a copy with position 0 and position n-1 swapped, etc.
func (f Frame) Reversed() Frame {
	if f == nil {
		return nil
	}
	out := slices.Clone(f)
	slices.Reverse(out)
	return out
}

// IsEmpty reports whether every position is Unset.
func (f Frame) IsEmpty() bool {
	for _, p := range f {
		if p.Set {
			return false
		}
	}
	return true
}

func (f Frame) String() string {
	parts := make([]string, len(f))
	for i, p := range f {
		parts[i] = p.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// State is the authoritative color of every strip position. It never holds Unset.
type State []Color

// NewState returns an all-black state of n positions.
func NewState(n int) State {
	return make(State, n)
}

// Clone returns an independent copy.
func (s State) Clone() State {
	return slices.Clone(s)
}

// Apply folds frames into s in place; later frames overwrite earlier ones and
// Unset never overwrites.
func (s State) Apply(frames ...Frame) {
	for _, f := range frames {
		n := min(len(f), len(s))
		for i := 0; i < n; i++ {
			if f[i].Set {
				s[i] = f[i].Color
			}
		}
	}
}

// Hex returns every position as "#rrggbb".
func (s State) Hex() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Hex()
	}
	return out
}

// Blend returns base overwritten, position by position, by the last frame
// that is not Unset there. base itself is not modified.
func Blend(base State, frames ...Frame) State {
	out := base.Clone()
	out.Apply(frames...)
	return out
}
