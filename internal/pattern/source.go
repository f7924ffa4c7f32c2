// Package pattern provides random-access color sequences indexed by pattern
// coordinate. Animations slice them by a moving window each frame.
package pattern

import (
	"iter"

	"github.com/smazurov/ledsim/internal/strip"
)

// Source returns the pixels occupying the half-open coordinate range
// [start, end). The result is empty when end <= start and negative
// coordinates are Unset. A Source is queried with a different window every
// frame, so it must support random access.
type Source interface {
	Window(start, end int) []strip.Pixel
}

// Func is an infinite Source computed per coordinate. It is only called for
// non-negative coordinates.
type Func func(coord int) strip.Pixel

// Window implements Source.
func (f Func) Window(start, end int) []strip.Pixel {
	if end <= start {
		return nil
	}
	out := make([]strip.Pixel, end-start)
	for i := range out {
		if c := start + i; c >= 0 {
			out[i] = f(c)
		}
	}
	return out
}

// Solid is an infinite run of one color.
func Solid(c strip.Color) Source {
	px := strip.Px(c)
	return Func(func(int) strip.Pixel { return px })
}

// Cycle repeats pixels forever. An empty cycle is all Unset.
func Cycle(pixels ...strip.Pixel) Source {
	if len(pixels) == 0 {
		return Func(func(int) strip.Pixel { return strip.Unset })
	}
	return Func(func(c int) strip.Pixel { return pixels[c%len(pixels)] })
}

// Bounded holds pixels at coordinates 0..len-1 and Unset everywhere else.
func Bounded(pixels ...strip.Pixel) Source {
	return Func(func(c int) strip.Pixel {
		if c < len(pixels) {
			return pixels[c]
		}
		return strip.Unset
	})
}

// Single is a lone pixel at coordinate 0.
func Single(p strip.Pixel) Source {
	return Bounded(p)
}

// Seq adapts a forward-only sequence. Each Window call iterates seq from
// coordinate 0, so seq must be restartable. When seq ends before end the
// window is truncated rather than padded.
func Seq(seq iter.Seq[strip.Pixel]) Source {
	return seqSource{seq: seq}
}

type seqSource struct {
	seq iter.Seq[strip.Pixel]
}

func (s seqSource) Window(start, end int) []strip.Pixel {
	if end <= start {
		return nil
	}
	out := make([]strip.Pixel, 0, end-start)
	for c := start; c < 0 && c < end; c++ {
		out = append(out, strip.Unset)
	}
	if end <= 0 {
		return out
	}
	coord := 0
	for px := range s.seq {
		if coord >= end {
			break
		}
		if coord >= start {
			out = append(out, px)
		}
		coord++
	}
	return out
}
