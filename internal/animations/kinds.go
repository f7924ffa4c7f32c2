package animations

import (
	"github.com/smazurov/ledsim/internal/animation"
	"github.com/smazurov/ledsim/internal/pattern"
	"github.com/smazurov/ledsim/internal/strip"
)

// travelling slides a fixed pattern into the strip by speed pixels a frame.
type travelling struct {
	name   string
	speed  int
	source pattern.Source
}

func (t travelling) Name() string               { return t.name }
func (t travelling) Position(frame int) int     { return frame * t.speed }
func (t travelling) Pattern(int) pattern.Source { return t.source }

// newBasic is the growing bar: blocks of length pixels where block k lights
// its first k+1 pixels in color and the rest in color2. From block length-1
// on every pixel is lit, so the strip ends fully lit.
func newBasic(p Params) (animation.Animation, error) {
	on, err := color(p.Color, strip.Blue)
	if err != nil {
		return nil, err
	}
	off, err := color(p.Color2, strip.Black)
	if err != nil {
		return nil, err
	}
	period, err := positive("length", p.Length, 10)
	if err != nil {
		return nil, err
	}
	speed, err := positive("speed", p.Speed, 1)
	if err != nil {
		return nil, err
	}

	lit, dark := strip.Px(on), strip.Px(off)
	source := pattern.Func(func(coord int) strip.Pixel {
		if coord%period <= coord/period {
			return lit
		}
		return dark
	})
	return animation.Derive(travelling{name: "basic", speed: speed, source: source}), nil
}

// newComet is a head pixel followed by length-1 pixels dimming toward black.
func newComet(p Params) (animation.Animation, error) {
	head, err := color(p.Color, strip.White)
	if err != nil {
		return nil, err
	}
	length, err := positive("length", p.Length, 8)
	if err != nil {
		return nil, err
	}
	speed, err := positive("speed", p.Speed, 1)
	if err != nil {
		return nil, err
	}

	tail := make([]strip.Pixel, length)
	for i := range tail {
		tail[i] = strip.Px(head.Scale(float64(length-i) / float64(length)))
	}
	return animation.Derive(travelling{name: "comet", speed: speed, source: pattern.Bounded(tail...)}), nil
}

// newRainbow is one turn of the hue circle spread over length pixels.
func newRainbow(p Params) (animation.Animation, error) {
	length, err := positive("length", p.Length, 30)
	if err != nil {
		return nil, err
	}
	speed, err := positive("speed", p.Speed, 1)
	if err != nil {
		return nil, err
	}

	band := make([]strip.Pixel, length)
	for i := range band {
		band[i] = strip.Px(strip.HSV(360*float64(i)/float64(length), 1, 1))
	}
	return animation.Derive(travelling{name: "rainbow", speed: speed, source: pattern.Bounded(band...)}), nil
}

// newWipe is a block of length pixels in one color.
func newWipe(p Params) (animation.Animation, error) {
	c, err := color(p.Color, strip.White)
	if err != nil {
		return nil, err
	}
	length, err := positive("length", p.Length, 10)
	if err != nil {
		return nil, err
	}
	speed, err := positive("speed", p.Speed, 1)
	if err != nil {
		return nil, err
	}

	block := make([]strip.Pixel, length)
	for i := range block {
		block[i] = strip.Px(c)
	}
	return animation.Derive(travelling{name: "wipe", speed: speed, source: pattern.Bounded(block...)}), nil
}
