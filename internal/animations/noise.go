package animations

import (
	"github.com/ojrac/opensimplex-go"

	"github.com/smazurov/ledsim/internal/animation"
	"github.com/smazurov/ledsim/internal/pattern"
	"github.com/smazurov/ledsim/internal/strip"
)

const (
	noiseSpatialScale  = 0.15
	noiseTemporalScale = 0.05
)

// noiseBand is a band of length pixels whose colors drift over time. Each
// pixel samples 2D simplex noise at (coordinate, frame) and maps the value
// onto the gradient between from and to.
type noiseBand struct {
	noise    opensimplex.Noise
	from, to strip.Color
	length   int
	speed    int
}

func (n noiseBand) Name() string           { return "noise" }
func (n noiseBand) Position(frame int) int { return frame * n.speed }

func (n noiseBand) Pattern(frame int) pattern.Source {
	t := float64(frame) * noiseTemporalScale
	return pattern.Func(func(coord int) strip.Pixel {
		if coord >= n.length {
			return strip.Unset
		}
		v := n.noise.Eval2(float64(coord)*noiseSpatialScale, t)
		return strip.Px(strip.FromColorful(n.from.Colorful().BlendHcl(n.to.Colorful(), v)))
	})
}

func newNoise(p Params) (animation.Animation, error) {
	from, err := color(p.Color, strip.MustParseHex("#ff4000"))
	if err != nil {
		return nil, err
	}
	to, err := color(p.Color2, strip.MustParseHex("#2000ff"))
	if err != nil {
		return nil, err
	}
	length, err := positive("length", p.Length, 60)
	if err != nil {
		return nil, err
	}
	speed, err := positive("speed", p.Speed, 1)
	if err != nil {
		return nil, err
	}

	return animation.Derive(noiseBand{
		noise:  opensimplex.NewNormalized(p.Seed),
		from:   from,
		to:     to,
		length: length,
		speed:  speed,
	}), nil
}
