// Package animations is the catalogue of built-in animation kinds that show
// files refer to by name.
package animations

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/smazurov/ledsim/internal/animation"
	"github.com/smazurov/ledsim/internal/strip"
)

var (
	// ErrUnknownKind is returned for a kind that was never registered.
	ErrUnknownKind = errors.New("unknown animation kind")
	// ErrInvalidParams is returned when a factory rejects its parameters.
	ErrInvalidParams = errors.New("invalid animation parameters")
)

// Params configure one animation instance. Zero values select each kind's
// defaults.
type Params struct {
	Color  string `toml:"color" yaml:"color" json:"color,omitempty"`
	Color2 string `toml:"color2" yaml:"color2" json:"color2,omitempty"`
	Length int    `toml:"length" yaml:"length" json:"length,omitempty"`
	Speed  int    `toml:"speed" yaml:"speed" json:"speed,omitempty"`
	Seed   int64  `toml:"seed" yaml:"seed" json:"seed,omitempty"`
}

// Factory builds an animation from params.
type Factory func(p Params) (animation.Animation, error)

// Kind is a registered animation constructor.
type Kind struct {
	Name        string
	Description string
	New         Factory
}

// Registry maps kind names to factories.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Kind
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Kind)}
}

// Register adds k, replacing a kind of the same name.
func (r *Registry) Register(k Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[strings.ToLower(k.Name)] = k
}

// New builds an animation of the named kind.
func (r *Registry) New(name string, p Params) (animation.Animation, error) {
	r.mu.RLock()
	k, ok := r.kinds[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	a, err := k.New(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", k.Name, err)
	}
	return a, nil
}

// Kinds lists the registered kinds sorted by name.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.kinds))
	for _, k := range r.kinds {
		out = append(out, k)
	}
	slices.SortFunc(out, func(a, b Kind) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Default returns a registry holding every built-in kind.
func Default() *Registry {
	r := NewRegistry()
	r.Register(Kind{Name: "basic", Description: "Blue bar whose lit share grows every ten pixels", New: newBasic})
	r.Register(Kind{Name: "comet", Description: "Single head pixel with a fading tail", New: newComet})
	r.Register(Kind{Name: "rainbow", Description: "Band of the full hue circle", New: newRainbow})
	r.Register(Kind{Name: "wipe", Description: "Solid block crossing the strip", New: newWipe})
	r.Register(Kind{Name: "noise", Description: "Band of simplex noise between two colors", New: newNoise})
	return r
}

// color parses s or returns def when s is empty.
func color(s string, def strip.Color) (strip.Color, error) {
	if s == "" {
		return def, nil
	}
	c, err := strip.ParseHex(s)
	if err != nil {
		return strip.Color{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return c, nil
}

// positive returns v, def when v is zero, or an error when v is negative.
func positive(name string, v, def int) (int, error) {
	switch {
	case v == 0:
		return def, nil
	case v < 0:
		return 0, fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidParams, name, v)
	default:
		return v, nil
	}
}
