// Package show reads show files: ordered lists of animations with the global
// frame each one starts at.
//
// A show file is TOML or YAML, chosen by extension:
//
//	[[animations]]
//	start_frame = 0
//	kind = "basic"
//
//	[[animations]]
//	start_frame = 120
//	kind = "comet"
//	color = "#ff8800"
//	length = 12
//	reverse = true
package show

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/smazurov/ledsim/internal/animation"
	"github.com/smazurov/ledsim/internal/animations"
	"github.com/smazurov/ledsim/internal/strip"
)

var (
	// ErrUnsupportedFormat is returned for file extensions other than
	// .toml, .yaml and .yml.
	ErrUnsupportedFormat = errors.New("unsupported show format")
	// ErrInvalidEntry is returned for an entry that fails validation.
	ErrInvalidEntry = errors.New("invalid show entry")
)

// DefaultTintAmount is used when an entry sets tint without tint_amount.
const DefaultTintAmount = 0.5

// Format is a show file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from path's extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Entry schedules one animation.
type Entry struct {
	StartFrame int    `toml:"start_frame" yaml:"start_frame" json:"start_frame"`
	Kind       string `toml:"kind" yaml:"kind" json:"kind"`

	animations.Params `yaml:",inline"`

	Reverse    bool    `toml:"reverse" yaml:"reverse" json:"reverse,omitempty"`
	Delay      int     `toml:"delay" yaml:"delay" json:"delay,omitempty"`
	Tint       string  `toml:"tint" yaml:"tint" json:"tint,omitempty"`
	TintAmount float64 `toml:"tint_amount" yaml:"tint_amount" json:"tint_amount,omitempty"`
}

// Show is the decoded file in registration order.
type Show struct {
	Animations []Entry `toml:"animations" yaml:"animations" json:"animations"`
}

// Load reads and validates the show at path.
func Load(path string) (*Show, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read show: %w", err)
	}
	s, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes data strictly: unknown keys are errors.
func Parse(data []byte, format Format) (*Show, error) {
	var s Show
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty document decodes to io.EOF.
		if err := dec.Decode(&s); err != nil && len(bytes.TrimSpace(data)) > 0 {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks every entry without building animations.
func (s *Show) Validate() error {
	var errs []error
	for i, e := range s.Animations {
		if err := e.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("animation %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Validate checks the scheduling fields of e.
func (e Entry) Validate() error {
	switch {
	case e.StartFrame < 0:
		return fmt.Errorf("%w: start_frame must be non-negative, got %d", ErrInvalidEntry, e.StartFrame)
	case strings.TrimSpace(e.Kind) == "":
		return fmt.Errorf("%w: kind is required", ErrInvalidEntry)
	case e.Delay < 0:
		return fmt.Errorf("%w: delay must be non-negative, got %d", ErrInvalidEntry, e.Delay)
	case e.TintAmount < 0 || e.TintAmount > 1:
		return fmt.Errorf("%w: tint_amount must be within [0,1], got %v", ErrInvalidEntry, e.TintAmount)
	}
	return nil
}

// Build constructs the entry's animation from reg and applies the tint,
// reverse and delay modifiers in that order.
func (e Entry) Build(reg *animations.Registry) (animation.Animation, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	a, err := reg.New(e.Kind, e.Params)
	if err != nil {
		return nil, err
	}

	if e.Tint != "" {
		c, err := strip.ParseHex(e.Tint)
		if err != nil {
			return nil, fmt.Errorf("%w: tint: %v", ErrInvalidEntry, err)
		}
		amount := e.TintAmount
		if amount == 0 {
			amount = DefaultTintAmount
		}
		a = animation.Tint(a, c, amount)
	}
	if e.Reverse {
		a = animation.Reverse(a)
	}
	return animation.Delay(a, e.Delay), nil
}
