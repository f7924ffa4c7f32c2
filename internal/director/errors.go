package director

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned for rejected construction or registration
	// parameters.
	ErrInvalidConfig = errors.New("invalid director configuration")

	// ErrAnimationFault marks a broken animation contract.
	ErrAnimationFault = errors.New("animation fault")

	// ErrFrameLength is the fault for a frame whose length differs from the strip.
	ErrFrameLength = errors.New("frame length mismatch")

	// ErrProducerPanic is the fault for a producer that panicked.
	ErrProducerPanic = errors.New("animation producer panicked")

	// ErrAlreadyRunning is returned by Run and Tick while another Run or Tick
	// holds the director.
	ErrAlreadyRunning = errors.New("director already running")
)

// FaultError describes a contract violation by one animation.
type FaultError struct {
	Animation string
	Frame     int // relative frame being pulled
	Err       error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("animation %q faulted at frame %d: %v", e.Animation, e.Frame, e.Err)
}

func (e *FaultError) Unwrap() []error {
	return []error{ErrAnimationFault, e.Err}
}
