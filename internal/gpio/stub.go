//go:build !linux

package gpio

import (
	"errors"

	"github.com/ctmon/cooling-tower/internal/pulse"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealActuator is not available on non-Linux platforms.
type RealActuator struct{}

// NewRealActuator returns an error on non-Linux platforms.
func NewRealActuator(string, int, int) (*RealActuator, error) {
	return nil, errUnsupported
}

func (a *RealActuator) SetRelay(bool) error     { return errUnsupported }
func (a *RealActuator) SetIndicator(bool) error { return errUnsupported }
func (a *RealActuator) Close() error            { return nil }

// PulseLine is not available on non-Linux platforms.
type PulseLine struct{}

// NewPulseLine returns an error on non-Linux platforms.
func NewPulseLine(string, int, *pulse.Counter) (*PulseLine, error) {
	return nil, errUnsupported
}

func (p *PulseLine) Close() error { return nil }
