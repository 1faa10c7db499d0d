//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/ctmon/cooling-tower/internal/pulse"
)

// RealActuator drives actual hardware through the Linux GPIO character device.
type RealActuator struct {
	chip      *gpiocdev.Chip
	relay     *gpiocdev.Line
	indicator *gpiocdev.Line
}

// NewRealActuator requests the relay and indicator pins as outputs, both
// initially low so the heater stays off across restarts.
func NewRealActuator(chipName string, pinRelay, pinIndicator int) (*RealActuator, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	relay, err := chip.RequestLine(pinRelay, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request relay pin %d: %w", pinRelay, err)
	}

	indicator, err := chip.RequestLine(pinIndicator, gpiocdev.AsOutput(0))
	if err != nil {
		relay.Close()
		chip.Close()
		return nil, fmt.Errorf("request indicator pin %d: %w", pinIndicator, err)
	}

	return &RealActuator{
		chip:      chip,
		relay:     relay,
		indicator: indicator,
	}, nil
}

// SetRelay switches the solid-state relay gate.
func (a *RealActuator) SetRelay(on bool) error {
	if err := a.relay.SetValue(level(on)); err != nil {
		return fmt.Errorf("set relay: %w", err)
	}
	return nil
}

// SetIndicator switches the indicator LED.
func (a *RealActuator) SetIndicator(on bool) error {
	if err := a.indicator.SetValue(level(on)); err != nil {
		return fmt.Errorf("set indicator: %w", err)
	}
	return nil
}

// Close drives the relay low before releasing the lines, so the heater is
// never left powered by a restart.
func (a *RealActuator) Close() error {
	var errs []error

	if a.relay != nil {
		if err := a.relay.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("force relay off: %w", err))
		}
		if err := a.relay.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close relay pin: %w", err))
		}
	}
	if a.indicator != nil {
		if err := a.indicator.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("indicator off: %w", err))
		}
		if err := a.indicator.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close indicator pin: %w", err))
		}
	}
	if a.chip != nil {
		if err := a.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func level(on bool) int {
	if on {
		return 1
	}
	return 0
}

// PulseLine counts rising edges from the hall flow sensor into a
// pulse.Counter. The event handler runs on gpiocdev's goroutine; it only
// touches the atomic counter.
type PulseLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewPulseLine requests the flow pin as an input with pull-up and a
// rising-edge event handler feeding the counter.
func NewPulseLine(chipName string, pin int, counter *pulse.Counter) (*PulseLine, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) {
			counter.Add(1)
		}))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request flow pin %d: %w", pin, err)
	}

	return &PulseLine{chip: chip, line: line}, nil
}

// Close releases the pulse line.
func (p *PulseLine) Close() error {
	var errs []error
	if p.line != nil {
		if err := p.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close flow pin: %w", err))
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
