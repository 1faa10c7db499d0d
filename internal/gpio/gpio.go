// Package gpio drives the heater relay and status indicator outputs and
// counts flow sensor pulses, with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Actuator drives the output pins.
type Actuator interface {
	// SetRelay switches the solid-state relay. true = heater powered.
	SetRelay(on bool) error

	// SetIndicator switches the telemetry indicator LED.
	SetIndicator(on bool) error

	// Close forces the relay off and releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinRelay     = 17 // solid-state relay gate
	DefaultPinIndicator = 27 // telemetry indicator LED
	DefaultPinFlow      = 22 // hall flow sensor pulse input
)
