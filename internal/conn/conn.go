// Package conn keeps the actuator node associated with the network and
// connected to the MQTT broker using non-blocking state machines polled by
// the control loop. Neither machine ever sleeps, blocks, or gives up.
package conn

import "time"

// State is the broker session state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	default:
		return "DISCONNECTED"
	}
}

// ReconnectTimer gates connection attempts to a fixed cadence so retries
// never storm. An attempt is allowed only when now-last >= min.
type ReconnectTimer struct {
	last time.Time
	min  time.Duration
}

// NewReconnectTimer creates a timer that allows an immediate first attempt.
func NewReconnectTimer(min time.Duration) ReconnectTimer {
	return ReconnectTimer{min: min}
}

// Ready reports whether a new attempt may be issued.
func (t *ReconnectTimer) Ready(now time.Time) bool {
	return t.last.IsZero() || now.Sub(t.last) >= t.min
}

// Mark records that an attempt was issued at now.
func (t *ReconnectTimer) Mark(now time.Time) {
	t.last = now
}
