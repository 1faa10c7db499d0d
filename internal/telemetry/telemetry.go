// Package telemetry defines the cooling-tower telemetry message and the
// decode/validate pipeline that turns an inbound payload into a trusted
// flow reading.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ctmon/cooling-tower/internal/control"
)

// Flow sensor constants (YF-S201 class hall sensor).
const (
	// HzPerLPM converts pulse frequency to liters per minute: f = 7.5 * Q.
	HzPerLPM = 7.5
	// PulsesPerLiter is the pulse count for one liter of water.
	PulsesPerLiter = 450.0
	// Sentinel marks a failed sensor read on the sensing node.
	Sentinel = -999.0
)

// Decode errors. Callers compare with errors.Is to classify drops.
var (
	ErrMalformed      = errors.New("telemetry: malformed payload")
	ErrDeviceMismatch = errors.New("telemetry: device id mismatch")
	ErrNoFlowField    = errors.New("telemetry: no recognized flow field")
)

// Message is the telemetry document exchanged between the nodes. Pointer
// fields distinguish an absent field from a zero value; device_id is a
// pointer too, so a carried empty id is not mistaken for an absent one.
// Timestamp is milliseconds since device boot, not wall clock.
type Message struct {
	DeviceID  *string `json:"device_id,omitempty"`
	Timestamp *int64  `json:"timestamp,omitempty"`

	// Flow, in descending priority. Only one is normally present.
	FlowRate     *float64 `json:"flow_rate,omitempty"`      // L/min
	WaterFlowLPM *float64 `json:"water_flow_lpm,omitempty"` // L/min
	FlowLPM      *float64 `json:"flow_lpm,omitempty"`       // L/min
	FlowHz       *float64 `json:"flow_hz,omitempty"`        // pulse frequency
	PulsesPerSec *float64 `json:"pulses_per_sec,omitempty"` // raw pulse rate

	// Informational fields; accepted but not required by the actuator.
	WaterTempInlet   *float64 `json:"water_temp_inlet,omitempty"`
	WaterTempOutlet  *float64 `json:"water_temp_outlet,omitempty"`
	AirTempInlet     *float64 `json:"air_temp_inlet,omitempty"`
	AirHumidityInlet *float64 `json:"air_humidity_inlet,omitempty"`
}

// Device returns the carried device identifier, or "" when the field is
// absent.
func (m *Message) Device() string {
	if m.DeviceID == nil {
		return ""
	}
	return *m.DeviceID
}

// Flow extracts the flow value in L/min using the ordered fallback chain:
// flow_rate, water_flow_lpm, flow_lpm, flow_hz (÷7.5), pulses_per_sec
// (×60/450). The first present field wins.
func (m *Message) Flow() (float64, bool) {
	switch {
	case m.FlowRate != nil:
		return *m.FlowRate, true
	case m.WaterFlowLPM != nil:
		return *m.WaterFlowLPM, true
	case m.FlowLPM != nil:
		return *m.FlowLPM, true
	case m.FlowHz != nil:
		return *m.FlowHz / HzPerLPM, true
	case m.PulsesPerSec != nil:
		return *m.PulsesPerSec * 60.0 / PulsesPerLiter, true
	}
	return 0, false
}

// Valid reports whether a sensing-node message is fit to forward: every
// sensor field present, none equal to the sentinel, and each inside its
// physical range (water 0–100°C, air −40–80°C, humidity 0–100%, flow ≥ 0).
func (m *Message) Valid() bool {
	checks := []struct {
		v        *float64
		min, max float64
	}{
		{m.FlowRate, 0, 1e9},
		{m.WaterTempInlet, 0, 100},
		{m.WaterTempOutlet, 0, 100},
		{m.AirTempInlet, -40, 80},
		{m.AirHumidityInlet, 0, 100},
	}
	for _, c := range checks {
		if c.v == nil || *c.v == Sentinel || *c.v < c.min || *c.v > c.max {
			return false
		}
	}
	return true
}

// Parse decodes a payload into the full message document. Used by
// consumers that want more than the flow reading.
func Parse(payload []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return m, nil
}

// Decode parses an inbound payload into a flow reading stamped with now.
//
// Drops (returned as errors, no state change anywhere): unparseable JSON;
// a carried device_id that does not exactly match peerID, an empty carried
// id included (only an absent field, or an empty peerID filter, passes);
// no recognized flow field.
func Decode(payload []byte, peerID string, now time.Time) (control.FlowReading, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return control.FlowReading{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if peerID != "" && m.DeviceID != nil && *m.DeviceID != peerID {
		return control.FlowReading{}, fmt.Errorf("%w: got %q, want %q", ErrDeviceMismatch, *m.DeviceID, peerID)
	}
	lpm, ok := m.Flow()
	if !ok {
		return control.FlowReading{}, ErrNoFlowField
	}
	return control.FlowReading{
		LPM:        lpm,
		ReceivedAt: now,
		DeviceID:   m.Device(),
	}, nil
}
