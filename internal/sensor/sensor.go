// Package sensor builds telemetry messages on the sensing node and
// publishes them to the broker with buffering across outages.
package sensor

import (
	"github.com/ctmon/cooling-tower/internal/telemetry"
)

// Sample is one reading of the environmental sensors. A failed sensor
// read is reported with the sentinel value, matching the field-level
// fault model of the downstream validators.
type Sample struct {
	WaterTempIn   float64
	WaterTempOut  float64
	AirTempIn     float64
	AirHumidityIn float64
}

// Reader reads the temperature and humidity sensors. Implementations
// must return a Sample even on partial failure, substituting the
// sentinel for fields they could not read.
type Reader interface {
	Read() (Sample, error)
}

// FakeReader is a scripted Reader for tests and bench rigs. Samples are
// returned in order; the last one repeats once the script is exhausted.
type FakeReader struct {
	Samples []Sample
	Err     error

	next int
}

func (f *FakeReader) Read() (Sample, error) {
	if f.Err != nil {
		return Sample{}, f.Err
	}
	if len(f.Samples) == 0 {
		return Sample{
			WaterTempIn:   telemetry.Sentinel,
			WaterTempOut:  telemetry.Sentinel,
			AirTempIn:     telemetry.Sentinel,
			AirHumidityIn: telemetry.Sentinel,
		}, nil
	}
	s := f.Samples[f.next]
	if f.next < len(f.Samples)-1 {
		f.next++
	}
	return s, nil
}

// BuildMessage assembles the telemetry document for one publish
// interval. uptimeMs is milliseconds since node start, flowLPM the flow
// derived from the pulse counter.
func BuildMessage(deviceID string, uptimeMs int64, flowLPM float64, s Sample) telemetry.Message {
	return telemetry.Message{
		DeviceID:         &deviceID,
		Timestamp:        &uptimeMs,
		FlowRate:         &flowLPM,
		WaterTempInlet:   &s.WaterTempIn,
		WaterTempOutlet:  &s.WaterTempOut,
		AirTempInlet:     &s.AirTempIn,
		AirHumidityInlet: &s.AirHumidityIn,
	}
}
