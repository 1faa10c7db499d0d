package gpio

// FakeActuator is a test double that records output pin writes.
type FakeActuator struct {
	// Relay and Indicator hold the last written values.
	Relay     bool
	Indicator bool

	// RelayWrites records every SetRelay call in order.
	RelayWrites []bool

	// RelayError, if set, will be returned by SetRelay.
	RelayError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeActuator creates a FakeActuator with both outputs off.
func NewFakeActuator() *FakeActuator {
	return &FakeActuator{}
}

// SetRelay records the relay write.
func (f *FakeActuator) SetRelay(on bool) error {
	if f.RelayError != nil {
		return f.RelayError
	}
	f.Relay = on
	f.RelayWrites = append(f.RelayWrites, on)
	return nil
}

// SetIndicator records the indicator write.
func (f *FakeActuator) SetIndicator(on bool) error {
	f.Indicator = on
	return nil
}

// Close forces the relay off and marks the actuator closed.
func (f *FakeActuator) Close() error {
	f.Relay = false
	f.Indicator = false
	f.Closed = true
	return nil
}
