// Package status provides a thread-safe status tracker for the actuator
// node. It is read by the HTTP handler and by the STATUS operator command.
package status

import (
	"fmt"
	"sync"
	"time"

	"github.com/ctmon/cooling-tower/internal/conn"
	"github.com/ctmon/cooling-tower/internal/control"
)

// ErrorKind classifies the failures surfaced through diagnostics.
type ErrorKind int

const (
	KindConnectivityTimeout ErrorKind = iota
	KindMalformedTelemetry
	KindDeviceMismatch
	KindStaleTelemetry
	KindInvalidCommand
)

// ErrorCounts holds per-kind error totals since startup.
type ErrorCounts struct {
	ConnectivityTimeout int
	MalformedTelemetry  int
	DeviceMismatch      int
	StaleTelemetry      int
	InvalidCommand      int
}

// Config contains node configuration for display.
type Config struct {
	LoopMs        int64
	WindowMs      int64
	FlowTimeoutMs int64
	Broker        string
	Topic         string
	DeviceID      string
	PeerID        string
	HTTPAddr      string
}

// Snapshot is a point-in-time view of node state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Assoc            conn.AssocState
	Session          conn.State
	RelayOn          bool
	Indicator        bool
	InterlockEnabled bool
	Intent           control.Intent
	LastFlow         *control.FlowReading
	Errors           ErrorCounts
	StartTime        time.Time
	Now              time.Time
	Config           Config
}

// Uptime returns the duration since the node started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// FlowAge returns how old the last flow reading is, and whether one exists.
func (s Snapshot) FlowAge() (time.Duration, bool) {
	if s.LastFlow == nil {
		return 0, false
	}
	return s.Now.Sub(s.LastFlow.ReceivedAt), true
}

// Line renders the one-line STATUS command response.
func (s Snapshot) Line() string {
	flow := "flow=none"
	if age, ok := s.FlowAge(); ok {
		flow = fmt.Sprintf("flow=%.2flpm age=%s", s.LastFlow.LPM, age.Truncate(time.Millisecond))
	}
	return fmt.Sprintf("duty=%d%% enabled=%v interlock=%v relay=%v %s indicator=%v net=%s broker=%s",
		s.Intent.DutyPercent, s.Intent.HeaterEnabled, s.InterlockEnabled, s.RelayOn,
		flow, s.Indicator, s.Assoc, s.Session)
}

// Tracker holds mutable node state behind an RWMutex. The control loop is
// the only writer; HTTP handlers read concurrently.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update sets the per-tick state. Called from the control loop every iteration.
func (t *Tracker) Update(assoc conn.AssocState, session conn.State, relayOn, indicator, interlock bool, intent control.Intent, lastFlow *control.FlowReading) {
	t.mu.Lock()
	t.snap.Assoc = assoc
	t.snap.Session = session
	t.snap.RelayOn = relayOn
	t.snap.Indicator = indicator
	t.snap.InterlockEnabled = interlock
	t.snap.Intent = intent
	t.snap.LastFlow = lastFlow
	t.mu.Unlock()
}

// CountError increments the counter for the given kind.
func (t *Tracker) CountError(kind ErrorKind) {
	t.mu.Lock()
	switch kind {
	case KindConnectivityTimeout:
		t.snap.Errors.ConnectivityTimeout++
	case KindMalformedTelemetry:
		t.snap.Errors.MalformedTelemetry++
	case KindDeviceMismatch:
		t.snap.Errors.DeviceMismatch++
	case KindStaleTelemetry:
		t.snap.Errors.StaleTelemetry++
	case KindInvalidCommand:
		t.snap.Errors.InvalidCommand++
	}
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the node state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
