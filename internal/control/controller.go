// Package control contains pure control logic for the heater relay: the
// flow-presence interlock and the burst duty-cycle window.
// This package has NO external dependencies (no GPIO, MQTT, OS, or
// time.Sleep). Time is always injectable via time.Time parameters.
package control

import "time"

// FlowReading is one accepted flow telemetry value. It is immutable once
// created; a newer reading replaces it wholesale.
type FlowReading struct {
	LPM        float64
	ReceivedAt time.Time
	DeviceID   string
}

// Intent holds the operator-settable knobs. The command interpreter is the
// only writer; the controller only reads it.
type Intent struct {
	HeaterEnabled bool
	DutyPercent   int
	ThresholdLPM  float64
}

// Config holds controller tunables.
type Config struct {
	// WindowLength is the burst window; DutyPercent of each window is ON.
	WindowLength time.Duration
	// FlowTimeout is how stale the last flow reading may be before the
	// interlock trips.
	FlowTimeout time.Duration

	DefaultDuty      int
	DefaultThreshold float64
	StartEnabled     bool
}

// Controller derives the relay output each loop tick. The relay is ON only
// when the operator enable flag is set, the flow interlock holds, and the
// current window phase is inside the ON fraction.
type Controller struct {
	windowLen   time.Duration
	flowTimeout time.Duration

	intent   Intent
	lastFlow FlowReading
	hasFlow  bool

	windowStart time.Time
	windowValid bool
}

// defaultWindowLength backstops a degenerate window tunable. The window
// catch-up in Tick cannot make progress over a non-positive length.
const defaultWindowLength = time.Second

// New creates a controller. Duty and threshold defaults are clamped the same
// way operator input is, and a non-positive window length falls back to
// defaultWindowLength.
func New(cfg Config) *Controller {
	windowLen := cfg.WindowLength
	if windowLen <= 0 {
		windowLen = defaultWindowLength
	}
	return &Controller{
		windowLen:   windowLen,
		flowTimeout: cfg.FlowTimeout,
		intent: Intent{
			HeaterEnabled: cfg.StartEnabled,
			DutyPercent:   clampDuty(cfg.DefaultDuty),
			ThresholdLPM:  clampThreshold(cfg.DefaultThreshold),
		},
	}
}

// Accept installs a new flow reading. Single assignment: the controller
// never observes a partially updated reading.
func (c *Controller) Accept(r FlowReading) {
	c.lastFlow = r
	c.hasFlow = true
}

// InterlockEnabled reports whether live flow is proven: a reading exists,
// it is no older than the flow timeout, and it meets the threshold. Before
// the first reading ever arrives this is always false.
func (c *Controller) InterlockEnabled(now time.Time) bool {
	if !c.hasFlow {
		return false
	}
	if now.Sub(c.lastFlow.ReceivedAt) > c.flowTimeout {
		return false
	}
	return c.lastFlow.LPM >= c.intent.ThresholdLPM
}

// Tick computes the relay output for this loop iteration.
//
// The operator enable flag is checked first, then the interlock; either
// failing forces OFF and invalidates the burst window, so the window
// resynchronizes to the current instant on the first tick after recovery
// rather than exposing a stale partial ON-phase.
func (c *Controller) Tick(now time.Time) bool {
	if !c.intent.HeaterEnabled {
		c.windowValid = false
		return false
	}
	if !c.InterlockEnabled(now) {
		c.windowValid = false
		return false
	}

	if !c.windowValid {
		c.windowStart = now
		c.windowValid = true
	}
	// Advance by whole window lengths, never reset to now, so drift stays
	// within one loop iteration's jitter.
	for now.Sub(c.windowStart) >= c.windowLen {
		c.windowStart = c.windowStart.Add(c.windowLen)
	}

	if c.intent.DutyPercent <= 0 {
		return false
	}
	onLen := time.Duration(int64(c.windowLen) * int64(c.intent.DutyPercent) / 100)
	return now.Sub(c.windowStart) < onLen
}

// SetEnabled sets the operator enable flag.
func (c *Controller) SetEnabled(v bool) {
	c.intent.HeaterEnabled = v
}

// SetDuty sets the duty percentage, clamped to [0,100], and returns the
// value actually stored.
func (c *Controller) SetDuty(p int) int {
	c.intent.DutyPercent = clampDuty(p)
	return c.intent.DutyPercent
}

// SetThreshold sets the flow threshold, clamped to >= 0, and returns the
// value actually stored.
func (c *Controller) SetThreshold(lpm float64) float64 {
	c.intent.ThresholdLPM = clampThreshold(lpm)
	return c.intent.ThresholdLPM
}

// Intent returns a copy of the current operator intent.
func (c *Controller) Intent() Intent {
	return c.intent
}

// LastFlow returns the last accepted reading, if any.
func (c *Controller) LastFlow() (FlowReading, bool) {
	return c.lastFlow, c.hasFlow
}

func clampDuty(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func clampThreshold(lpm float64) float64 {
	if lpm < 0 {
		return 0
	}
	return lpm
}
