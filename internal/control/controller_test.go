package control

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestController() *Controller {
	return New(Config{
		WindowLength:     time.Second,
		FlowTimeout:      12 * time.Second,
		DefaultDuty:      30,
		DefaultThreshold: 0.2,
		StartEnabled:     true,
	})
}

func acceptFlow(c *Controller, lpm float64, at time.Time) {
	c.Accept(FlowReading{LPM: lpm, ReceivedAt: at, DeviceID: "TOWER_SENSOR_01"})
}

func TestInterlockFalseBeforeFirstReading(t *testing.T) {
	c := newTestController()

	if c.InterlockEnabled(t0) {
		t.Error("interlock enabled with no reading ever received")
	}
	if c.Tick(t0) {
		t.Error("relay ON with no reading ever received")
	}
	// Still off well past any window boundary.
	if c.Tick(t0.Add(time.Hour)) {
		t.Error("relay ON an hour in with no reading")
	}
}

func TestInterlockEnablesOnNextEvaluation(t *testing.T) {
	c := newTestController()
	acceptFlow(c, 5.0, t0)

	if !c.InterlockEnabled(t0) {
		t.Error("interlock not enabled immediately after a valid reading")
	}
	if !c.Tick(t0) {
		t.Error("relay OFF at window phase 0 with duty 30")
	}
}

func TestInterlockStaleness(t *testing.T) {
	c := newTestController()
	acceptFlow(c, 5.0, t0)

	// At exactly the timeout the reading still counts.
	if !c.InterlockEnabled(t0.Add(12 * time.Second)) {
		t.Error("interlock dropped at exactly flow timeout")
	}
	// One millisecond past, it trips — even mid ON-phase of a window.
	at := t0.Add(12*time.Second + time.Millisecond)
	if c.InterlockEnabled(at) {
		t.Error("interlock still enabled past flow timeout")
	}
	if c.Tick(at) {
		t.Error("relay ON past flow timeout")
	}
}

func TestInterlockThreshold(t *testing.T) {
	c := newTestController()

	acceptFlow(c, 0.19, t0)
	if c.InterlockEnabled(t0) {
		t.Error("interlock enabled below threshold")
	}

	acceptFlow(c, 0.2, t0)
	if !c.InterlockEnabled(t0) {
		t.Error("interlock disabled at exactly threshold")
	}
}

func TestOperatorDisableOverridesEverything(t *testing.T) {
	c := newTestController()
	acceptFlow(c, 5.0, t0)
	c.SetDuty(100)
	c.SetEnabled(false)

	if c.Tick(t0) {
		t.Error("relay ON with heater disabled, interlock valid, duty 100")
	}
}

func TestBurstWindowDuty30(t *testing.T) {
	// window 1000ms, duty 30: ON for [0,300) of each window, OFF for [300,1000).
	c := newTestController()
	acceptFlow(c, 5.0, t0)

	// Keep the reading fresh by re-accepting periodically.
	for _, win := range []int{0, 1, 2} {
		base := t0.Add(time.Duration(win) * time.Second)
		acceptFlow(c, 5.0, base)
		cases := []struct {
			offsetMs int
			want     bool
		}{
			{0, true},
			{150, true},
			{299, true},
			{300, false},
			{650, false},
			{999, false},
		}
		for _, tc := range cases {
			got := c.Tick(base.Add(time.Duration(tc.offsetMs) * time.Millisecond))
			if got != tc.want {
				t.Errorf("window %d offset %dms: relay=%v, want %v", win, tc.offsetMs, got, tc.want)
			}
		}
	}
}

func TestBurstDutyExtremes(t *testing.T) {
	c := newTestController()
	acceptFlow(c, 5.0, t0)

	c.SetDuty(0)
	for ms := 0; ms < 1000; ms += 100 {
		if c.Tick(t0.Add(time.Duration(ms) * time.Millisecond)) {
			t.Fatalf("duty 0: relay ON at %dms", ms)
		}
	}

	c.SetDuty(100)
	acceptFlow(c, 5.0, t0)
	for ms := 0; ms < 1000; ms += 100 {
		if !c.Tick(t0.Add(time.Duration(ms) * time.Millisecond)) {
			t.Fatalf("duty 100: relay OFF at %dms", ms)
		}
	}
}

func TestWindowAdvancesWithoutDrift(t *testing.T) {
	c := newTestController()
	c.SetDuty(50)

	// Tick with irregular jitter across many windows; the ON/OFF decision
	// must always be relative to exact 1s boundaries from the first tick.
	acceptFlow(c, 5.0, t0)
	c.Tick(t0) // synchronizes windowStart to t0

	jitter := []int{3, 7, 11, 17, 23}
	for win := 1; win <= 50; win++ {
		base := t0.Add(time.Duration(win) * time.Second)
		acceptFlow(c, 5.0, base)
		j := time.Duration(jitter[win%len(jitter)]) * time.Millisecond
		if !c.Tick(base.Add(j)) {
			t.Fatalf("window %d: relay OFF at phase %v with duty 50", win, j)
		}
		if c.Tick(base.Add(500*time.Millisecond + j)) {
			t.Fatalf("window %d: relay ON at phase %v with duty 50", win, 500*time.Millisecond+j)
		}
	}
}

func TestWindowSkipsWholeWindowsWhenPollIsSlow(t *testing.T) {
	c := newTestController()
	c.SetDuty(30)
	acceptFlow(c, 5.0, t0)
	c.Tick(t0)

	// Next poll arrives 3.25 windows later; phase must be 250ms into the
	// current window, which is inside the ON fraction.
	acceptFlow(c, 5.0, t0.Add(3*time.Second))
	if !c.Tick(t0.Add(3250 * time.Millisecond)) {
		t.Error("relay OFF at phase 250ms after a slow poll")
	}
	if c.Tick(t0.Add(3350 * time.Millisecond)) {
		t.Error("relay ON at phase 350ms with duty 30")
	}
}

func TestWindowResyncsAfterInterlockRecovery(t *testing.T) {
	c := newTestController()
	c.SetDuty(30)
	acceptFlow(c, 5.0, t0)
	c.Tick(t0)

	// Flow goes stale; relay off, window invalidated.
	gap := t0.Add(20 * time.Second)
	if c.Tick(gap) {
		t.Fatal("relay ON while stale")
	}

	// Recovery at an instant that would be 650ms into the old window grid.
	// A fresh window must start here, so the relay is ON.
	rec := t0.Add(20*time.Second + 650*time.Millisecond)
	acceptFlow(c, 5.0, rec)
	if !c.Tick(rec) {
		t.Error("relay OFF on first tick after interlock recovery")
	}
}

func TestScenarioTimeout12s(t *testing.T) {
	// timeout 12000ms, threshold 0.2; reading of 5.0 at t=0 enables the
	// interlock; at t=12001ms with no further message the relay is OFF
	// even mid ON-phase.
	c := New(Config{
		WindowLength:     time.Second,
		FlowTimeout:      12 * time.Second,
		DefaultDuty:      100,
		DefaultThreshold: 0.2,
		StartEnabled:     true,
	})
	acceptFlow(c, 5.0, t0)

	if !c.Tick(t0) {
		t.Fatal("relay OFF at t=0")
	}
	if !c.Tick(t0.Add(11 * time.Second)) {
		t.Fatal("relay OFF at t=11s with fresh-enough reading")
	}
	if c.Tick(t0.Add(12*time.Second + time.Millisecond)) {
		t.Error("relay ON at t=12.001s after flow went stale")
	}
}

func TestClamping(t *testing.T) {
	c := newTestController()

	if got := c.SetDuty(150); got != 100 {
		t.Errorf("SetDuty(150): stored %d, want 100", got)
	}
	if got := c.SetDuty(-5); got != 0 {
		t.Errorf("SetDuty(-5): stored %d, want 0", got)
	}
	if got := c.SetThreshold(-1.5); got != 0 {
		t.Errorf("SetThreshold(-1.5): stored %v, want 0", got)
	}
	if got := c.SetThreshold(2.5); got != 2.5 {
		t.Errorf("SetThreshold(2.5): stored %v, want 2.5", got)
	}
}

func TestNewClampsDefaults(t *testing.T) {
	c := New(Config{
		WindowLength:     time.Second,
		FlowTimeout:      time.Second,
		DefaultDuty:      250,
		DefaultThreshold: -3,
	})
	in := c.Intent()
	if in.DutyPercent != 100 {
		t.Errorf("default duty: got %d, want 100", in.DutyPercent)
	}
	if in.ThresholdLPM != 0 {
		t.Errorf("default threshold: got %v, want 0", in.ThresholdLPM)
	}
}

func TestNewBackstopsDegenerateWindow(t *testing.T) {
	// A zero or negative window length must not wedge Tick: the window
	// catch-up advances by whole window lengths and makes no progress over
	// a non-positive one. New falls back to the one-second default.
	for _, winLen := range []time.Duration{0, -time.Second} {
		c := New(Config{
			WindowLength:     winLen,
			FlowTimeout:      12 * time.Second,
			DefaultDuty:      50,
			DefaultThreshold: 0.2,
			StartEnabled:     true,
		})
		acceptFlow(c, 5.0, t0)

		// Ticks well past the first window boundary return promptly and
		// follow the default 1s grid: ON for [0,500), OFF for [500,1000).
		if !c.Tick(t0) {
			t.Errorf("window %v: relay OFF at phase 0 with duty 50", winLen)
		}
		if c.Tick(t0.Add(600 * time.Millisecond)) {
			t.Errorf("window %v: relay ON at phase 600ms with duty 50", winLen)
		}
		acceptFlow(c, 5.0, t0.Add(5*time.Second))
		if !c.Tick(t0.Add(5*time.Second + 100*time.Millisecond)) {
			t.Errorf("window %v: relay OFF at phase 100ms five windows in", winLen)
		}
	}
}

func TestLastFlowSuperseded(t *testing.T) {
	c := newTestController()

	if _, ok := c.LastFlow(); ok {
		t.Error("LastFlow reported a reading before any arrived")
	}

	acceptFlow(c, 5.0, t0)
	acceptFlow(c, 7.5, t0.Add(time.Second))

	r, ok := c.LastFlow()
	if !ok || r.LPM != 7.5 {
		t.Errorf("LastFlow: got (%v,%v), want (7.5,true)", r.LPM, ok)
	}
}
