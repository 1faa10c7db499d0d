// Package pulse provides the atomic counter shared between the GPIO
// edge-event handler and the control loop.
package pulse

import "sync/atomic"

// Counter accumulates flow sensor pulses. Add is safe to call from the
// gpiocdev event-handler goroutine; ReadAndReset must only be called from
// the control loop. These two methods are the sole safe access pattern —
// never read the count without clearing it.
type Counter struct {
	n atomic.Uint64
}

// Add records n pulses.
func (c *Counter) Add(n uint64) {
	c.n.Add(n)
}

// ReadAndReset returns the pulses accumulated since the previous call and
// clears the count in one atomic step, so no pulse is lost or double-counted
// across the boundary.
func (c *Counter) ReadAndReset() uint64 {
	return c.n.Swap(0)
}
