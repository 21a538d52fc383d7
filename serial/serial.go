// Package serial hands out the protocol serials used to order input events
// and interactive requests.
package serial

import "sync/atomic"

// Counter is a monotonically increasing 32 bit serial source.
// The zero value is ready to use and hands out 1 first.
type Counter struct {
	last atomic.Uint32
}

// Process wide counter used unless a component is given its own
var Global = &Counter{}

// Next returns a serial strictly greater than every serial handed out before.
// Zero is never returned, clients treat it as "no serial".
func (c *Counter) Next() uint32 {
	for {
		v := c.last.Add(1)
		if v != 0 {
			return v
		}
	}
}

// Last returns the most recently issued serial, or 0 if none was issued yet
func (c *Counter) Last() uint32 {
	return c.last.Load()
}

// Newer compares two serials the way wayland clients do, tolerating wrap around
func Newer(a, b uint32) bool {
	return int32(a-b) > 0
}
