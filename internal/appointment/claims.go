package appointment

import "sync"

// claims indexes slot instances currently bound to an appointment so that
// lookups and releases act on the instance that won the claim.
type claims struct {
	mu    sync.Mutex
	slots map[slotKey]*Slot
}

func newClaims() *claims {
	return &claims{slots: make(map[slotKey]*Slot)}
}

func (c *claims) put(s *Slot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots[s.key()] = s
}

func (c *claims) get(k slotKey) (*Slot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[k]
	return s, ok
}

// release frees the instance claimed for k when it is still bound to
// appointmentID. A claim taken since by another appointment is left alone.
func (c *claims) release(k slotKey, appointmentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[k]
	if !ok || s.BoundAppointment() != appointmentID {
		return false
	}
	delete(c.slots, k)
	s.Release()
	return true
}

// pruneBefore drops released or stale entries dated before cutoff.
func (c *claims) pruneBefore(cutoff Date) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.slots {
		if k.date.Before(cutoff) {
			delete(c.slots, k)
			n++
		}
	}
	return n
}

func (c *claims) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}
