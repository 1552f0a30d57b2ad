// Package expiry schedules the deadline of the active poll.
//
// At most one timer is live. Every Arm hands out a fresh Ticket; a firing
// only counts if its ticket is still the live one when the owner claims it,
// so a timer that races a Disarm or a re-Arm resolves to a no-op.
package expiry

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type Ticket struct {
	PollID     string
	Generation uint64
}

type Coordinator struct {
	mu     sync.Mutex
	clock  clock.Clock
	onFire func(Ticket)
	timer  *clock.Timer
	live   Ticket
	armed  bool
	gen    uint64
}

// New returns a Coordinator that calls onFire from the timer goroutine.
// onFire must not block on anything that itself waits on the Coordinator.
func New(clk clock.Clock, onFire func(Ticket)) *Coordinator {
	if clk == nil {
		clk = clock.New()
	}
	return &Coordinator{clock: clk, onFire: onFire}
}

// Arm replaces any live timer with one for pollID firing at deadline.
func (c *Coordinator) Arm(pollID string, deadline time.Time) Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.gen++
	t := Ticket{PollID: pollID, Generation: c.gen}
	c.live = t
	c.armed = true
	c.timer = c.clock.AfterFunc(deadline.Sub(c.clock.Now()), func() { c.fire(t) })
	return t
}

func (c *Coordinator) Disarm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Claim consumes t if it is still the live ticket. It succeeds at most once
// per Arm.
func (c *Coordinator) Claim(t Ticket) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.armed || c.live != t {
		return false
	}
	c.armed = false
	c.timer = nil
	return true
}

func (c *Coordinator) Armed() (Ticket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live, c.armed
}

func (c *Coordinator) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.armed = false
}

func (c *Coordinator) fire(t Ticket) {
	c.mu.Lock()
	stale := !c.armed || c.live != t
	c.mu.Unlock()
	if stale {
		return
	}
	c.onFire(t)
}
