package timer

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const tickInterval = time.Second

// Countdown counts whole seconds down to zero. Each tick measures its drift
// against the expected schedule and shortens the next wait accordingly. A
// tick that arrives more than one interval late re-anchors the schedule to
// the current time: seconds lost while suspended are neither refunded nor
// replayed.
type Countdown struct {
	clock Clock
	log   zerolog.Logger

	mu        sync.Mutex
	total     int
	remaining int
	running   bool
	expected  time.Time
	handle    Handle
	gen       uint64
	onTick    func(remaining int)
	onExpire  func()
}

// New returns a stopped countdown of totalSeconds.
func New(clock Clock, totalSeconds int, log zerolog.Logger) *Countdown {
	if clock == nil {
		clock = RealClock{}
	}
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	return &Countdown{
		clock:     clock,
		log:       log.With().Str("component", "countdown").Logger(),
		total:     totalSeconds,
		remaining: totalSeconds,
	}
}

// Start begins ticking from the current remaining time. A run already in
// progress is stopped first, so its pending tick never fires. onTick is
// called once per second with the seconds left; onExpire is called exactly
// once when the count reaches zero, after the final onTick.
func (c *Countdown) Start(onTick func(remaining int), onExpire func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	if c.remaining <= 0 {
		c.log.Warn().Msg("countdown started with no time left")
		return
	}

	c.onTick = onTick
	c.onExpire = onExpire
	c.running = true
	gen := c.gen
	c.expected = c.clock.Now().Add(tickInterval)
	c.handle = c.clock.AfterFunc(tickInterval, func() { c.tick(gen) })
}

// Stop cancels the pending tick. It is safe to call at any time, any number
// of times.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Countdown) stopLocked() {
	if c.handle != nil {
		c.handle.Stop()
		c.handle = nil
	}
	c.running = false
	c.gen++
}

// Remaining returns the seconds left.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Total returns the configured length in seconds.
func (c *Countdown) Total() int {
	return c.total
}

// Running reports whether a tick is scheduled.
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Countdown) tick(gen uint64) {
	c.mu.Lock()
	if !c.running || gen != c.gen {
		c.mu.Unlock()
		return
	}

	now := c.clock.Now()
	drift := now.Sub(c.expected)
	if drift > tickInterval {
		c.log.Debug().Dur("drift", drift).Msg("countdown re-anchored after late tick")
		c.expected = now
		drift = 0
	}
	if drift < 0 {
		drift = 0
	}

	c.remaining--
	c.expected = c.expected.Add(tickInterval)
	remaining := c.remaining
	onTick, onExpire := c.onTick, c.onExpire
	expired := remaining <= 0
	if expired {
		c.running = false
		c.handle = nil
		c.gen++
	}
	c.mu.Unlock()

	if onTick != nil {
		c.safely("tick", func() { onTick(remaining) })
	}
	if expired {
		if onExpire != nil {
			c.safely("expire", onExpire)
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || gen != c.gen {
		return
	}
	wait := tickInterval - drift
	if wait < 0 {
		wait = 0
	}
	c.handle = c.clock.AfterFunc(wait, func() { c.tick(gen) })
}

func (c *Countdown) safely(callback string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().
				Str("callback", callback).
				Interface("panic", r).
				Msg("countdown callback panicked")
		}
	}()
	fn()
}
