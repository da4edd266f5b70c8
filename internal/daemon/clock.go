package daemon

import (
	"time"

	"github.com/1broseidon/flurry/internal/platform"
)

// FrameClock drives every binding's tick source from one time.Ticker that
// only runs while at least one source is started. It belongs to the UI loop
// and is not safe for concurrent use.
type FrameClock struct {
	interval time.Duration
	ticker   *time.Ticker
	running  int
}

// NewFrameClock creates an idle clock.
func NewFrameClock(interval time.Duration) *FrameClock {
	return &FrameClock{interval: interval}
}

// C returns the tick channel, or nil while no source is running so that a
// select on it blocks.
func (c *FrameClock) C() <-chan time.Time {
	if c.ticker == nil {
		return nil
	}
	return c.ticker.C
}

// Running returns the number of started sources.
func (c *FrameClock) Running() int {
	return c.running
}

// NewTicker returns a tick source backed by this clock.
func (c *FrameClock) NewTicker(platform.WindowID) platform.Ticker {
	return &clockTicker{clock: c}
}

// Stop halts the underlying ticker.
func (c *FrameClock) Stop() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
	c.running = 0
}

func (c *FrameClock) acquire() {
	c.running++
	if c.ticker == nil {
		c.ticker = time.NewTicker(c.interval)
	}
}

func (c *FrameClock) release() {
	if c.running == 0 {
		return
	}
	c.running--
	if c.running == 0 && c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
}

type clockTicker struct {
	clock   *FrameClock
	running bool
}

func (t *clockTicker) Start() {
	if t.running {
		return
	}
	t.running = true
	t.clock.acquire()
}

func (t *clockTicker) Stop() {
	if !t.running {
		return
	}
	t.running = false
	t.clock.release()
}

func (t *clockTicker) Running() bool {
	return t.running
}
