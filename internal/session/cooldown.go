package session

import (
	"sync"
	"time"
)

// Cooldown is a countdown decremented by a ticker goroutine. The goroutine
// only runs while the countdown is active and is joined on Close.
type Cooldown struct {
	tick time.Duration

	mu        sync.Mutex
	remaining time.Duration
	running   bool
	closed    bool

	stop chan struct{}
	wg   sync.WaitGroup
}

func newCooldown(tick time.Duration) *Cooldown {
	if tick <= 0 {
		tick = time.Second
	}
	return &Cooldown{tick: tick, stop: make(chan struct{})}
}

// Start resets the countdown to d.
func (c *Cooldown) Start(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || d <= 0 {
		return
	}
	c.remaining = d
	if c.running {
		return
	}
	c.running = true
	c.wg.Add(1)
	go c.run()
}

func (c *Cooldown) run() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.remaining -= c.tick
			if c.remaining <= 0 {
				c.remaining = 0
				c.running = false
				c.mu.Unlock()
				return
			}
			c.mu.Unlock()
		}
	}
}

// Remaining returns the time left before the next claim is allowed.
func (c *Cooldown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Active reports whether the countdown is still running.
func (c *Cooldown) Active() bool {
	return c.Remaining() > 0
}

// Close stops the ticker goroutine and waits for it to exit.
func (c *Cooldown) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.stop)
	c.mu.Unlock()
	c.wg.Wait()
}
