package clock

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// LiveClock is the wall-clock implementation: TimeNow reads real time,
// timers use time.Ticker, and alerts use time.AfterFunc. Every timer and
// alert fire is funneled through one internal channel drained by a
// single goroutine, so the registered handler never observes two fires
// concurrently no matter how many timers are registered.
type LiveClock struct {
	mu      sync.Mutex
	logger  *zap.Logger
	handler Handler
	timers  map[string]*time.Ticker
	alerts  map[string]*time.Timer
	stop    map[string]chan struct{}

	fires chan TimeEvent
}

// NewLiveClock creates a wall-clock Clock and starts its fire-delivery
// goroutine, which lives for the lifetime of the process.
func NewLiveClock(logger *zap.Logger) *LiveClock {
	c := &LiveClock{
		logger: logger.Named("live-clock"),
		timers: make(map[string]*time.Ticker),
		alerts: make(map[string]*time.Timer),
		stop:   make(map[string]chan struct{}),
		fires:  make(chan TimeEvent, 128),
	}
	go c.drainFires()
	return c
}

func (c *LiveClock) TimeNow() time.Time { return time.Now() }

// RegisterHandler sets the callback invoked on every timer/alert fire.
func (c *LiveClock) RegisterHandler(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// RegisterLogger swaps the logger used for this clock's own diagnostics.
func (c *LiveClock) RegisterLogger(logger *zap.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger.Named("live-clock")
}

// SetTimer registers a recurring timer under label, replacing any timer
// already registered under that label.
func (c *LiveClock) SetTimer(label string, interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.timers[label]; ok {
		t.Stop()
		close(c.stop[label])
	}

	ticker := time.NewTicker(interval)
	stopCh := make(chan struct{})
	c.timers[label] = ticker
	c.stop[label] = stopCh

	go func() {
		for {
			select {
			case t := <-ticker.C:
				c.fire(label, t)
			case <-stopCh:
				return
			}
		}
	}()
}

// SetTimeAlert registers a one-shot alert at alertTime.
func (c *LiveClock) SetTimeAlert(label string, alertTime time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.alerts[label]; ok {
		t.Stop()
	}

	d := time.Until(alertTime)
	c.alerts[label] = time.AfterFunc(d, func() {
		c.fire(label, time.Now())
	})
}

// fire enqueues a single fire onto the delivery channel. It is called
// from the per-timer goroutines and from time.AfterFunc's goroutine;
// the handler itself only ever runs on the drainFires goroutine.
func (c *LiveClock) fire(label string, at time.Time) {
	c.fires <- TimeEvent{Label: label, Time: at}
}

// drainFires delivers every enqueued fire to the registered handler,
// one at a time, from this single goroutine.
func (c *LiveClock) drainFires() {
	for ev := range c.fires {
		c.mu.Lock()
		h := c.handler
		logger := c.logger
		c.mu.Unlock()
		logger.Debug("timer fired", zap.String("label", ev.Label), zap.Time("at", ev.Time))
		if h != nil {
			h(ev.Label, ev.Time)
		}
	}
}

// CancelAllTimers stops every recurring timer.
func (c *LiveClock) CancelAllTimers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for label, t := range c.timers {
		t.Stop()
		close(c.stop[label])
		delete(c.timers, label)
		delete(c.stop, label)
	}
}

// CancelAllTimeAlerts stops every pending alert.
func (c *LiveClock) CancelAllTimeAlerts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for label, t := range c.alerts {
		t.Stop()
		delete(c.alerts, label)
	}
}
