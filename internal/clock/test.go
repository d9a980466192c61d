package clock

import (
	"sort"
	"time"

	"go.uber.org/zap"
)

type testTimer struct {
	interval time.Duration
	next     time.Time
}

// TestClock is the deterministic backtest clock: time only advances when
// the caller calls SetTime or IterateTime, and every timer/alert fire in
// that window is both delivered synchronously to the registered handler
// and returned to the caller in chronological order.
type TestClock struct {
	now     time.Time
	logger  *zap.Logger
	handler Handler
	timers  map[string]*testTimer
	alerts  map[string]time.Time
}

// NewTestClock creates a TestClock fixed at start.
func NewTestClock(start time.Time) *TestClock {
	return &TestClock{
		now:    start,
		logger: zap.NewNop(),
		timers: make(map[string]*testTimer),
		alerts: make(map[string]time.Time),
	}
}

func (c *TestClock) TimeNow() time.Time { return c.now }

func (c *TestClock) RegisterHandler(h Handler) { c.handler = h }

// RegisterLogger swaps the logger used for this clock's own diagnostics.
// A TestClock stays silent by default (zap.NewNop) since backtests run
// thousands of iterations where per-fire logging would be noise.
func (c *TestClock) RegisterLogger(logger *zap.Logger) { c.logger = logger.Named("test-clock") }

// SetTimer registers a recurring timer whose first fire is at
// TimeNow()+interval, replacing any timer already registered under label.
func (c *TestClock) SetTimer(label string, interval time.Duration) {
	c.timers[label] = &testTimer{interval: interval, next: c.now.Add(interval)}
}

// SetTimeAlert registers a one-shot alert at alertTime.
func (c *TestClock) SetTimeAlert(label string, alertTime time.Time) {
	c.alerts[label] = alertTime
}

// CancelAllTimers removes every registered recurring timer.
func (c *TestClock) CancelAllTimers() { c.timers = make(map[string]*testTimer) }

// CancelAllTimeAlerts removes every pending alert.
func (c *TestClock) CancelAllTimeAlerts() { c.alerts = make(map[string]time.Time) }

// SetTime jumps the clock directly to t without generating timer events --
// used to seed the clock before a test begins iterating.
func (c *TestClock) SetTime(t time.Time) { c.now = t }

// IterateTime advances the clock from its current time to t, firing (and
// returning, in chronological order) every timer and alert that falls in
// (previous now, t]. The registered handler is invoked once per fire,
// synchronously, on the caller's goroutine.
func (c *TestClock) IterateTime(t time.Time) []TimeEvent {
	if !t.After(c.now) {
		c.now = t
		return nil
	}

	var events []TimeEvent

	for label, deadline := range c.alerts {
		if !deadline.After(t) {
			events = append(events, TimeEvent{Label: label, Time: deadline})
			delete(c.alerts, label)
		}
	}

	for label, tm := range c.timers {
		for !tm.next.After(t) {
			events = append(events, TimeEvent{Label: label, Time: tm.next})
			tm.next = tm.next.Add(tm.interval)
		}
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Time.Before(events[j].Time) })

	c.now = t

	c.logger.Debug("iterated time", zap.Time("to", t), zap.Int("events", len(events)))

	if c.handler != nil {
		for _, ev := range events {
			c.handler(ev.Label, ev.Time)
		}
	}

	return events
}
