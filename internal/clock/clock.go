// Package clock provides the engine's clock/timer seam: a live wall-clock
// implementation and a deterministic test clock driven by an external
// caller, behind the single Clock interface the engine depends on.
package clock

import (
	"time"

	"go.uber.org/zap"
)

// Handler receives fired timer and time-alert events. The engine registers
// itself as the handler; the clock calls it synchronously, one fire at a
// time (for LiveClock, on its single fire-delivery goroutine, which every
// timer goroutine enqueues onto; for TestClock, on the caller's own
// goroutine during IterateTime -- it never spawns one).
type Handler func(label string, firedAt time.Time)

// Clock is the seam the engine depends on for the current time and for
// timer/alert registration. It intentionally exposes no locking or
// cancellation primitives: callers marshal everything onto the engine's
// single logical thread of control.
type Clock interface {
	TimeNow() time.Time
	SetTimer(label string, interval time.Duration)
	SetTimeAlert(label string, alertTime time.Time)
	CancelAllTimers()
	CancelAllTimeAlerts()
	RegisterLogger(logger *zap.Logger)
	RegisterHandler(h Handler)
}

// TimeEvent is a single timer/alert fire, used by TestClock.IterateTime to
// report everything that fired between the previous time and the new one.
type TimeEvent struct {
	Label string
	Time  time.Time
}
