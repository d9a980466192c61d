package clock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// Fires enqueued from many goroutines must reach the handler one at a
// time: the handler is the engine's dispatch entry point and the engine
// takes no locks.
func TestLiveClockSerializesFires(t *testing.T) {
	c := NewLiveClock(zap.NewNop())

	const fires = 20
	var inHandler, overlaps int32
	var wg sync.WaitGroup
	wg.Add(fires)

	c.RegisterHandler(func(label string, at time.Time) {
		if atomic.AddInt32(&inHandler, 1) > 1 {
			atomic.AddInt32(&overlaps, 1)
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&inHandler, -1)
		wg.Done()
	})

	for i := 0; i < fires; i++ {
		go c.fire("t", time.Now())
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&overlaps), "handler invocations must never overlap")
}

func TestLiveClockCancelAllStopsFiring(t *testing.T) {
	c := NewLiveClock(zap.NewNop())

	var count int32
	c.RegisterHandler(func(string, time.Time) { atomic.AddInt32(&count, 1) })

	c.SetTimer("fast", 5*time.Millisecond)
	time.Sleep(25 * time.Millisecond)
	c.CancelAllTimers()
	c.CancelAllTimeAlerts()

	settled := atomic.LoadInt32(&count)
	assert.Greater(t, settled, int32(0), "timer should have fired at least once before cancel")

	time.Sleep(25 * time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt32(&count), settled+1, "at most one in-flight fire may land after cancel")
}
