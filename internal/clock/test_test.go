package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestClockIterateTimeFiresTimersInOrder(t *testing.T) {
	start := time.Date(2020, 3, 14, 9, 0, 0, 0, time.UTC)
	c := NewTestClock(start)

	var fired []string
	c.RegisterHandler(func(label string, at time.Time) { fired = append(fired, label) })

	c.SetTimer("tick-1m", time.Minute)
	c.SetTimeAlert("alert", start.Add(90*time.Second))

	events := c.IterateTime(start.Add(3 * time.Minute))

	require.Len(t, events, 4)
	assert.Equal(t, []string{"tick-1m", "alert", "tick-1m", "tick-1m"}, fired)
	assert.Equal(t, start.Add(3*time.Minute), c.TimeNow())
}

func TestTestClockIterateTimeNoOpWhenNotAfter(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTestClock(start)
	c.SetTimer("t", time.Minute)

	events := c.IterateTime(start)
	assert.Nil(t, events)
	assert.Equal(t, start, c.TimeNow())
}

func TestTestClockCancelAll(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTestClock(start)
	c.SetTimer("t", time.Minute)
	c.SetTimeAlert("a", start.Add(time.Minute))

	c.CancelAllTimers()
	c.CancelAllTimeAlerts()

	events := c.IterateTime(start.Add(time.Hour))
	assert.Empty(t, events)
}

func TestTestClockSetTimeDoesNotFire(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTestClock(start)

	var fired bool
	c.RegisterHandler(func(string, time.Time) { fired = true })
	c.SetTimer("t", time.Minute)

	c.SetTime(start.Add(time.Hour))

	assert.False(t, fired)
	assert.Equal(t, start.Add(time.Hour), c.TimeNow())
}
