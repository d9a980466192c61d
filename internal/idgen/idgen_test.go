package idgen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/atlas-desktop/strategy-engine/internal/clock"
)

func TestGeneratorFormat(t *testing.T) {
	clk := clock.NewTestClock(time.Date(2020, 3, 14, 9, 26, 53, 0, time.UTC))
	g := New("O", "000", "EMA-001", clk)

	assert.Equal(t, "O-20200314-092653-000-EMA-001-1", g.Generate())
	assert.Equal(t, "O-20200314-092653-000-EMA-001-2", g.Generate())
	assert.Equal(t, "O-20200314-092653-000-EMA-001-3", g.Generate())
}

func TestGeneratorResetZeroesCounter(t *testing.T) {
	clk := clock.NewTestClock(time.Date(2020, 3, 14, 9, 26, 53, 0, time.UTC))
	g := New("P", "000", "EMA-001", clk)

	g.Generate()
	g.Generate()
	g.Reset()

	assert.Equal(t, 0, g.Count())
	assert.Equal(t, "P-20200314-092653-000-EMA-001-1", g.Generate())
}

func TestGeneratorIDsAreDistinctAndIncreasing(t *testing.T) {
	clk := clock.NewTestClock(time.Now())
	g := New("O", "T", "S", clk)

	seen := make(map[string]bool)
	for i := 1; i <= 50; i++ {
		id := g.Generate()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		assert.Equal(t, i, g.Count())
	}
}
