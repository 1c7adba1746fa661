package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/goap-sim/internal/facts"
)

func TestEnergy_DrainAndRecover(t *testing.T) {
	beliefs := facts.NewStoreFrom(facts.State{"WellRested": 1})
	e := NewEnergy(3, 1, "WellRested")

	e.Update(2*time.Second, beliefs)
	assert.InDelta(t, 1.0, e.Current(), 1e-9)
	assert.True(t, beliefs.Has("WellRested"))

	e.Update(2*time.Second, beliefs)
	assert.Zero(t, e.Current())
	assert.False(t, beliefs.Has("WellRested"), "running out withdraws the rested fact")

	e.Update(time.Second, beliefs)
	assert.Zero(t, e.Current(), "stays empty until rested again")

	beliefs.Set("WellRested", 1)
	e.Update(time.Second, beliefs)
	assert.Equal(t, e.Max(), e.Current(), "resting refills the meter")
	assert.True(t, beliefs.Has("WellRested"))
}
