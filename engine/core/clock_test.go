package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockElapsedAfterUpdate(t *testing.T) {
	c := NewClock()
	c.Start()
	time.Sleep(5 * time.Millisecond)
	c.Update()
	assert.Greater(t, c.Elapsed(), 0.0)
}

func TestClockNotStartedStaysAtZero(t *testing.T) {
	c := NewClock()
	c.Update()
	assert.Zero(t, c.Elapsed())
}

func TestClockStopFreezesElapsed(t *testing.T) {
	c := NewClock()
	c.Start()
	time.Sleep(time.Millisecond)
	c.Update()
	frozen := c.Elapsed()

	c.Stop()
	c.Update()
	assert.Equal(t, frozen, c.Elapsed())
}

func TestClockStartResetsElapsed(t *testing.T) {
	c := NewClock()
	c.Start()
	time.Sleep(time.Millisecond)
	c.Update()
	assert.Greater(t, c.Elapsed(), 0.0)

	c.Start()
	assert.Zero(t, c.Elapsed())
}
