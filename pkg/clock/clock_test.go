package clock

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestStopChargesElapsedTime(t *testing.T) {
	fake := clockwork.NewFakeClock()
	c := New(3*time.Minute, fake)

	c.Start()
	fake.Advance(12 * time.Second)
	c.Stop()

	assert.Equal(t, 3*time.Minute-12*time.Second, c.Remaining())
	assert.False(t, c.Running())
}

func TestStartStopWithoutElapsedTimeKeepsBalance(t *testing.T) {
	fake := clockwork.NewFakeClock()
	c := New(time.Minute, fake)

	c.Start()
	fake.Advance(5 * time.Second)
	c.Stop()
	before := c.Remaining()

	c.Start()
	c.Stop()

	assert.Equal(t, before, c.Remaining())
}

func TestRemainingIsAPureRead(t *testing.T) {
	fake := clockwork.NewFakeClock()
	c := New(time.Minute, fake)

	c.Start()
	fake.Advance(10 * time.Second)
	assert.Equal(t, 50*time.Second, c.Remaining())
	assert.Equal(t, 50*time.Second, c.Remaining())

	fake.Advance(10 * time.Second)
	c.Stop()
	assert.Equal(t, 40*time.Second, c.Remaining())
	assert.Equal(t, 40*time.Second, c.Remaining())
}

func TestStartAndStopAreIdempotent(t *testing.T) {
	fake := clockwork.NewFakeClock()
	c := New(time.Minute, fake)

	c.Stop()
	assert.Equal(t, time.Minute, c.Remaining())

	c.Start()
	fake.Advance(time.Second)
	c.Start()
	fake.Advance(time.Second)
	c.Stop()
	c.Stop()

	assert.Equal(t, 58*time.Second, c.Remaining())
}

func TestRemainingNeverNegative(t *testing.T) {
	fake := clockwork.NewFakeClock()
	c := New(time.Second, fake)

	c.Start()
	fake.Advance(3 * time.Second)
	assert.Equal(t, time.Duration(0), c.Remaining())
	assert.True(t, c.Expired())

	c.Stop()
	assert.Equal(t, time.Duration(0), c.Remaining())
}

func TestResetWhileRunningRestartsFromFullBalance(t *testing.T) {
	fake := clockwork.NewFakeClock()
	c := New(time.Minute, fake)

	c.Start()
	fake.Advance(20 * time.Second)
	c.Reset()
	assert.True(t, c.Running())
	assert.Equal(t, time.Minute, c.Remaining())

	fake.Advance(5 * time.Second)
	assert.Equal(t, 55*time.Second, c.Remaining())
}

func TestResetWhileStoppedClearsGameMarkers(t *testing.T) {
	fake := clockwork.NewFakeClock()
	c := New(time.Minute, fake)

	c.Start()
	fake.Advance(20 * time.Second)
	c.Stop()
	c.EndGame()
	assert.Equal(t, 20*time.Second, c.TotalGameDuration())

	c.Reset()
	assert.Equal(t, time.Minute, c.Remaining())
	assert.Equal(t, time.Duration(0), c.TotalGameDuration())
}

func TestTotalGameDuration(t *testing.T) {
	fake := clockwork.NewFakeClock()
	c := New(0, fake)

	assert.Equal(t, time.Duration(0), c.TotalGameDuration())

	c.Start()
	fake.Advance(90 * time.Second)
	assert.Equal(t, time.Duration(0), c.TotalGameDuration())

	c.EndGame()
	fake.Advance(time.Minute)
	c.EndGame()

	assert.Equal(t, 90*time.Second, c.TotalGameDuration())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "00:00.0", Format(0))
	assert.Equal(t, "01:05.3", Format(65*time.Second+300*time.Millisecond))
	assert.Equal(t, "10:00.0", Format(10*time.Minute))
	assert.Equal(t, "1:02:03.9", Format(time.Hour+2*time.Minute+3*time.Second+999*time.Millisecond))
	assert.Equal(t, "00:00.0", Format(-time.Second))
}
