package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeFiresInDeadlineOrder(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	var order []string

	c.AfterFunc(3*time.Second, func() { order = append(order, "c") })
	c.AfterFunc(1*time.Second, func() { order = append(order, "a") })
	c.AfterFunc(2*time.Second, func() { order = append(order, "b") })

	c.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, 1, c.Pending())

	c.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, time.Unix(3, 0), c.Now())
}

func TestFakeStop(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	c.Advance(time.Minute)
	assert.False(t, fired)
	assert.Equal(t, 0, c.Pending())
}

func TestFakeCallbackSchedulesWithinWindow(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	var fired []time.Time

	c.AfterFunc(time.Second, func() {
		fired = append(fired, c.Now())
		c.AfterFunc(time.Second, func() { fired = append(fired, c.Now()) })
	})

	c.Advance(5 * time.Second)
	assert.Equal(t, []time.Time{time.Unix(1, 0), time.Unix(2, 0)}, fired)
}
