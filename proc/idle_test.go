package proc

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIdleTimer_FiresOnce(t *testing.T) {
	var fired atomic.Int32
	it := NewIdleTimer(func() { fired.Add(1) })

	it.Reset(20 * time.Millisecond)
	assert.True(t, it.Armed())
	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, fired.Load())
	assert.False(t, it.Armed())
}

func TestIdleTimer_ResetPostpones(t *testing.T) {
	var fired atomic.Int32
	it := NewIdleTimer(func() { fired.Add(1) })

	it.Reset(40 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	it.Reset(200 * time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, fired.Load())
	it.Stop()
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, fired.Load())
}
