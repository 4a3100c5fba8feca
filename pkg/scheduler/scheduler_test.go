package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualScheduler(t *testing.T) {
	t.Run("Advance Fires Tasks", func(t *testing.T) {
		sched := NewManualScheduler()
		var count int
		sched.Every(time.Second, func() { count++ })

		sched.Advance(3)
		assert.Equal(t, 3, count)
	})

	t.Run("Stopped Task Never Fires", func(t *testing.T) {
		sched := NewManualScheduler()
		var count int
		task := sched.Every(time.Second, func() { count++ })

		sched.Advance(2)
		task.Stop()
		sched.Advance(5)
		assert.Equal(t, 2, count)
	})

	t.Run("Stop Twice Is Safe", func(t *testing.T) {
		sched := NewManualScheduler()
		task := sched.Every(time.Second, func() {})
		task.Stop()
		task.Stop()
	})
}

func TestTickerScheduler(t *testing.T) {
	sched := NewTickerScheduler()
	var count atomic.Int64
	task := sched.Every(time.Millisecond, func() { count.Add(1) })
	defer task.Stop()

	assert.Eventually(t, func() bool {
		return count.Load() >= 3
	}, time.Second, time.Millisecond)

	task.Stop()
	settled := count.Load()
	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, count.Load(), settled+1)
}
