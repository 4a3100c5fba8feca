package scheduler

import (
	"sync"
	"time"
)

// Task is a handle to a scheduled periodic callback. Stop cancels future
// runs; stopping twice is safe.
type Task interface {
	Stop()
}

// Scheduler defines the interface for a component that runs a callback
// periodically. The hold timer ticks on it; tests drive it by hand.
type Scheduler interface {
	// Every schedules fn to run once per interval until the task is stopped.
	Every(interval time.Duration, fn func()) Task
}

// TickerScheduler implements Scheduler with a time.Ticker per task.
type TickerScheduler struct{}

// NewTickerScheduler creates a TickerScheduler.
func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{}
}

// Make sure we conform to the interface
var _ Scheduler = (*TickerScheduler)(nil)

// Every starts a goroutine that invokes fn once per interval.
func (s *TickerScheduler) Every(interval time.Duration, fn func()) Task {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()
	return &tickerTask{ticker: ticker, done: done}
}

type tickerTask struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *tickerTask) Stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}

// ManualScheduler implements Scheduler for tests: nothing runs until the
// test calls Advance.
type ManualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

// NewManualScheduler creates a ManualScheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Make sure we conform to the interface
var _ Scheduler = (*ManualScheduler)(nil)

// Every registers fn without running it.
func (s *ManualScheduler) Every(interval time.Duration, fn func()) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := &manualTask{fn: fn}
	s.tasks = append(s.tasks, task)
	return task
}

// Advance fires every live task n times, simulating n elapsed intervals.
func (s *ManualScheduler) Advance(n int) {
	for i := 0; i < n; i++ {
		s.mu.Lock()
		tasks := make([]*manualTask, len(s.tasks))
		copy(tasks, s.tasks)
		s.mu.Unlock()

		for _, task := range tasks {
			task.run()
		}
	}
}

type manualTask struct {
	mu      sync.Mutex
	fn      func()
	stopped bool
}

func (t *manualTask) run() {
	t.mu.Lock()
	stopped := t.stopped
	fn := t.fn
	t.mu.Unlock()
	if !stopped {
		fn()
	}
}

func (t *manualTask) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}
