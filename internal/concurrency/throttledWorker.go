package concurrency

import (
	"sync"
	"time"
)

// ThrottledWorker runs queued jobs one at a time on its own goroutine, starting
// at most one job per interval.
type ThrottledWorker[T any] struct {
	jobCallback func(arg T) error
	onError     func(arg T, err error)
	interval    time.Duration

	mu      sync.Mutex
	jobs    chan T
	done    chan struct{}
	stopped bool
}

func NewThrottledWorker[T any](interval time.Duration, queueSize int, jobCallback func(arg T) error, onError func(arg T, err error)) *ThrottledWorker[T] {
	w := &ThrottledWorker[T]{
		jobCallback: jobCallback,
		onError:     onError,
		interval:    interval,
		jobs:        make(chan T, queueSize),
		done:        make(chan struct{}),
	}
	go w.run()
	return w
}

// Submit queues arg. It reports false, without blocking, when the queue is full
// or the worker has been stopped.
func (w *ThrottledWorker[T]) Submit(arg T) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return false
	}
	select {
	case w.jobs <- arg:
		return true
	default:
		return false
	}
}

// Stop runs whatever is still queued and waits for it to finish.
func (w *ThrottledWorker[T]) Stop() {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.jobs)
	}
	w.mu.Unlock()

	<-w.done
}

func (w *ThrottledWorker[T]) run() {
	defer close(w.done)

	var limiter <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		limiter = ticker.C
	}

	for arg := range w.jobs {
		if limiter != nil {
			<-limiter
		}
		if err := w.jobCallback(arg); err != nil && w.onError != nil {
			w.onError(arg, err)
		}
	}
}
