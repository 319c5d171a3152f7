// Package live runs widgets server-side. Each browser page gets a Session
// holding a single-goroutine event Loop, a Page that turns DOM mutations into
// patches streamed back to the browser, and the widget mounted for it.
package live

import (
	"context"
	"sync"
	"time"
)

// Loop executes tasks one at a time, in the order they were posted. Every
// widget method runs on its loop, so widgets never need locks.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewLoop starts a loop. Close it to release its goroutine.
func NewLoop() *Loop {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loop{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	for {
		select {
		case <-l.done:
			return
		case <-l.wake:
		}
		for {
			l.mu.Lock()
			if len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			fn := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()

			select {
			case <-l.done:
				return
			default:
			}
			fn()
		}
	}
}

// Context is canceled when the loop closes. Remote calls started through
// Call use it.
func (l *Loop) Context() context.Context { return l.ctx }

// Post queues fn. It never blocks and reports false once the loop is closed.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the loop and waits for it. It must not be called from the
// loop itself.
func (l *Loop) Do(fn func()) bool {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-l.done:
		return false
	}
}

// Flush waits until every task posted before the call has run.
func (l *Loop) Flush() { l.Do(func() {}) }

// Close stops the loop and cancels its context. Queued tasks are dropped.
func (l *Loop) Close() {
	l.once.Do(func() {
		close(l.done)
		l.cancel()
	})
}

// Done is closed when the loop stops.
func (l *Loop) Done() <-chan struct{} { return l.done }

// ─── Timers ───────────────────────────────────────────────────────────────────

// Timer is a one-shot timer whose callback runs on the loop.
type Timer struct {
	t       *time.Timer
	stopped bool // owned by the loop
}

// AfterFunc runs fn on the loop after d. Stopping the timer from the loop
// guarantees fn will not run, even if the deadline already passed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	tm := &Timer{}
	tm.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if tm.stopped {
				return
			}
			tm.stopped = true
			fn()
		})
	})
	return tm
}

// Stop cancels the timer. It must be called from the loop.
func (t *Timer) Stop() {
	if t == nil {
		return
	}
	t.stopped = true
	t.t.Stop()
}

// Ticker runs a callback on the loop at a fixed interval.
type Ticker struct {
	stop chan struct{}
	once sync.Once
}

// Every runs fn on the loop every d until the ticker is stopped or the loop
// closes. Ticks are not coalesced with slow work started by fn.
func (l *Loop) Every(d time.Duration, fn func()) *Ticker {
	tk := &Ticker{stop: make(chan struct{})}
	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-tk.stop:
				return
			case <-l.done:
				return
			case <-ticker.C:
				l.Post(func() {
					select {
					case <-tk.stop:
					default:
						fn()
					}
				})
			}
		}
	}()
	return tk
}

// Stop ends the ticker. It is safe to call more than once.
func (t *Ticker) Stop() {
	if t == nil {
		return
	}
	t.once.Do(func() { close(t.stop) })
}

// ─── Remote calls ─────────────────────────────────────────────────────────────

// Call runs fn on its own goroutine with the loop context and resumes done on
// the loop with the outcome. This is the only place a widget suspends.
func Call[T any](l *Loop, fn func(context.Context) (T, error), done func(T, error)) {
	go func() {
		v, err := fn(l.ctx)
		l.Post(func() { done(v, err) })
	}()
}
