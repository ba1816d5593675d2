package engine

import (
	"context"
	"sync"
)

// Dispatcher enforces the concurrency model: events for one user are handled
// strictly one at a time in arrival order, while different users run in
// parallel. Without this, two quick taps could both read the same
// conversation state before either transition is written.
type Dispatcher struct {
	handle func(ctx context.Context, ev Event)

	mu     sync.Mutex
	queues map[int64][]Event
	active map[int64]bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher that passes events to handle.
func NewDispatcher(handle func(ctx context.Context, ev Event)) *Dispatcher {
	return &Dispatcher{
		handle: handle,
		queues: make(map[int64][]Event),
		active: make(map[int64]bool),
	}
}

// Enqueue appends the event to its user's queue and starts a drain goroutine
// for the user if one is not already running. It never blocks.
func (d *Dispatcher) Enqueue(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.wg.Add(1)
	d.queues[ev.UserID] = append(d.queues[ev.UserID], ev)
	if !d.active[ev.UserID] {
		d.active[ev.UserID] = true
		go d.drain(ev.UserID)
	}
}

// drain processes one user's queue in FIFO order and exits when it empties.
// Queued events outlive the request that delivered them, so handling runs
// under a fresh context.
func (d *Dispatcher) drain(userID int64) {
	for {
		d.mu.Lock()
		queue := d.queues[userID]
		if len(queue) == 0 {
			d.active[userID] = false
			delete(d.queues, userID)
			d.mu.Unlock()
			return
		}
		ev := queue[0]
		d.queues[userID] = queue[1:]
		d.mu.Unlock()

		d.handle(context.Background(), ev)
		d.wg.Done()
	}
}

// Wait blocks until every enqueued event has been handled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
