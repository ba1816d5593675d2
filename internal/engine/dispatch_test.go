package engine

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"
)

func TestDispatcherPerUserOrdering(t *testing.T) {
	var mu sync.Mutex
	var got []string

	d := NewDispatcher(func(ctx context.Context, ev Event) {
		// Slow the handler slightly so queued events pile up.
		time.Sleep(time.Millisecond)
		mu.Lock()
		got = append(got, ev.Payload)
		mu.Unlock()
	})

	const n = 50
	for i := 0; i < n; i++ {
		d.Enqueue(Event{Type: EventText, UserID: 1, Payload: strconv.Itoa(i)})
	}
	d.Wait()

	if len(got) != n {
		t.Fatalf("expected %d handled events, got %d", n, len(got))
	}
	for i, p := range got {
		if p != strconv.Itoa(i) {
			t.Fatalf("event %d handled out of order: got %q", i, p)
		}
	}
}

func TestDispatcherCrossUserParallelism(t *testing.T) {
	release := make(chan struct{})

	d := NewDispatcher(func(ctx context.Context, ev Event) {
		switch ev.UserID {
		case 1:
			// Blocks until user 2's event has been handled, which only
			// happens if users are drained on independent goroutines.
			<-release
		case 2:
			close(release)
		}
	})

	d.Enqueue(Event{Type: EventText, UserID: 1})
	d.Enqueue(Event{Type: EventText, UserID: 2})

	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher serialized events across users")
	}
}

func TestDispatcherReusesIdleUser(t *testing.T) {
	var mu sync.Mutex
	count := 0

	d := NewDispatcher(func(ctx context.Context, ev Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	d.Enqueue(Event{Type: EventText, UserID: 1})
	d.Wait()
	// The drain goroutine has exited; a new event must start a fresh one.
	d.Enqueue(Event{Type: EventText, UserID: 1})
	d.Wait()

	mu.Lock()
	defer mu.Unlock()
	if count != 2 {
		t.Errorf("expected 2 handled events, got %d", count)
	}
}
