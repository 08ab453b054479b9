// Package pool runs named tasks on a fixed set of goroutines, ordered by
// deadline. Each task returns the time it wants to run next; returning the
// zero time removes the task from the pool.
package pool

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

type Pool struct {
	mu    sync.Mutex
	queue []*task // deadline order, earliest first
	reg   map[string]*task
	wake  chan struct{}
}

type task struct {
	name     string
	fn       func(context.Context) time.Time
	deadline time.Time
	rerun    bool
}

func New(workers int) *Pool {
	pool := Pool{reg: make(map[string]*task)}

	for range workers {
		go pool.work()
	}

	return &pool
}

// Add schedules a task for immediate execution. The task stays in the pool
// until its function returns the zero time.
func (p *Pool) Add(name string, fn func(context.Context) time.Time) {
	p.enqueue(&task{name: name, fn: fn, deadline: time.Now()})
}

func (p *Pool) work() {
	for {
		ctx := context.Background()
		p.enqueue(p.dequeue().execute(ctx))
	}
}

// Trigger makes the named task run now. A queued task is moved to the front
// of the queue; a task that is currently executing is flagged to re-run as
// soon as it finishes. Later runs revert to the deadlines the task returns.
func (p *Pool) Trigger(n string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i := slices.IndexFunc(p.queue, func(t *task) bool { return t.name == n }); i != -1 {
		p.queue[i].deadline = time.Now()
		p.sortAndWake()
		return nil
	}

	// Not queued, so it must be mid-execution.
	if t, ok := p.reg[n]; ok {
		t.rerun = true
		return nil
	}

	return fmt.Errorf("no task with name %s", n)
}

// sortAndWake requires p.mu to be held.
func (p *Pool) sortAndWake() {
	slices.SortFunc(p.queue, func(a, b *task) int {
		return a.deadline.Compare(b.deadline)
	})

	if p.wake != nil {
		close(p.wake)
		p.wake = nil
	}
}

func (p *Pool) enqueue(t *task) {
	if t.deadline.IsZero() {
		// The task asked to leave the pool.
		delete(p.reg, t.name)
		return
	}

	p.mu.Lock()
	p.reg[t.name] = t
	p.queue = append(p.queue, t)
	p.sortAndWake()
	p.mu.Unlock()
}

func (p *Pool) dequeue() *task {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		var t *task
		if len(p.queue) == 0 {
			// Nothing queued; park on a far-future placeholder until
			// something arrives.
			t = &task{name: "idle", deadline: time.Now().Add(time.Hour * 24 * 365)}
		} else {
			t = p.queue[0]
		}

		if t.deadline.After(time.Now()) {
			// Head of the queue is not due yet. Sleep until its deadline or
			// until an earlier task shows up.

			if p.wake == nil {
				p.wake = make(chan struct{})
			}

			wake := p.wake

			p.mu.Unlock()

			select {
			case <-time.After(time.Until(t.deadline)):
			case <-wake:
			}

			p.mu.Lock()
			continue
		}

		break
	}

	var t *task
	t, p.queue = p.queue[0], p.queue[1:]
	return t
}

func (t *task) execute(ctx context.Context) *task {
	t.deadline = t.fn(ctx)
	if t.rerun {
		t.rerun = false
		t.deadline = time.Now()
	}
	return t
}
