// Background task fan-out with join semantics
package tasks

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Handle tracks one submitted task
type Handle struct {
	name string
	done chan struct{}
	err  error
}

func newHandle(name string) *Handle {
	return &Handle{name: name, done: make(chan struct{})}
}

func (h *Handle) finish(err error) {
	h.err = err
	close(h.done)
}

func (h *Handle) Name() string { return h.name }

// Done is closed once the task returned
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the task finished and returns its error
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Group runs tasks in parallel, at most limit at a time. A failing task
// never cancels its siblings: every task runs to completion.
type Group struct {
	eg      errgroup.Group
	mu      sync.Mutex
	handles []*Handle
}

// NewGroup creates a group; limit <= 0 means unbounded
func NewGroup(limit int) *Group {
	g := &Group{}
	if limit > 0 {
		g.eg.SetLimit(limit)
	}
	return g
}

// Go starts fn and returns its handle. It blocks while the group is at its
// concurrency limit.
func (g *Group) Go(name string, fn func() error) *Handle {
	h := newHandle(name)

	g.mu.Lock()
	g.handles = append(g.handles, h)
	g.mu.Unlock()

	g.eg.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task %s panicked: %v", name, r)
			}
			h.finish(err)
		}()
		return fn()
	})
	return h
}

// Wait joins every task started so far and returns their handles in
// submission order
func (g *Group) Wait() []*Handle {
	_ = g.eg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	result := make([]*Handle, len(g.handles))
	copy(result, g.handles)
	return result
}

// JoinAll waits for every handle, never stopping at the first failure.
// The returned error joins all task errors, nil when all succeeded.
func JoinAll(handles ...*Handle) error {
	var errs []error
	for _, h := range handles {
		if err := h.Wait(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}
	return errors.Join(errs...)
}
