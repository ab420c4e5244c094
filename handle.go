package content

import (
	"context"
	"sync"
)

// HandleState tracks a handle through its life. Terminal states are
// immutable: once fulfilled or rejected a handle never changes again.
type HandleState int

const (
	HandlePending HandleState = iota
	HandleFulfilled
	HandleRejected
)

func (s HandleState) String() string {
	switch s {
	case HandlePending:
		return "pending"
	case HandleFulfilled:
		return "fulfilled"
	case HandleRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Handle is the cached, identity-stable result of one resolution. Repeated
// resolutions of the same (node, scope, overrides) triple within one graph
// version observe the same Handle object, so a caller re-driven after a
// suspension pays nothing for already-settled work and never duplicates
// in-flight work.
type Handle struct {
	mu    sync.Mutex
	state HandleState
	value *Instance
	err   error
	done  chan struct{}
	subs  []func(*Instance, error)
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// settledHandle builds an already-fulfilled handle, used for results that
// are known synchronously (text runs, inline error results).
func settledHandle(value *Instance) *Handle {
	h := newHandle()
	h.fulfill(value)
	return h
}

// State reports the handle's current state.
func (h *Handle) State() HandleState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Get returns the settled value or error without blocking. ok is false while
// the handle is still pending.
func (h *Handle) Get() (value *Instance, err error, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == HandlePending {
		return nil, nil, false
	}
	return h.value, h.err, true
}

// Subscribe registers fn to run when the handle settles. A handle that is
// already settled invokes fn immediately on the calling goroutine, so a
// driver walking an already-resolved graph stays fully synchronous.
func (h *Handle) Subscribe(fn func(*Instance, error)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	if h.state == HandlePending {
		h.subs = append(h.subs, fn)
		h.mu.Unlock()
		return
	}
	value, err := h.value, h.err
	h.mu.Unlock()
	fn(value, err)
}

// Await blocks until the handle settles or ctx is done. The resolution
// itself is never cancelled; a caller wanting a timeout simply stops
// waiting, and stale work becomes unreachable when the graph version moves.
func (h *Handle) Await(ctx context.Context) (*Instance, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.value, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Handle) fulfill(value *Instance) {
	h.settle(HandleFulfilled, value, nil)
}

func (h *Handle) reject(err error) {
	h.settle(HandleRejected, nil, err)
}

func (h *Handle) settle(state HandleState, value *Instance, err error) {
	h.mu.Lock()
	if h.state != HandlePending {
		// Terminal states are immutable; a late settle is dropped.
		h.mu.Unlock()
		return
	}
	h.state = state
	h.value = value
	h.err = err
	subs := h.subs
	h.subs = nil
	close(h.done)
	h.mu.Unlock()

	for _, fn := range subs {
		fn(value, err)
	}
}
