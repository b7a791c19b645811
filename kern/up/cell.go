// Package up provides uniprocessor exclusive-access cells for state
// shared between tasks and interrupt handlers.
package up

import "sync"

// IntrGate is the interrupt delivery switch a Cell toggles around every
// access, usually the hart's latch.
type IntrGate interface {
	Disable() bool
	Restore(bool)
}

// Cell serializes access to a shared value. Interrupt delivery is off for
// the whole session, so code inside one must not reach a suspension
// point: no blocking, no switching, no nested session on the same cell.
//
// Re-entering a cell the caller already holds is a kernel bug and panics.
type Cell[T any] struct {
	gate IntrGate
	mu   sync.Mutex
	v    T
}

// NewCell wraps v in a cell guarded by the given gate.
func NewCell[T any](gate IntrGate, v T) *Cell[T] {
	return &Cell[T]{gate: gate, v: v}
}

// ExclusiveSession runs f with exclusive access to the value.
func (c *Cell[T]) ExclusiveSession(f func(*T)) {
	v, release := c.Acquire()
	defer release()
	f(v)
}

// Acquire takes exclusive access and returns the value alongside its
// release function. Prefer ExclusiveSession; Acquire exists for the few
// paths where the critical section does not fit a closure.
func (c *Cell[T]) Acquire() (*T, func()) {
	was := c.gate.Disable()
	if !c.mu.TryLock() {
		panic("up: cell already borrowed")
	}
	return &c.v, func() {
		c.mu.Unlock()
		c.gate.Restore(was)
	}
}
