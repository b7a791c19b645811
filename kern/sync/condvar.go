package sync

import (
	"tern/kern/hart"
	"tern/kern/task"
	"tern/kern/timer"
	"tern/kern/up"
)

// Condvar is a wait queue with explicit signaling. A signal wakes exactly
// one waiter and is forgotten if nobody waits.
type Condvar struct {
	s     Sched
	inner *up.Cell[condvarInner]
}

type condvarInner struct {
	waiters task.TaskList
}

// NewCondvar returns a condition variable with an empty queue.
func NewCondvar(gate up.IntrGate, s Sched) *Condvar {
	return &Condvar{s: s, inner: up.NewCell(gate, condvarInner{})}
}

// Signal wakes the oldest waiter, if any.
func (c *Condvar) Signal() {
	var wake *task.TaskControlBlock
	c.inner.ExclusiveSession(func(in *condvarInner) {
		wake = in.waiters.Pop()
	})
	if wake != nil {
		c.s.WakeUp(wake)
	}
}

// Broadcast wakes every queued waiter.
func (c *Condvar) Broadcast() {
	var wake []*task.TaskControlBlock
	c.inner.ExclusiveSession(func(in *condvarInner) {
		for {
			t := in.waiters.Pop()
			if t == nil {
				break
			}
			wake = append(wake, t)
		}
	})
	for _, t := range wake {
		c.s.WakeUp(t)
	}
}

// Wait releases m, parks until signaled, then reacquires m. The unlock
// happens before the task joins the queue, so a waker that takes the
// mutex cannot signal into a gap.
func (c *Condvar) Wait(m Mutex) {
	m.Unlock()
	c.inner.ExclusiveSession(func(in *condvarInner) {
		in.waiters.Push(c.s.Current())
	})
	c.s.Block()
	m.Lock()
}

// WaitNoSched joins the queue and marks the caller blocked, but keeps the
// hart. The caller drops its locks and then parks through Schedule.
// Drivers use this to sleep while holding a device cell open.
func (c *Condvar) WaitNoSched() *hart.TaskContext {
	c.inner.ExclusiveSession(func(in *condvarInner) {
		in.waiters.Push(c.s.Current())
	})
	return c.s.BlockNoSched()
}

// WaitTimeout is Wait with a deadline, and reports whether the deadline
// fired. Being still queued on wakeup means the timer won; a signal
// always dequeues its target first.
func (c *Condvar) WaitTimeout(m Mutex, tm *timer.Registry, durMS uint64) bool {
	cur := c.s.Current()
	deadline := tm.NowMS() + durMS

	m.Unlock()
	c.inner.ExclusiveSession(func(in *condvarInner) {
		in.waiters.Push(cur)
	})
	tm.Add(deadline, cur)
	c.s.Block()

	timedOut := false
	c.inner.ExclusiveSession(func(in *condvarInner) {
		timedOut = in.waiters.Remove(cur)
	})
	tm.Remove(cur)
	m.Lock()
	return timedOut
}
