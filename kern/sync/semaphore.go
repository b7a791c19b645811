package sync

import (
	"tern/kern/task"
	"tern/kern/up"
)

// Semaphore is a counting semaphore. A negative count is the number of
// parked waiters.
type Semaphore struct {
	s     Sched
	inner *up.Cell[semaphoreInner]
}

type semaphoreInner struct {
	count   int
	waiters task.TaskList
}

// NewSemaphore returns a semaphore holding n permits.
func NewSemaphore(gate up.IntrGate, s Sched, n int) *Semaphore {
	return &Semaphore{s: s, inner: up.NewCell(gate, semaphoreInner{count: n})}
}

// Up returns a permit and wakes the oldest waiter if one is parked.
func (sem *Semaphore) Up() {
	var wake *task.TaskControlBlock
	sem.inner.ExclusiveSession(func(in *semaphoreInner) {
		in.count++
		if in.count <= 0 {
			wake = in.waiters.Pop()
		}
	})
	if wake != nil {
		sem.s.WakeUp(wake)
	}
}

// Down takes a permit, parking until one is available.
func (sem *Semaphore) Down() {
	wait := false
	sem.inner.ExclusiveSession(func(in *semaphoreInner) {
		in.count--
		if in.count < 0 {
			in.waiters.Push(sem.s.Current())
			wait = true
		}
	})
	if wait {
		sem.s.Block()
	}
}

// Count reads the current counter value.
func (sem *Semaphore) Count() int {
	var n int
	sem.inner.ExclusiveSession(func(in *semaphoreInner) { n = in.count })
	return n
}
