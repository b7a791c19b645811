package sync

import (
	"tern/kern/task"
	"tern/kern/up"
)

// Mutex is a lock a task may hold across suspension points.
type Mutex interface {
	Lock()
	Unlock()
}

// SpinMutex retries over the scheduler: a contended Lock yields and tries
// again, so the task never leaves the ready queue.
type SpinMutex struct {
	s      Sched
	locked *up.Cell[bool]
}

// NewSpinMutex returns an unlocked spin mutex.
func NewSpinMutex(gate up.IntrGate, s Sched) *SpinMutex {
	return &SpinMutex{s: s, locked: up.NewCell(gate, false)}
}

func (m *SpinMutex) Lock() {
	for {
		got := false
		m.locked.ExclusiveSession(func(l *bool) {
			if !*l {
				*l = true
				got = true
			}
		})
		if got {
			return
		}
		m.s.Yield()
	}
}

func (m *SpinMutex) Unlock() {
	m.locked.ExclusiveSession(func(l *bool) { *l = false })
}

// BlockingMutex parks contended lockers and hands the lock to the queue
// head on unlock: ownership transfers directly, the woken task does not
// re-compete.
type BlockingMutex struct {
	s     Sched
	inner *up.Cell[blockingMutexInner]
}

type blockingMutexInner struct {
	locked  bool
	waiters task.TaskList
}

// NewBlockingMutex returns an unlocked blocking mutex.
func NewBlockingMutex(gate up.IntrGate, s Sched) *BlockingMutex {
	return &BlockingMutex{s: s, inner: up.NewCell(gate, blockingMutexInner{})}
}

func (m *BlockingMutex) Lock() {
	wait := false
	m.inner.ExclusiveSession(func(in *blockingMutexInner) {
		if in.locked {
			in.waiters.Push(m.s.Current())
			wait = true
		} else {
			in.locked = true
		}
	})
	if wait {
		m.s.Block()
	}
}

func (m *BlockingMutex) Unlock() {
	var next *task.TaskControlBlock
	m.inner.ExclusiveSession(func(in *blockingMutexInner) {
		next = in.waiters.Pop()
		if next == nil {
			in.locked = false
		}
	})
	if next != nil {
		m.s.WakeUp(next)
	}
}
