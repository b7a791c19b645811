package task

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"tern/kern/up"
)

// Manager owns the FIFO ready queue and the pid registry.
type Manager struct {
	inner *up.Cell[managerInner]
	log   *logrus.Entry
}

type managerInner struct {
	ready TaskList
	procs map[int]*ProcessControlBlock
}

// NewManager returns an empty manager.
func NewManager(gate up.IntrGate, log *logrus.Entry) *Manager {
	return &Manager{
		inner: up.NewCell(gate, managerInner{procs: make(map[int]*ProcessControlBlock)}),
		log:   log,
	}
}

// Add appends t to the ready queue tail.
func (m *Manager) Add(t *TaskControlBlock) {
	m.inner.ExclusiveSession(func(in *managerInner) {
		in.ready.Push(t)
	})
}

// Fetch pops the ready queue head, or nil when no task is runnable.
func (m *Manager) Fetch() *TaskControlBlock {
	var t *TaskControlBlock
	m.inner.ExclusiveSession(func(in *managerInner) {
		t = in.ready.Pop()
	})
	return t
}

// Remove unlinks t from the ready queue and reports whether it was there.
// Teardown paths use it to pull a task that got requeued while dying.
func (m *Manager) Remove(t *TaskControlBlock) bool {
	var ok bool
	m.inner.ExclusiveSession(func(in *managerInner) {
		ok = in.ready.Remove(t)
	})
	return ok
}

// WakeupTask moves a blocked task to Ready and enqueues it. Waking a task
// that is not blocked is a no-op: the signal path and the timer path can
// race to wake the same sleeper, and the loser must not double-queue it.
func (m *Manager) WakeupTask(t *TaskControlBlock) {
	woke := false
	t.WithInner(func(in *TaskInner) {
		if in.Status == StatusBlocked {
			in.Status = StatusReady
			woke = true
		}
	})
	if !woke {
		m.log.WithFields(logrus.Fields{"pid": t.Pid, "tid": t.Tid}).
			Debug("wakeup of non-blocked task ignored")
		return
	}
	m.Add(t)
	m.log.WithFields(logrus.Fields{"pid": t.Pid, "tid": t.Tid}).Debug("task woken")
}

// InsertPID registers a process.
func (m *Manager) InsertPID(p *ProcessControlBlock) {
	m.inner.ExclusiveSession(func(in *managerInner) {
		if _, ok := in.procs[p.Pid]; ok {
			panic(fmt.Sprintf("task: pid %d registered twice", p.Pid))
		}
		in.procs[p.Pid] = p
	})
}

// RemovePID drops a process from the registry. Removing a pid that is not
// registered is a kernel bug and panics.
func (m *Manager) RemovePID(pid int) {
	m.inner.ExclusiveSession(func(in *managerInner) {
		if _, ok := in.procs[pid]; !ok {
			panic(fmt.Sprintf("task: cannot find pid %d in registry", pid))
		}
		delete(in.procs, pid)
	})
	m.log.WithField("pid", pid).Debug("pid removed from registry")
}

// Processes snapshots every registered process. Shutdown walks this to
// reap parked task goroutines.
func (m *Manager) Processes() []*ProcessControlBlock {
	var ps []*ProcessControlBlock
	m.inner.ExclusiveSession(func(in *managerInner) {
		for _, p := range in.procs {
			ps = append(ps, p)
		}
	})
	return ps
}

// Process looks a process up by pid.
func (m *Manager) Process(pid int) (*ProcessControlBlock, bool) {
	var p *ProcessControlBlock
	var ok bool
	m.inner.ExclusiveSession(func(in *managerInner) {
		p, ok = in.procs[pid]
	})
	return p, ok
}

// ProcessCount reports how many processes are registered.
func (m *Manager) ProcessCount() int {
	var n int
	m.inner.ExclusiveSession(func(in *managerInner) {
		n = len(in.procs)
	})
	return n
}
