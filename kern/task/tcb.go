package task

import (
	"tern/kern/hart"
	"tern/kern/up"
)

// TaskControlBlock carries one thread of control: identity, the saved
// trap frame, the switch context, and scheduling state.
//
// Blocks are shared by pointer between the ready queue, wait queues and
// the timer registry; the intrusive link enforces single-queue residence.
type TaskControlBlock struct {
	// Pid names the owning process. It is a non-owning reference:
	// the process block is always reached through the registry.
	Pid int
	// Tid is the task's slot inside its process.
	Tid int

	// Trap is the saved register file. Only the context holding the
	// hart touches it.
	Trap hart.TrapContext

	// Cx is the switch capability for this task's goroutine.
	Cx *hart.TaskContext

	inner *up.Cell[TaskInner]

	// Intrusive queue link, owned by whichever queue holds the block.
	next   *TaskControlBlock
	queued bool
}

// TaskInner is the lock-protected part of a block.
type TaskInner struct {
	Status   TaskStatus
	ExitCode int
	Exited   bool

	// Accounting: cycles spent scheduled in, and per-call counters
	// keyed by call number.
	RunCycles    uint64
	LastSwitchIn uint64
	Syscalls     map[uint64]uint32
}

// NewTask returns a block in UnInit state with a fresh switch context.
func NewTask(gate up.IntrGate, pid, tid int) *TaskControlBlock {
	return &TaskControlBlock{
		Pid:   pid,
		Tid:   tid,
		Cx:    hart.NewTaskContext(),
		inner: up.NewCell(gate, TaskInner{Status: StatusUnInit}),
	}
}

// WithInner runs f with exclusive access to the mutable state.
func (t *TaskControlBlock) WithInner(f func(*TaskInner)) {
	t.inner.ExclusiveSession(f)
}

// Status reads the current scheduling state.
func (t *TaskControlBlock) Status() TaskStatus {
	var s TaskStatus
	t.inner.ExclusiveSession(func(in *TaskInner) { s = in.Status })
	return s
}

// CountSyscall bumps the per-call counter for id.
func (t *TaskControlBlock) CountSyscall(id uint64) {
	t.inner.ExclusiveSession(func(in *TaskInner) {
		if in.Syscalls == nil {
			in.Syscalls = make(map[uint64]uint32)
		}
		in.Syscalls[id]++
	})
}
