package task

import (
	"github.com/sirupsen/logrus"

	"tern/kern/hart"
	"tern/kern/up"
)

// CycleSource is the machine cycle counter the processor accounts with.
type CycleSource interface {
	Cycles() uint64
}

// Processor tracks what the hart is running and owns the idle context.
// Switch-in happens on the idle side in Run; every switch-out path is a
// method the running task calls on itself.
type Processor struct {
	idle  *hart.TaskContext
	mgr   *Manager
	clock CycleSource
	log   *logrus.Entry

	inner *up.Cell[processorInner]

	// OnTaskExit runs in the dying task's context right after it turns
	// Zombie; the kernel cancels the task's timers here.
	OnTaskExit func(*TaskControlBlock)
	// OnProcessGone runs after the last task of a process exits and the
	// pid has left the registry.
	OnProcessGone func(pid int)
}

type processorInner struct {
	current *TaskControlBlock
}

// NewProcessor returns a processor whose idle context is the goroutine
// that will call Run.
func NewProcessor(gate up.IntrGate, mgr *Manager, clock CycleSource, log *logrus.Entry) *Processor {
	return &Processor{
		idle:  hart.NewTaskContext(),
		mgr:   mgr,
		clock: clock,
		log:   log,
		inner: up.NewCell(gate, processorInner{}),
	}
}

// Current returns the task holding the hart, or nil from idle context.
func (p *Processor) Current() *TaskControlBlock {
	var t *TaskControlBlock
	p.inner.ExclusiveSession(func(in *processorInner) { t = in.current })
	return t
}

// Run switches the hart into t and returns when t switches back out.
// Only the idle context calls this.
func (p *Processor) Run(t *TaskControlBlock) {
	now := p.clock.Cycles()
	t.WithInner(func(in *TaskInner) {
		in.Status = StatusRunning
		in.LastSwitchIn = now
	})
	p.inner.ExclusiveSession(func(in *processorInner) {
		if in.current != nil {
			panic("task: switch-in while a task is current")
		}
		in.current = t
	})
	p.idle.SwitchTo(t.Cx)
}

// Yield requeues the current task and gives the hart back to idle.
func (p *Processor) Yield() {
	t := p.takeCurrent()
	now := p.clock.Cycles()
	t.WithInner(func(in *TaskInner) {
		in.Status = StatusReady
		in.RunCycles += now - in.LastSwitchIn
	})
	p.mgr.Add(t)
	t.Cx.SwitchTo(p.idle)
}

// Block parks the current task. The caller has already put it on some
// wait queue; it runs again when that queue's owner wakes it.
func (p *Processor) Block() {
	t := p.takeCurrent()
	p.markBlocked(t)
	t.Cx.SwitchTo(p.idle)
}

// BlockNoSched marks the current task blocked without giving up the
// hart, and returns the context to hand to Schedule once the caller has
// dropped its locks.
func (p *Processor) BlockNoSched() *hart.TaskContext {
	t := p.takeCurrent()
	p.markBlocked(t)
	return t.Cx
}

// Schedule gives the hart to idle on behalf of a context returned by
// BlockNoSched.
func (p *Processor) Schedule(cx *hart.TaskContext) {
	cx.SwitchTo(p.idle)
}

// WakeUp moves a blocked task back to the ready queue.
func (p *Processor) WakeUp(t *TaskControlBlock) {
	p.mgr.WakeupTask(t)
}

// ExitCurrent turns the current task into a zombie, releases its process
// bookkeeping, and ends the calling goroutine. It does not return.
func (p *Processor) ExitCurrent(code int) {
	t := p.takeCurrent()
	now := p.clock.Cycles()
	t.WithInner(func(in *TaskInner) {
		in.Status = StatusZombie
		in.ExitCode = code
		in.Exited = true
		in.RunCycles += now - in.LastSwitchIn
	})
	if p.OnTaskExit != nil {
		p.OnTaskExit(t)
	}

	proc, ok := p.mgr.Process(t.Pid)
	if !ok {
		panic("task: exiting task belongs to no registered process")
	}
	last := false
	proc.Inner.ExclusiveSession(func(in *ProcessInner) {
		in.Live--
		last = in.Live == 0
	})
	p.log.WithFields(logrus.Fields{"pid": t.Pid, "tid": t.Tid, "code": code}).
		Info("task exited")
	if last {
		p.mgr.RemovePID(t.Pid)
		if p.OnProcessGone != nil {
			p.OnProcessGone(t.Pid)
		}
	}
	t.Cx.Exit(p.idle)
}

func (p *Processor) takeCurrent() *TaskControlBlock {
	var t *TaskControlBlock
	p.inner.ExclusiveSession(func(in *processorInner) {
		t = in.current
		in.current = nil
	})
	if t == nil {
		panic("task: no current task")
	}
	return t
}

func (p *Processor) markBlocked(t *TaskControlBlock) {
	now := p.clock.Cycles()
	t.WithInner(func(in *TaskInner) {
		in.Status = StatusBlocked
		in.RunCycles += now - in.LastSwitchIn
	})
}
