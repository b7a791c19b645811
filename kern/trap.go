package kern

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"tern/kern/abi"
	"tern/kern/hart"
	"tern/kern/task"
)

// pollIntr drains deliverable interrupt lines at an instruction boundary
// of the current task. The timer line rearms the tick, wakes due sleepers
// and preempts the caller; the external line services the console. Either
// way the pending-signal check runs before control returns to the task,
// matching what a trap exit does.
func (k *Kernel) pollIntr(e *Env) {
	for {
		line, ok := k.intr.Take()
		if !ok {
			return
		}
		switch line.Cause() {
		case hart.CauseSupervisorTimer:
			k.tmr.SetNextTrigger()
			k.tmr.Check()
			k.proc.Yield()
		case hart.CauseSupervisorExternal:
			k.uart.HandleIRQ()
		default:
			panic(fmt.Sprintf("kern: unexpected interrupt line %d in user context", line))
		}
		k.checkSignals(e)
	}
}

// faultCurrent kills the current task the way hardware faults do: post
// the matching signal and take the signal exit. It does not return.
func (k *Kernel) faultCurrent(e *Env, cause hart.Cause, addr uint64) {
	sig := task.SigSEGV
	if cause == hart.CauseIllegalInstruction {
		sig = task.SigILL
	}
	k.log.WithFields(logrus.Fields{
		"pid":   e.t.Pid,
		"tid":   e.t.Tid,
		"cause": cause.String(),
		"addr":  fmt.Sprintf("%#x", addr),
		"sepc":  fmt.Sprintf("%#x", e.t.Trap.SEPC),
	}).Warn("fault in application, kernel killed it")

	k.process(e.t.Pid).Inner.ExclusiveSession(func(in *task.ProcessInner) {
		in.Signals |= sig
	})
	k.checkSignals(e)
	panic("kern: fault did not exit the task")
}

// checkSignals exits the current task when a fatal signal is pending.
// Exit codes and messages follow the classic numbering.
func (k *Kernel) checkSignals(e *Env) {
	var flags task.SignalFlags
	k.process(e.t.Pid).Inner.ExclusiveSession(func(in *task.ProcessInner) {
		flags = in.Signals
	})
	code, msg, fatal := flags.Check()
	if !fatal {
		return
	}
	k.log.WithFields(logrus.Fields{"pid": e.t.Pid, "tid": e.t.Tid}).Warn(msg)
	k.proc.ExitCurrent(code)
}

// handleSyscall routes a trap by call number. An unknown number is a bug
// in the caller, and panicking here takes the task down the abort path.
func (k *Kernel) handleSyscall(e *Env, id, a0, a1, a2, a4 uint64) int64 {
	e.t.CountSyscall(id)
	if k.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		k.log.WithFields(logrus.Fields{"pid": e.t.Pid, "tid": e.t.Tid, "call": abi.Name(id)}).Trace("syscall")
	}
	switch id {
	case abi.SysConnect:
		return k.sysConnect(e, a0, a1, a2)
	case abi.SysRead:
		return k.sysRead(e, a0, a1, a2)
	case abi.SysWrite:
		return k.sysWrite(e, a0, a1, a2)
	case abi.SysExit:
		k.proc.ExitCurrent(int(int64(a0)))
		panic("kern: exit returned")
	case abi.SysSleep:
		return k.sysSleep(e, a0)
	case abi.SysYield:
		k.proc.Yield()
		return 0
	case abi.SysKill:
		return k.sysKill(a0, a1)
	case abi.SysGetTime:
		return k.sysGetTime(e, a0)
	case abi.SysGetPid:
		return int64(e.t.Pid)
	case abi.SysSbrk:
		return k.sysSbrk(e, int64(a0))
	case abi.SysMunmap:
		return k.sysMunmap(e, a0, a1)
	case abi.SysMmap:
		return k.sysMmap(e, a0, a1, a2)
	case abi.SysTaskInfo:
		return k.sysTaskInfo(e, a0)
	case abi.SysThreadCreate:
		return k.sysThreadCreate(e, a0, a1)
	case abi.SysGetTid:
		return int64(e.t.Tid)
	case abi.SysWaitTid:
		return k.sysWaittid(e, a0)
	case abi.SysMutexCreate:
		return k.sysMutexCreate(e, a0)
	case abi.SysMutexLock:
		return k.sysMutexLock(e, a0)
	case abi.SysMutexUnlock:
		return k.sysMutexUnlock(e, a0)
	case abi.SysSemaphoreCreate:
		return k.sysSemaphoreCreate(e, a0)
	case abi.SysSemaphoreUp:
		return k.sysSemaphoreUp(e, a0)
	case abi.SysSemaphoreDown:
		return k.sysSemaphoreDown(e, a0)
	case abi.SysCondvarCreate:
		return k.sysCondvarCreate(e)
	case abi.SysCondvarSignal:
		return k.sysCondvarSignal(e, a0)
	case abi.SysCondvarWait:
		return k.sysCondvarWait(e, a0, a1)
	case abi.SysCondvarWaitTO:
		return k.sysCondvarWaitTimeout(e, a0, a1, a2)
	default:
		panic(fmt.Sprintf("kern: unsupported syscall %d", id))
	}
}
