package kern

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"tern/kern/abi"
	"tern/kern/hart"
	"tern/kern/mm"
	"tern/kern/task"
)

// sysSleep parks the caller until the deadline passes. The timer wakes
// it; nothing else holds a reference to it while it sleeps.
func (k *Kernel) sysSleep(e *Env, ms uint64) int64 {
	k.tmr.Add(k.tmr.NowMS()+ms, e.t)
	k.proc.Block()
	return 0
}

// sysKill posts a signal. Unknown signals, unknown pids and re-posting a
// signal that is already pending all fail.
func (k *Kernel) sysKill(pid, signum uint64) int64 {
	flag := task.SignalFromNum(int(signum))
	if flag == 0 {
		return -1
	}
	p, ok := k.mgr.Process(int(pid))
	if !ok {
		return -1
	}
	ret := int64(0)
	p.Inner.ExclusiveSession(func(in *task.ProcessInner) {
		if in.Signals&flag != 0 {
			ret = -1
			return
		}
		in.Signals |= flag
	})
	return ret
}

// sysGetTime writes a TimeVal for the current clock reading to user
// memory at va.
func (k *Kernel) sysGetTime(e *Env, va uint64) int64 {
	buf := abi.EncodeTimeVal(abi.TimeValFromMS(k.tmr.NowMS()))
	var err error
	k.process(e.t.Pid).Inner.ExclusiveSession(func(in *task.ProcessInner) {
		err = in.Space.WriteAt(va, buf)
	})
	if err != nil {
		return -1
	}
	return 0
}

// sysTaskInfo writes the caller's status, scheduled milliseconds and
// per-call counters to user memory at va. The running span since the
// last switch-in counts too, so back-to-back calls move.
func (k *Kernel) sysTaskInfo(e *Env, va uint64) int64 {
	var ti abi.TaskInfo
	now := k.board.Cycles()
	e.t.WithInner(func(in *task.TaskInner) {
		ti.Status = uint32(in.Status)
		cycles := in.RunCycles + (now - in.LastSwitchIn)
		ti.TimeMS = cycles / (k.board.Frequency() / 1000)
		for id, n := range in.Syscalls {
			if id < abi.MaxSyscallNum {
				ti.Syscalls[id] = n
			}
		}
	})

	var err error
	k.process(e.t.Pid).Inner.ExclusiveSession(func(in *task.ProcessInner) {
		err = in.Space.WriteAt(va, abi.EncodeTaskInfo(ti))
	})
	if err != nil {
		return -1
	}
	return 0
}

// sysThreadCreate starts a new task of the calling process at an entry
// address previously registered by the caller, with arg in its a0.
func (k *Kernel) sysThreadCreate(e *Env, entry, arg uint64) int64 {
	idx, ok := entryIndex(entry)
	if !ok {
		return -1
	}
	var prog Program
	k.withExt(e.t.Pid, func(x *procExt) {
		if idx < len(x.entries) {
			prog = x.entries[idx]
		}
	})
	if prog == nil {
		return -1
	}

	p := k.process(e.t.Pid)
	var (
		t      *task.TaskControlBlock
		tid    int
		mapErr error
	)
	p.Inner.ExclusiveSession(func(in *task.ProcessInner) {
		tid = in.TidAlloc.Alloc()
		if err := in.Space.Map(stackLowVA(tid), stackSize, mm.PermR|mm.PermW); err != nil {
			in.TidAlloc.Dealloc(tid)
			mapErr = err
			return
		}
		t = task.NewTask(k.intr, e.t.Pid, tid)
		in.AttachTask(t)
	})
	if mapErr != nil {
		return -1
	}

	t.Trap = hart.AppInitContext(entry, stackTopVA(tid), arg)
	t.WithInner(func(in *task.TaskInner) { in.Status = task.StatusReady })
	k.mgr.Add(t)
	k.startTask(t, prog)

	k.log.WithFields(logrus.Fields{"pid": e.t.Pid, "tid": tid}).Debug("thread created")
	return int64(tid)
}

// sysWaittid collects an exited sibling: returns its code and reclaims
// its tid, slot and stack. Waiting on self or a tid that never existed
// fails with -1; a sibling that has not exited yet reports -2 and the
// caller retries.
func (k *Kernel) sysWaittid(e *Env, tid uint64) int64 {
	wt := int(tid)
	if wt == e.t.Tid {
		// Waiting on self would never finish.
		return -1
	}
	ret := int64(-1)
	k.process(e.t.Pid).Inner.ExclusiveSession(func(in *task.ProcessInner) {
		target := in.Task(wt)
		if target == nil {
			return
		}
		exited := false
		code := 0
		target.WithInner(func(ti *task.TaskInner) {
			exited = ti.Exited
			code = ti.ExitCode
		})
		if !exited {
			ret = -2
			return
		}
		in.Tasks[wt] = nil
		in.TidAlloc.Dealloc(wt)
		// The process may already have munmapped some or all of this
		// band; reclaim page by page and skip the holes, so the tid's
		// next owner starts from a clear range either way.
		for off := uint64(0); off < stackSize; off += mm.PageSize {
			err := in.Space.Unmap(stackLowVA(wt)+off, mm.PageSize)
			if err != nil && !errors.Is(err, mm.ErrNotMapped) {
				panic(fmt.Sprintf("kern: reclaiming tid %d stack: %v", wt, err))
			}
		}
		ret = int64(code)
	})
	return ret
}
