package kern

import (
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"

	"tern/kern/abi"
	"tern/kern/hart"
	"tern/kern/net"
	"tern/kern/task"
)

// Program is the body of a user task. It runs on its own goroutine and
// touches the machine only through the Env handed to it.
type Program func(*Env)

// Env is one task's window onto the machine. Every method is an
// instruction boundary: the fixed operation cost retires first, then any
// pending interrupt is delivered, then the operation itself runs. A task
// that makes no Env calls makes no progress and cannot be preempted,
// exactly like a task that executes no instructions.
type Env struct {
	k   *Kernel
	t   *task.TaskControlBlock
	arg uint64
}

// startTask launches the goroutine behind a task block. It parks until
// the scheduler switches the task in for the first time.
func (k *Kernel) startTask(t *task.TaskControlBlock, prog Program) {
	go func() {
		t.Cx.Park()
		e := &Env{k: k, t: t, arg: t.Trap.X[hart.RegA0]}
		defer k.recoverAbort(e)
		prog(e)
		e.Exit(0)
	}()
}

// recoverAbort converts a panicking task into SIGABRT instead of taking
// the whole machine down with it.
func (k *Kernel) recoverAbort(e *Env) {
	r := recover()
	if r == nil {
		return
	}
	k.log.WithFields(logrus.Fields{"pid": e.t.Pid, "tid": e.t.Tid, "panic": fmt.Sprint(r)}).
		Error("task panicked, raising SIGABRT")
	p := k.process(e.t.Pid)
	p.Inner.ExclusiveSession(func(in *task.ProcessInner) {
		in.Signals |= task.SigABRT
	})
	k.checkSignals(e)
	panic("kern: abort did not exit the task")
}

// Arg returns the argument the task was started with, captured from a0
// of its initial frame.
func (e *Env) Arg() uint64 { return e.arg }

// Pid returns the owning process id.
func (e *Env) Pid() int { return e.t.Pid }

// Tid returns the task's slot inside its process.
func (e *Env) Tid() int { return e.t.Tid }

// step retires the fixed op cost and delivers anything pending.
func (e *Env) step() {
	e.k.board.Burn(opCost)
	e.k.pollIntr(e)
}

// Ecall traps into the kernel with a system call. Arguments ride in a0,
// a1, a2 and a4; the result comes back through a0.
func (e *Env) Ecall(id, a0, a1, a2, a4 uint64) int64 {
	e.step()
	tf := &e.t.Trap
	tf.X[hart.RegA7] = id
	tf.X[hart.RegA0] = a0
	tf.X[hart.RegA1] = a1
	tf.X[hart.RegA2] = a2
	tf.X[hart.RegA4] = a4
	tf.SEPC += 4
	ret := e.k.handleSyscall(e, id, a0, a1, a2, a4)
	tf.X[hart.RegA0] = uint64(ret)
	e.k.checkSignals(e)
	return ret
}

// Load copies user memory at va into p. A bad access faults the task.
func (e *Env) Load(va uint64, p []byte) {
	e.step()
	var err error
	e.k.process(e.t.Pid).Inner.ExclusiveSession(func(in *task.ProcessInner) {
		err = in.Space.ReadAt(va, p)
	})
	if err != nil {
		e.k.faultCurrent(e, hart.CauseLoadPageFault, va)
	}
}

// Store copies p into user memory at va. A bad access faults the task.
func (e *Env) Store(va uint64, p []byte) {
	e.step()
	var err error
	e.k.process(e.t.Pid).Inner.ExclusiveSession(func(in *task.ProcessInner) {
		err = in.Space.WriteAt(va, p)
	})
	if err != nil {
		e.k.faultCurrent(e, hart.CauseStorePageFault, va)
	}
}

// LoadU64 reads a little-endian word from user memory.
func (e *Env) LoadU64(va uint64) uint64 {
	var b [8]byte
	e.Load(va, b[:])
	return binary.LittleEndian.Uint64(b[:])
}

// StoreU64 writes a little-endian word to user memory.
func (e *Env) StoreU64(va uint64, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.Store(va, b[:])
}

// Spin retires n cycles of pure compute, polling for interrupts at chunk
// boundaries the way a real instruction stream does.
func (e *Env) Spin(n uint64) {
	for n > 0 {
		c := spinChunk
		if n < c {
			c = n
		}
		e.k.board.Burn(c)
		e.k.pollIntr(e)
		n -= c
	}
}

// Exit ends the calling task with the given code. It does not return.
func (e *Env) Exit(code int) {
	e.Ecall(abi.SysExit, uint64(code), 0, 0, 0)
	panic("kern: exit returned")
}

// Yield gives up the hart voluntarily.
func (e *Env) Yield() {
	e.Ecall(abi.SysYield, 0, 0, 0, 0)
}

// Sleep blocks the task for at least ms milliseconds.
func (e *Env) Sleep(ms uint64) {
	e.Ecall(abi.SysSleep, ms, 0, 0, 0)
}

// GetPid returns the process id by syscall.
func (e *Env) GetPid() int {
	return int(e.Ecall(abi.SysGetPid, 0, 0, 0, 0))
}

// Gettid returns the task id by syscall.
func (e *Env) Gettid() int {
	return int(e.Ecall(abi.SysGetTid, 0, 0, 0, 0))
}

// Kill posts signal signum to pid.
func (e *Env) Kill(pid, signum int) int64 {
	return e.Ecall(abi.SysKill, uint64(pid), uint64(signum), 0, 0)
}

// GetTimeMS reads the machine clock. The kernel writes a TimeVal into
// scratch space under the stack pointer and the wrapper decodes it.
func (e *Env) GetTimeMS() uint64 {
	va := e.t.Trap.X[hart.RegSP] - abi.TimeValBytes
	if e.Ecall(abi.SysGetTime, va, 0, 0, 0) != 0 {
		return 0
	}
	var b [abi.TimeValBytes]byte
	e.Load(va, b[:])
	tv, _ := abi.DecodeTimeVal(b[:])
	return abi.MSFromTimeVal(tv)
}

// TaskInfo reports the calling task's status, scheduled time and per-call
// counters.
func (e *Env) TaskInfo() (abi.TaskInfo, bool) {
	va := e.t.Trap.X[hart.RegSP] - abi.TaskInfoBytes
	if e.Ecall(abi.SysTaskInfo, va, 0, 0, 0) != 0 {
		return abi.TaskInfo{}, false
	}
	buf := make([]byte, abi.TaskInfoBytes)
	e.Load(va, buf)
	return abi.DecodeTaskInfo(buf)
}

// envScratch is the stack scratch window wrappers stage buffers through.
// It holds well under the stack region size, so chunked transfers stay
// inside the mapping.
const envScratch = 2048

// Write copies p through user memory and writes it to fd. Returns bytes
// written or a negative error.
func (e *Env) Write(fd int, p []byte) int64 {
	if len(p) == 0 {
		return e.Ecall(abi.SysWrite, uint64(fd), 0, 0, 0)
	}
	va := e.t.Trap.X[hart.RegSP] - envScratch
	var written int64
	for off := 0; off < len(p); off += envScratch {
		end := off + envScratch
		if end > len(p) {
			end = len(p)
		}
		e.Store(va, p[off:end])
		n := e.Ecall(abi.SysWrite, uint64(fd), va, uint64(end-off), 0)
		if n < 0 {
			if written > 0 {
				return written
			}
			return n
		}
		written += n
	}
	return written
}

// Read reads from fd into p through user memory. Returns bytes read or a
// negative error. Reads from the console park until input arrives.
func (e *Env) Read(fd int, p []byte) int64 {
	if len(p) == 0 {
		return 0
	}
	want := len(p)
	if want > envScratch {
		want = envScratch
	}
	va := e.t.Trap.X[hart.RegSP] - envScratch
	n := e.Ecall(abi.SysRead, uint64(fd), va, uint64(want), 0)
	if n <= 0 {
		return n
	}
	e.Load(va, p[:n])
	return n
}

// Print writes s to standard output.
func (e *Env) Print(s string) {
	e.Write(abi.FdStdout, []byte(s))
}

// Printf formats and prints to standard output.
func (e *Env) Printf(format string, args ...any) {
	e.Print(fmt.Sprintf(format, args...))
}

// Sbrk moves the data-segment break and returns the old break, or -1.
func (e *Env) Sbrk(delta int64) int64 {
	return e.Ecall(abi.SysSbrk, uint64(delta), 0, 0, 0)
}

// Mmap maps length bytes at va with mmap prot bits. Returns 0 or -1.
func (e *Env) Mmap(va, length, prot uint64) int64 {
	return e.Ecall(abi.SysMmap, va, length, prot, 0)
}

// Munmap unmaps exactly the given range. Returns 0 or -1.
func (e *Env) Munmap(va, length uint64) int64 {
	return e.Ecall(abi.SysMunmap, va, length, 0, 0)
}

// Connect opens a UDP endpoint to raddr:rport from lport and returns its
// fd.
func (e *Env) Connect(raddr net.IPv4, lport, rport uint16) int64 {
	return e.Ecall(abi.SysConnect, uint64(raddr), uint64(lport), uint64(rport), 0)
}

// ThreadCreate starts fn as a new task of the calling process with arg in
// its a0. Returns the new tid, or -1.
func (e *Env) ThreadCreate(fn Program, arg uint64) int64 {
	idx := -1
	e.k.withExt(e.t.Pid, func(x *procExt) {
		x.entries = append(x.entries, fn)
		idx = len(x.entries) - 1
	})
	if idx < 0 {
		return -1
	}
	return e.Ecall(abi.SysThreadCreate, entryVA(idx), arg, 0, 0)
}

// Waittid waits for a sibling task to exit and returns its code. Waiting
// on self or a tid that never existed returns -1. The still-running case
// is retried over yield, like the user library does.
func (e *Env) Waittid(tid int) int64 {
	for {
		ret := e.Ecall(abi.SysWaitTid, uint64(tid), 0, 0, 0)
		if ret != -2 {
			return ret
		}
		e.Yield()
	}
}

// MutexCreate makes a spin mutex and returns its id.
func (e *Env) MutexCreate() int64 {
	return e.Ecall(abi.SysMutexCreate, 0, 0, 0, 0)
}

// MutexBlockingCreate makes a blocking mutex and returns its id.
func (e *Env) MutexBlockingCreate() int64 {
	return e.Ecall(abi.SysMutexCreate, 1, 0, 0, 0)
}

// MutexLock locks mutex id, parking while it is contended.
func (e *Env) MutexLock(id int64) int64 {
	return e.Ecall(abi.SysMutexLock, uint64(id), 0, 0, 0)
}

// MutexUnlock unlocks mutex id.
func (e *Env) MutexUnlock(id int64) int64 {
	return e.Ecall(abi.SysMutexUnlock, uint64(id), 0, 0, 0)
}

// SemaphoreCreate makes a semaphore holding n permits and returns its id.
func (e *Env) SemaphoreCreate(n int) int64 {
	return e.Ecall(abi.SysSemaphoreCreate, uint64(n), 0, 0, 0)
}

// SemaphoreUp returns a permit to semaphore id.
func (e *Env) SemaphoreUp(id int64) int64 {
	return e.Ecall(abi.SysSemaphoreUp, uint64(id), 0, 0, 0)
}

// SemaphoreDown takes a permit from semaphore id, parking while none are
// available.
func (e *Env) SemaphoreDown(id int64) int64 {
	return e.Ecall(abi.SysSemaphoreDown, uint64(id), 0, 0, 0)
}

// CondvarCreate makes a condition variable and returns its id.
func (e *Env) CondvarCreate() int64 {
	return e.Ecall(abi.SysCondvarCreate, 0, 0, 0, 0)
}

// CondvarSignal wakes one waiter of condvar id.
func (e *Env) CondvarSignal(id int64) int64 {
	return e.Ecall(abi.SysCondvarSignal, uint64(id), 0, 0, 0)
}

// CondvarWait releases mutexID, parks until signaled, and reacquires it.
func (e *Env) CondvarWait(id, mutexID int64) int64 {
	return e.Ecall(abi.SysCondvarWait, uint64(id), uint64(mutexID), 0, 0)
}

// CondvarWaitTimeout is CondvarWait with a deadline. Returns 1 when the
// deadline fired, 0 on signal, -1 on bad ids.
func (e *Env) CondvarWaitTimeout(id, mutexID int64, ms uint64) int64 {
	return e.Ecall(abi.SysCondvarWaitTO, uint64(id), uint64(mutexID), ms, 0)
}
