// Package abi pins the user-facing call numbers, register conventions
// and wire layouts of kernel structures.
package abi

// Call numbers, carried in a7. Arguments ride in a0, a1, a2 and a4; the
// result comes back in a0.
const (
	SysConnect         uint64 = 29
	SysRead            uint64 = 63
	SysWrite           uint64 = 64
	SysExit            uint64 = 93
	SysSleep           uint64 = 101
	SysYield           uint64 = 124
	SysKill            uint64 = 129
	SysGetTime         uint64 = 169
	SysGetPid          uint64 = 172
	SysSbrk            uint64 = 214
	SysMunmap          uint64 = 215
	SysMmap            uint64 = 222
	SysTaskInfo        uint64 = 410
	SysThreadCreate    uint64 = 1000
	SysGetTid          uint64 = 1001
	SysWaitTid         uint64 = 1002
	SysMutexCreate     uint64 = 1010
	SysMutexLock       uint64 = 1011
	SysMutexUnlock     uint64 = 1012
	SysSemaphoreCreate uint64 = 1020
	SysSemaphoreUp     uint64 = 1021
	SysSemaphoreDown   uint64 = 1022
	SysCondvarCreate   uint64 = 1030
	SysCondvarSignal   uint64 = 1031
	SysCondvarWait     uint64 = 1032
	SysCondvarWaitTO   uint64 = 1033
)

// Standard fd numbers.
const (
	FdStdin  = 0
	FdStdout = 1
	FdStderr = 2
)

// MaxSyscallNum bounds the per-call counter table reported by task_info.
const MaxSyscallNum = 500

// Name returns the call's symbolic name for diagnostics.
func Name(id uint64) string {
	switch id {
	case SysConnect:
		return "connect"
	case SysRead:
		return "read"
	case SysWrite:
		return "write"
	case SysExit:
		return "exit"
	case SysSleep:
		return "sleep"
	case SysYield:
		return "yield"
	case SysKill:
		return "kill"
	case SysGetTime:
		return "get_time"
	case SysGetPid:
		return "getpid"
	case SysSbrk:
		return "sbrk"
	case SysMunmap:
		return "munmap"
	case SysMmap:
		return "mmap"
	case SysTaskInfo:
		return "task_info"
	case SysThreadCreate:
		return "thread_create"
	case SysGetTid:
		return "gettid"
	case SysWaitTid:
		return "waittid"
	case SysMutexCreate:
		return "mutex_create"
	case SysMutexLock:
		return "mutex_lock"
	case SysMutexUnlock:
		return "mutex_unlock"
	case SysSemaphoreCreate:
		return "semaphore_create"
	case SysSemaphoreUp:
		return "semaphore_up"
	case SysSemaphoreDown:
		return "semaphore_down"
	case SysCondvarCreate:
		return "condvar_create"
	case SysCondvarSignal:
		return "condvar_signal"
	case SysCondvarWait:
		return "condvar_wait"
	case SysCondvarWaitTO:
		return "condvar_wait_timeout"
	default:
		return "unknown"
	}
}
