package kern

import (
	"tern/kern/mm"
	"tern/kern/task"
)

// sysMmap maps length bytes at va with the given prot bits. Undefined
// prot bits, empty prot, misalignment and overlap all fail with -1. A
// zero length succeeds without mapping anything.
func (k *Kernel) sysMmap(e *Env, va, length, prot uint64) int64 {
	if prot&^uint64(mm.PermMask) != 0 || prot&uint64(mm.PermMask) == 0 {
		return -1
	}
	if length == 0 {
		return 0
	}
	var err error
	k.process(e.t.Pid).Inner.ExclusiveSession(func(in *task.ProcessInner) {
		err = in.Space.Map(va, length, mm.Perm(prot))
	})
	if err != nil {
		return -1
	}
	return 0
}

// sysMunmap unmaps exactly the pages covering [va, va+length). Touching
// an unmapped page fails with -1 and unmaps nothing.
func (k *Kernel) sysMunmap(e *Env, va, length uint64) int64 {
	var err error
	k.process(e.t.Pid).Inner.ExclusiveSession(func(in *task.ProcessInner) {
		err = in.Space.Unmap(va, length)
	})
	if err != nil {
		return -1
	}
	return 0
}

// sysSbrk moves the data-segment break by delta and returns the old
// break, or -1 when the move is impossible.
func (k *Kernel) sysSbrk(e *Env, delta int64) int64 {
	var (
		old uint64
		err error
	)
	k.process(e.t.Pid).Inner.ExclusiveSession(func(in *task.ProcessInner) {
		old, err = in.Space.Sbrk(delta)
	})
	if err != nil {
		return -1
	}
	return int64(old)
}
