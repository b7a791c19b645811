package kern

import "tern/kern/sync"

// The user-level primitive tables live in the process's kernel-side
// extension. Create reuses freed slots, ids are per-process, and every
// blocking operation runs outside the table session so a parked task
// never holds the table.

func (k *Kernel) sysMutexCreate(e *Env, blocking uint64) int64 {
	var m sync.Mutex
	if blocking != 0 {
		m = sync.NewBlockingMutex(k.intr, k.proc)
	} else {
		m = sync.NewSpinMutex(k.intr, k.proc)
	}
	id := int64(-1)
	k.withExt(e.t.Pid, func(x *procExt) {
		for i, slot := range x.mutexes {
			if slot == nil {
				x.mutexes[i] = m
				id = int64(i)
				return
			}
		}
		x.mutexes = append(x.mutexes, m)
		id = int64(len(x.mutexes) - 1)
	})
	return id
}

func (k *Kernel) mutexByID(pid int, id uint64) sync.Mutex {
	var m sync.Mutex
	k.withExt(pid, func(x *procExt) {
		if id < uint64(len(x.mutexes)) {
			m = x.mutexes[id]
		}
	})
	return m
}

func (k *Kernel) sysMutexLock(e *Env, id uint64) int64 {
	m := k.mutexByID(e.t.Pid, id)
	if m == nil {
		return -1
	}
	m.Lock()
	return 0
}

func (k *Kernel) sysMutexUnlock(e *Env, id uint64) int64 {
	m := k.mutexByID(e.t.Pid, id)
	if m == nil {
		return -1
	}
	m.Unlock()
	return 0
}

func (k *Kernel) sysSemaphoreCreate(e *Env, n uint64) int64 {
	sem := sync.NewSemaphore(k.intr, k.proc, int(n))
	id := int64(-1)
	k.withExt(e.t.Pid, func(x *procExt) {
		for i, slot := range x.sems {
			if slot == nil {
				x.sems[i] = sem
				id = int64(i)
				return
			}
		}
		x.sems = append(x.sems, sem)
		id = int64(len(x.sems) - 1)
	})
	return id
}

func (k *Kernel) semaphoreByID(pid int, id uint64) *sync.Semaphore {
	var sem *sync.Semaphore
	k.withExt(pid, func(x *procExt) {
		if id < uint64(len(x.sems)) {
			sem = x.sems[id]
		}
	})
	return sem
}

func (k *Kernel) sysSemaphoreUp(e *Env, id uint64) int64 {
	sem := k.semaphoreByID(e.t.Pid, id)
	if sem == nil {
		return -1
	}
	sem.Up()
	return 0
}

func (k *Kernel) sysSemaphoreDown(e *Env, id uint64) int64 {
	sem := k.semaphoreByID(e.t.Pid, id)
	if sem == nil {
		return -1
	}
	sem.Down()
	return 0
}

func (k *Kernel) sysCondvarCreate(e *Env) int64 {
	cv := sync.NewCondvar(k.intr, k.proc)
	id := int64(-1)
	k.withExt(e.t.Pid, func(x *procExt) {
		for i, slot := range x.condvars {
			if slot == nil {
				x.condvars[i] = cv
				id = int64(i)
				return
			}
		}
		x.condvars = append(x.condvars, cv)
		id = int64(len(x.condvars) - 1)
	})
	return id
}

func (k *Kernel) condvarByID(pid int, id uint64) *sync.Condvar {
	var cv *sync.Condvar
	k.withExt(pid, func(x *procExt) {
		if id < uint64(len(x.condvars)) {
			cv = x.condvars[id]
		}
	})
	return cv
}

func (k *Kernel) sysCondvarSignal(e *Env, id uint64) int64 {
	cv := k.condvarByID(e.t.Pid, id)
	if cv == nil {
		return -1
	}
	cv.Signal()
	return 0
}

func (k *Kernel) sysCondvarWait(e *Env, id, mutexID uint64) int64 {
	cv := k.condvarByID(e.t.Pid, id)
	m := k.mutexByID(e.t.Pid, mutexID)
	if cv == nil || m == nil {
		return -1
	}
	cv.Wait(m)
	return 0
}

func (k *Kernel) sysCondvarWaitTimeout(e *Env, id, mutexID, ms uint64) int64 {
	cv := k.condvarByID(e.t.Pid, id)
	m := k.mutexByID(e.t.Pid, mutexID)
	if cv == nil || m == nil {
		return -1
	}
	if cv.WaitTimeout(m, k.tmr, ms) {
		return 1
	}
	return 0
}
