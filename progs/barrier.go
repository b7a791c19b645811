package progs

import "tern/kern"

const barrierThreads = 3

// Barrier parks three workers on a condvar until the last arrival opens
// the gate. A single signal releases the head waiter; every woken worker
// signals again on its way out, so the wakeup cascades through the queue
// in FIFO order.
func Barrier(e *kern.Env) {
	base := uint64(e.Sbrk(0))
	if e.Sbrk(8) < 0 {
		e.Print("barrier: sbrk failed\n")
		e.Exit(-1)
	}
	arrivedVA := base

	gate := e.MutexBlockingCreate()
	cond := e.CondvarCreate()

	worker := func(e *kern.Env) {
		id := e.Arg()
		e.Sleep(10 * (id + 1))
		e.Printf("worker %d at barrier\n", id)

		e.MutexLock(gate)
		arrived := e.LoadU64(arrivedVA) + 1
		e.StoreU64(arrivedVA, arrived)
		if arrived < barrierThreads {
			e.CondvarWait(cond, gate)
		}
		e.MutexUnlock(gate)

		e.CondvarSignal(cond)
		e.Printf("worker %d past barrier\n", id)
	}

	var tids []int64
	for id := 0; id < barrierThreads; id++ {
		tids = append(tids, e.ThreadCreate(worker, uint64(id)))
	}
	for _, tid := range tids {
		e.Waittid(int(tid))
	}
	e.Print("barrier done\n")
}
