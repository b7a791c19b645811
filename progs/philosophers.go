package progs

import "tern/kern"

const (
	philCount  = 5
	philRounds = 3
)

// Philosophers is the classic dining table: five tasks, five blocking
// mutexes as forks. The last seat picks its forks in reverse order, which
// breaks the hold-and-wait cycle without any global arbiter.
func Philosophers(e *kern.Env) {
	forks := make([]int64, philCount)
	for i := range forks {
		forks[i] = e.MutexBlockingCreate()
	}

	seat := func(e *kern.Env) {
		i := int(e.Arg())
		first, second := forks[i], forks[(i+1)%philCount]
		if i == philCount-1 {
			first, second = second, first
		}
		for round := 1; round <= philRounds; round++ {
			e.Sleep(10)
			e.MutexLock(first)
			e.MutexLock(second)
			e.Printf("philosopher %d eats (round %d)\n", i, round)
			e.Sleep(20)
			e.MutexUnlock(second)
			e.MutexUnlock(first)
		}
	}

	tids := make([]int64, philCount)
	for i := 0; i < philCount; i++ {
		tids[i] = e.ThreadCreate(seat, uint64(i))
	}
	for _, tid := range tids {
		e.Waittid(int(tid))
	}
	e.Print("table cleared\n")
}
