package progs

import "tern/kern"

const (
	raceAdders = 2
	raceRounds = 400
)

// Race runs the same increment loop twice over a counter in user memory:
// bare, where a preemption between load and store loses updates, and
// under a blocking mutex, where the total must come out exact. The bare
// pass is a demonstration, not a promise; on a lucky interleaving it can
// still land on the full count.
func Race(e *kern.Env) {
	base := uint64(e.Sbrk(0))
	if e.Sbrk(8) < 0 {
		e.Print("race: sbrk failed\n")
		e.Exit(-1)
	}
	counterVA := base

	bare := func(e *kern.Env) {
		for n := 0; n < raceRounds; n++ {
			e.StoreU64(counterVA, e.LoadU64(counterVA)+1)
		}
	}

	lock := e.MutexBlockingCreate()
	locked := func(e *kern.Env) {
		for n := 0; n < raceRounds; n++ {
			e.MutexLock(lock)
			e.StoreU64(counterVA, e.LoadU64(counterVA)+1)
			e.MutexUnlock(lock)
		}
	}

	run := func(name string, adder kern.Program) uint64 {
		e.StoreU64(counterVA, 0)
		var tids []int64
		for i := 0; i < raceAdders; i++ {
			tids = append(tids, e.ThreadCreate(adder, uint64(i)))
		}
		for _, tid := range tids {
			e.Waittid(int(tid))
		}
		got := e.LoadU64(counterVA)
		e.Printf("%s count = %d of %d\n", name, got, raceAdders*raceRounds)
		return got
	}

	run("bare", bare)
	if got := run("locked", locked); got != raceAdders*raceRounds {
		e.Printf("locked count off by %d\n", raceAdders*raceRounds-got)
		e.Exit(-1)
	}
	e.Print("race done\n")
}
