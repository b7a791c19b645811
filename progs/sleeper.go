package progs

import "tern/kern"

// Sleeper checks the timer against the machine clock: a short nap in a
// sibling task and a longer one here, both measured with get_time. The
// kernel owes a wakeup no earlier than the deadline; it never promises
// sharper.
func Sleeper(e *kern.Env) {
	nap := func(e *kern.Env) {
		ms := e.Arg()
		start := e.GetTimeMS()
		e.Sleep(ms)
		e.Printf("nap of %d ms took %d ms\n", ms, e.GetTimeMS()-start)
	}

	tid := e.ThreadCreate(nap, 40)

	start := e.GetTimeMS()
	e.Sleep(120)
	slept := e.GetTimeMS() - start
	if slept < 120 {
		e.Printf("sleep came back %d ms early\n", 120-slept)
		e.Exit(-1)
	}
	e.Printf("slept %d ms\n", slept)

	e.Waittid(int(tid))
	e.Print("sleeper done\n")
}
