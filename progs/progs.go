// Package progs carries the user programs the demo machine can boot.
// Each one is a plain kern.Program exercising a slice of the syscall
// surface; main picks them by name.
package progs

import (
	"sort"

	"tern/kern"
)

// Entry describes one bootable program.
type Entry struct {
	Name string
	Desc string
	Main kern.Program
}

var table = []Entry{
	{Name: "philosophers", Desc: "five dining philosophers on blocking mutexes", Main: Philosophers},
	{Name: "prodcons", Desc: "producers and a consumer handing items over semaphores", Main: ProdCons},
	{Name: "barrier", Desc: "threads rendezvous on a condvar barrier", Main: Barrier},
	{Name: "sleeper", Desc: "timer wakeups measured against the machine clock", Main: Sleeper},
	{Name: "race", Desc: "shared-counter increments with and without a lock", Main: Race},
	{Name: "fault", Desc: "stores through a bad pointer and gets killed", Main: Fault},
	{Name: "echo", Desc: "echoes console lines until ctrl-d", Main: Echo},
	{Name: "pingpong", Desc: "round-trips a datagram over a udp endpoint", Main: PingPong},
}

// Lookup resolves a program by name.
func Lookup(name string) (Entry, bool) {
	for _, e := range table {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries lists every program, sorted by name.
func Entries() []Entry {
	out := make([]Entry, len(table))
	copy(out, table)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
