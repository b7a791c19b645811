package progs

import "tern/kern"

// Fault stores through a pointer nothing ever mapped. The kernel answers
// with SIGSEGV and the process dies without taking the machine down; the
// final print must never appear.
func Fault(e *kern.Env) {
	e.Print("about to store through a wild pointer\n")
	e.StoreU64(0xdead_0000, 42)
	e.Print("unreachable: the store came back\n")
}
