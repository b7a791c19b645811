package task

import "fmt"

// RecycleAllocator hands out small integer ids, reusing freed ones before
// minting new ones. Pids and tids both come from one of these.
type RecycleAllocator struct {
	current  int
	recycled []int
}

// Alloc returns the next free id.
func (a *RecycleAllocator) Alloc() int {
	if n := len(a.recycled); n > 0 {
		id := a.recycled[n-1]
		a.recycled = a.recycled[:n-1]
		return id
	}
	id := a.current
	a.current++
	return id
}

// Dealloc returns an id to the pool. Freeing an id that was never
// handed out, or freeing one twice, is a kernel bug and panics.
func (a *RecycleAllocator) Dealloc(id int) {
	if id >= a.current {
		panic(fmt.Sprintf("task: dealloc of unallocated id %d", id))
	}
	for _, r := range a.recycled {
		if r == id {
			panic(fmt.Sprintf("task: id %d has been deallocated", id))
		}
	}
	a.recycled = append(a.recycled, id)
}
