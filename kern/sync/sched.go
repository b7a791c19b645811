// Package sync provides the sleepable kernel primitives: mutexes,
// semaphores and condition variables sharing one wait/wake protocol.
//
// Waiters queue FIFO inside an exclusive cell and park through the Sched
// surface; wakers pop the head and requeue it. Waking an empty primitive
// is a no-op, and a wake is never remembered for a later waiter.
package sync

import (
	"tern/kern/hart"
	"tern/kern/task"
)

// Sched is the scheduling surface the primitives block and wake through.
// The processor implements it; tests substitute a scripted fake.
type Sched interface {
	// Current returns the task holding the hart.
	Current() *task.TaskControlBlock
	// Yield requeues the current task behind the ready queue.
	Yield()
	// Block parks the current task until something wakes it.
	Block()
	// BlockNoSched marks the current task blocked but keeps the hart;
	// the caller passes the returned context to Schedule after dropping
	// its locks.
	BlockNoSched() *hart.TaskContext
	// Schedule gives up the hart on behalf of a BlockNoSched context.
	Schedule(*hart.TaskContext)
	// WakeUp moves a blocked task back to the ready queue.
	WakeUp(*task.TaskControlBlock)
}
