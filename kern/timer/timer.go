// Package timer holds pending deadline wakeups ordered by expiry and the
// tick arithmetic that drives preemption.
package timer

import (
	"container/heap"

	"github.com/sirupsen/logrus"

	"tern/kern/task"
	"tern/kern/up"
)

// Clock is the machine timebase the registry reads.
type Clock interface {
	Cycles() uint64
	Frequency() uint64
}

// CompareLine is the machine timer comparator.
type CompareLine interface {
	SetCompare(cycles uint64)
}

// Waker requeues a task whose deadline passed.
type Waker interface {
	WakeupTask(*task.TaskControlBlock)
}

const msecPerSec = 1000

type entry struct {
	expireMS uint64
	seq      uint64
	task     *task.TaskControlBlock
}

// entryHeap orders by deadline, insertion order breaking ties so equal
// deadlines wake FIFO.
type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].expireMS != h[j].expireMS {
		return h[i].expireMS < h[j].expireMS
	}
	return h[i].seq < h[j].seq
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)   { *h = append(*h, x.(entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

type registryInner struct {
	heap entryHeap
	seq  uint64
}

// Registry is the pending-wakeup set plus the comparator arming logic.
type Registry struct {
	clock  Clock
	line   CompareLine
	waker  Waker
	tickHz uint64
	log    *logrus.Entry

	inner *up.Cell[registryInner]
}

// NewRegistry wires a registry to the machine timer. tickHz is the
// preemption tick rate used by SetNextTrigger.
func NewRegistry(gate up.IntrGate, clock Clock, line CompareLine, waker Waker, tickHz uint64, log *logrus.Entry) *Registry {
	return &Registry{
		clock:  clock,
		line:   line,
		waker:  waker,
		tickHz: tickHz,
		log:    log,
		inner:  up.NewCell(gate, registryInner{}),
	}
}

// NowMS reads the current time in milliseconds.
func (r *Registry) NowMS() uint64 {
	return r.clock.Cycles() / (r.clock.Frequency() / msecPerSec)
}

// SetNextTrigger arms the comparator one tick quantum ahead.
func (r *Registry) SetNextTrigger() {
	r.line.SetCompare(r.clock.Cycles() + r.clock.Frequency()/r.tickHz)
}

// Add registers a wakeup for t at expireMS.
func (r *Registry) Add(expireMS uint64, t *task.TaskControlBlock) {
	r.inner.ExclusiveSession(func(in *registryInner) {
		heap.Push(&in.heap, entry{expireMS: expireMS, seq: in.seq, task: t})
		in.seq++
	})
	r.log.WithFields(logrus.Fields{"pid": t.Pid, "tid": t.Tid, "expire_ms": expireMS}).
		Debug("timer added")
}

// Remove drops every wakeup registered for t. Linear, which is fine at
// the handful of timers a teaching workload carries.
func (r *Registry) Remove(t *task.TaskControlBlock) {
	r.inner.ExclusiveSession(func(in *registryInner) {
		kept := in.heap[:0]
		for _, e := range in.heap {
			if e.task != t {
				kept = append(kept, e)
			}
		}
		if len(kept) == len(in.heap) {
			return
		}
		in.heap = kept
		heap.Init(&in.heap)
	})
}

// Check wakes every task whose deadline is at or before now, in ascending
// deadline order.
func (r *Registry) Check() {
	now := r.NowMS()
	for {
		var due *task.TaskControlBlock
		r.inner.ExclusiveSession(func(in *registryInner) {
			if len(in.heap) == 0 || in.heap[0].expireMS > now {
				return
			}
			e := heap.Pop(&in.heap).(entry)
			due = e.task
		})
		if due == nil {
			return
		}
		r.waker.WakeupTask(due)
	}
}

// Pending reports how many wakeups are registered.
func (r *Registry) Pending() int {
	var n int
	r.inner.ExclusiveSession(func(in *registryInner) { n = len(in.heap) })
	return n
}

// NextExpireMS reports the earliest registered deadline.
func (r *Registry) NextExpireMS() (uint64, bool) {
	var ms uint64
	var ok bool
	r.inner.ExclusiveSession(func(in *registryInner) {
		if len(in.heap) > 0 {
			ms = in.heap[0].expireMS
			ok = true
		}
	})
	return ms, ok
}
