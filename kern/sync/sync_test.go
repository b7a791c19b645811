package sync

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"tern/kern/hart"
	"tern/kern/task"
	"tern/kern/timer"
)

// fakeSched runs the primitives' protocol synchronously: Block returns
// immediately after an optional hook that plays the part of the other
// tasks, and wakes are recorded instead of requeued.
type fakeSched struct {
	cur     *task.TaskControlBlock
	woken   []*task.TaskControlBlock
	yields  int
	blocks  int
	scheds  int
	onBlock func()
	onYield func()
}

func (s *fakeSched) Current() *task.TaskControlBlock { return s.cur }

func (s *fakeSched) Yield() {
	s.yields++
	if s.onYield != nil {
		s.onYield()
	}
}

func (s *fakeSched) Block() {
	s.blocks++
	if s.onBlock != nil {
		s.onBlock()
	}
}

func (s *fakeSched) BlockNoSched() *hart.TaskContext {
	s.blocks++
	return s.cur.Cx
}

func (s *fakeSched) Schedule(cx *hart.TaskContext) { s.scheds++ }

func (s *fakeSched) WakeUp(t *task.TaskControlBlock) {
	s.woken = append(s.woken, t)
}

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestBlockingMutexHandsOffToHead(t *testing.T) {
	gate := hart.NewIntrState()
	s := &fakeSched{}
	m := NewBlockingMutex(gate, s)

	t1 := task.NewTask(gate, 1, 0)
	t2 := task.NewTask(gate, 1, 1)
	t3 := task.NewTask(gate, 1, 2)

	s.cur = t1
	m.Lock()
	if s.blocks != 0 {
		t.Fatal("uncontended lock should not block")
	}

	s.cur = t2
	m.Lock()
	s.cur = t3
	m.Lock()
	if s.blocks != 2 {
		t.Fatalf("blocks = %d, want 2", s.blocks)
	}

	m.Unlock()
	m.Unlock()
	if len(s.woken) != 2 || s.woken[0] != t2 || s.woken[1] != t3 {
		t.Fatalf("woken order wrong: got %d entries", len(s.woken))
	}

	// Both unlocks handed the lock over, so it is still held.
	m.Unlock()
	s.cur = t1
	m.Lock()
	if s.blocks != 2 {
		t.Fatal("lock after final unlock should be uncontended")
	}
}

func TestSpinMutexYieldsUntilFree(t *testing.T) {
	gate := hart.NewIntrState()
	s := &fakeSched{}
	m := NewSpinMutex(gate, s)

	t1 := task.NewTask(gate, 1, 0)
	s.cur = t1
	m.Lock()

	s.onYield = func() {
		if s.yields == 2 {
			m.Unlock()
		}
	}
	m.Lock()

	if s.yields != 2 {
		t.Fatalf("yields = %d, want 2", s.yields)
	}
	if s.blocks != 0 {
		t.Fatal("spin mutex must never park")
	}
}

func TestSemaphoreCountsWaiters(t *testing.T) {
	gate := hart.NewIntrState()
	s := &fakeSched{}
	sem := NewSemaphore(gate, s, 2)

	t1 := task.NewTask(gate, 1, 0)
	t2 := task.NewTask(gate, 1, 1)
	t3 := task.NewTask(gate, 1, 2)
	t4 := task.NewTask(gate, 1, 3)

	s.cur = t1
	sem.Down()
	s.cur = t2
	sem.Down()
	if s.blocks != 0 {
		t.Fatal("downs within the permit count should not block")
	}

	s.cur = t3
	sem.Down()
	s.cur = t4
	sem.Down()
	if got := sem.Count(); got != -2 {
		t.Fatalf("count = %d, want -2 (two waiters)", got)
	}

	sem.Up()
	sem.Up()
	if len(s.woken) != 2 || s.woken[0] != t3 || s.woken[1] != t4 {
		t.Fatal("waiters should wake FIFO")
	}

	sem.Up()
	if len(s.woken) != 2 {
		t.Fatal("up with no waiters must not wake anyone")
	}
	if got := sem.Count(); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}
}

func TestCondvarSignalOnEmptyIsNoOp(t *testing.T) {
	gate := hart.NewIntrState()
	s := &fakeSched{}
	c := NewCondvar(gate, s)

	c.Signal()
	if len(s.woken) != 0 {
		t.Fatal("signal with no waiters woke a task")
	}
}

func TestCondvarWakesOneFIFO(t *testing.T) {
	gate := hart.NewIntrState()
	s := &fakeSched{}
	c := NewCondvar(gate, s)
	m := NewBlockingMutex(gate, s)

	t1 := task.NewTask(gate, 1, 0)
	t2 := task.NewTask(gate, 1, 1)

	s.cur = t1
	m.Lock()
	c.Wait(m)
	s.cur = t2
	c.Wait(m)

	c.Signal()
	if len(s.woken) < 1 || s.woken[len(s.woken)-1] != t1 {
		t.Fatal("first signal should wake the oldest waiter")
	}
	c.Signal()
	if s.woken[len(s.woken)-1] != t2 {
		t.Fatal("second signal should wake the second waiter")
	}
	c.Signal()
	if len(s.woken) != 2 {
		t.Fatal("signal on an emptied queue woke a task")
	}
}

func TestCondvarWaitNoSched(t *testing.T) {
	gate := hart.NewIntrState()
	s := &fakeSched{}
	c := NewCondvar(gate, s)

	t1 := task.NewTask(gate, 1, 0)
	s.cur = t1

	cx := c.WaitNoSched()
	if cx != t1.Cx {
		t.Fatal("wait should return the caller's switch context")
	}
	if s.blocks != 1 {
		t.Fatalf("blocks = %d, want 1", s.blocks)
	}
	s.Schedule(cx)
	if s.scheds != 1 {
		t.Fatalf("schedules = %d, want 1", s.scheds)
	}

	c.Signal()
	if len(s.woken) != 1 || s.woken[0] != t1 {
		t.Fatal("signal should wake the no-sched waiter")
	}
}

type fakeMachine struct {
	cycles uint64
	freq   uint64
}

func (f *fakeMachine) Cycles() uint64      { return f.cycles }
func (f *fakeMachine) Frequency() uint64   { return f.freq }
func (f *fakeMachine) SetCompare(c uint64) {}

type nopWaker struct{}

func (nopWaker) WakeupTask(*task.TaskControlBlock) {}

func TestCondvarWaitTimeout(t *testing.T) {
	gate := hart.NewIntrState()
	s := &fakeSched{}
	mach := &fakeMachine{freq: 1_000_000}
	tm := timer.NewRegistry(gate, mach, mach, nopWaker{}, 100, testLog())

	c := NewCondvar(gate, s)
	m := NewBlockingMutex(gate, s)
	t1 := task.NewTask(gate, 1, 0)
	s.cur = t1
	m.Lock()

	// Nobody signals: the deadline fires and the waiter is still queued.
	s.onBlock = func() { mach.cycles += 100 * (mach.freq / 1000) }
	if !c.WaitTimeout(m, tm, 50) {
		t.Fatal("expired wait should report a timeout")
	}
	if got := tm.Pending(); got != 0 {
		t.Fatalf("timer entries after wait = %d, want 0", got)
	}

	// Signaled before the deadline: the waiter left the queue first.
	s.onBlock = func() { c.Signal() }
	if c.WaitTimeout(m, tm, 50) {
		t.Fatal("signaled wait should not report a timeout")
	}
	if got := tm.Pending(); got != 0 {
		t.Fatalf("timer entries after signaled wait = %d, want 0", got)
	}
}
