package timer

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"tern/kern/hart"
	"tern/kern/task"
)

type fakeMachine struct {
	cycles  uint64
	freq    uint64
	compare uint64
	armed   bool
}

func (f *fakeMachine) Cycles() uint64    { return f.cycles }
func (f *fakeMachine) Frequency() uint64 { return f.freq }
func (f *fakeMachine) SetCompare(c uint64) {
	f.compare = c
	f.armed = true
}

type recordWaker struct {
	woken []*task.TaskControlBlock
}

func (w *recordWaker) WakeupTask(t *task.TaskControlBlock) {
	w.woken = append(w.woken, t)
}

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestRegistry(m *fakeMachine) (*Registry, *recordWaker, *hart.IntrState) {
	gate := hart.NewIntrState()
	w := &recordWaker{}
	return NewRegistry(gate, m, m, w, 100, testLog()), w, gate
}

func TestNowMS(t *testing.T) {
	m := &fakeMachine{freq: 12_500_000, cycles: 12_500_000}
	r, _, _ := newTestRegistry(m)
	if got := r.NowMS(); got != 1000 {
		t.Fatalf("now = %d ms, want 1000", got)
	}
}

func TestSetNextTrigger(t *testing.T) {
	m := &fakeMachine{freq: 12_500_000, cycles: 500}
	r, _, _ := newTestRegistry(m)
	r.SetNextTrigger()
	if !m.armed {
		t.Fatal("comparator not armed")
	}
	if want := uint64(500 + 125_000); m.compare != want {
		t.Fatalf("compare = %d, want %d", m.compare, want)
	}
}

func TestCheckWakesDueInOrder(t *testing.T) {
	m := &fakeMachine{freq: 1_000_000}
	r, w, gate := newTestRegistry(m)

	t50 := task.NewTask(gate, 1, 0)
	t150 := task.NewTask(gate, 1, 1)
	t100 := task.NewTask(gate, 2, 0)
	for _, tk := range []*task.TaskControlBlock{t50, t150, t100} {
		tk.WithInner(func(in *task.TaskInner) { in.Status = task.StatusBlocked })
	}

	r.Add(50, t50)
	r.Add(150, t150)
	r.Add(100, t100)

	m.cycles = 100 * (m.freq / 1000) // advance to t=100ms
	r.Check()

	if len(w.woken) != 2 || w.woken[0] != t50 || w.woken[1] != t100 {
		t.Fatalf("woken %d tasks in wrong order", len(w.woken))
	}
	if got := r.Pending(); got != 1 {
		t.Fatalf("pending = %d, want 1", got)
	}
	if ms, ok := r.NextExpireMS(); !ok || ms != 150 {
		t.Fatalf("next expire = %d/%v, want 150", ms, ok)
	}
}

func TestEqualDeadlinesWakeFIFO(t *testing.T) {
	m := &fakeMachine{freq: 1_000_000}
	r, w, gate := newTestRegistry(m)

	first := task.NewTask(gate, 1, 0)
	second := task.NewTask(gate, 1, 1)
	for _, tk := range []*task.TaskControlBlock{first, second} {
		tk.WithInner(func(in *task.TaskInner) { in.Status = task.StatusBlocked })
	}
	r.Add(30, first)
	r.Add(30, second)

	m.cycles = 30 * (m.freq / 1000)
	r.Check()

	if len(w.woken) != 2 || w.woken[0] != first || w.woken[1] != second {
		t.Fatal("equal deadlines should wake in insertion order")
	}
}

func TestRemoveFiltersOneTask(t *testing.T) {
	m := &fakeMachine{freq: 1_000_000}
	r, w, gate := newTestRegistry(m)

	gone := task.NewTask(gate, 1, 0)
	stay := task.NewTask(gate, 1, 1)
	stay.WithInner(func(in *task.TaskInner) { in.Status = task.StatusBlocked })

	r.Add(10, gone)
	r.Add(20, stay)
	r.Add(30, gone)
	r.Remove(gone)

	if got := r.Pending(); got != 1 {
		t.Fatalf("pending after remove = %d, want 1", got)
	}

	m.cycles = 100 * (m.freq / 1000)
	r.Check()
	if len(w.woken) != 1 || w.woken[0] != stay {
		t.Fatal("only the remaining task should wake")
	}
}

func TestCheckBeforeDeadlineWakesNothing(t *testing.T) {
	m := &fakeMachine{freq: 1_000_000}
	r, w, gate := newTestRegistry(m)

	tk := task.NewTask(gate, 1, 0)
	r.Add(500, tk)

	m.cycles = 499 * (m.freq / 1000)
	r.Check()
	if len(w.woken) != 0 {
		t.Fatalf("woken = %d tasks, want 0", len(w.woken))
	}
}
