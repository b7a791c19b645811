package hart

import "testing"

func TestAppInitContext(t *testing.T) {
	cx := AppInitContext(0x1000, 0x2000_2000, 7)
	if cx.SEPC != 0x1000 {
		t.Fatalf("sepc = %#x, want %#x", cx.SEPC, 0x1000)
	}
	if cx.X[RegSP] != 0x2000_2000 {
		t.Fatalf("sp = %#x, want %#x", cx.X[RegSP], 0x2000_2000)
	}
	if cx.X[RegA0] != 7 {
		t.Fatalf("a0 = %d, want 7", cx.X[RegA0])
	}
}

func TestIntrLatchPriority(t *testing.T) {
	s := NewIntrState()
	s.Raise(LineExternal)
	s.Raise(LineTimer)

	l, ok := s.Take()
	if !ok || l != LineTimer {
		t.Fatalf("first take = %v/%v, want timer", l, ok)
	}
	l, ok = s.Take()
	if !ok || l != LineExternal {
		t.Fatalf("second take = %v/%v, want external", l, ok)
	}
	if _, ok := s.Take(); ok {
		t.Fatal("latch should be empty")
	}
}

func TestIntrDisableHoldsLines(t *testing.T) {
	s := NewIntrState()
	was := s.Disable()
	if !was {
		t.Fatal("latch should start enabled")
	}
	s.Raise(LineTimer)
	if _, ok := s.Take(); ok {
		t.Fatal("take while disabled should deliver nothing")
	}
	if !s.Pending() {
		t.Fatal("line should stay latched while disabled")
	}
	s.Restore(was)
	if l, ok := s.Take(); !ok || l != LineTimer {
		t.Fatalf("take after restore = %v/%v, want timer", l, ok)
	}
}

func TestIntrNestedDisable(t *testing.T) {
	s := NewIntrState()
	outer := s.Disable()
	inner := s.Disable()
	if inner {
		t.Fatal("inner disable should observe delivery already off")
	}
	s.Restore(inner)
	if s.Enabled() {
		t.Fatal("inner restore must not re-enable delivery")
	}
	s.Restore(outer)
	if !s.Enabled() {
		t.Fatal("outer restore should re-enable delivery")
	}
}

func TestSwitchRoundTrip(t *testing.T) {
	idle := NewTaskContext()
	task := NewTaskContext()

	order := make(chan string, 4)
	go func() {
		task.Park()
		order <- "task"
		task.SwitchTo(idle)
		order <- "task2"
		task.Exit(idle)
	}()

	idle.SwitchTo(task)
	order <- "idle"
	idle.SwitchTo(task)
	idle.Park()

	got := []string{<-order, <-order, <-order}
	want := []string{"task", "idle", "task2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHaltUnwindsParked(t *testing.T) {
	cx := NewTaskContext()
	done := make(chan struct{})
	go func() {
		defer close(done)
		cx.Park()
		t.Error("parked context resumed instead of unwinding")
	}()

	cx.Halt()
	<-done
}

func TestCauseStrings(t *testing.T) {
	tcs := []struct {
		c    Cause
		want string
	}{
		{CauseUserEnvCall, "user_env_call"},
		{CauseStorePageFault, "store_page_fault"},
		{CauseSupervisorTimer, "supervisor_timer"},
		{Cause(0xFF), "unknown"},
	}
	for _, tc := range tcs {
		if got := tc.c.String(); got != tc.want {
			t.Fatalf("%d.String() = %q, want %q", tc.c, got, tc.want)
		}
	}
}
