package kern_test

import (
	"context"
	"strings"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"

	"tern/hal"
	"tern/kern"
	"tern/kern/abi"
	"tern/kern/task"
	"tern/progs"
)

// spawn names one process to boot with.
type spawn struct {
	name string
	main kern.Program
}

// boot runs procs on a fresh deterministic machine until every process
// has exited, returning the console transcript and the captured log.
// setup may script console input before the board starts.
func boot(t *testing.T, setup func(*hal.VirtBoard), procs ...spawn) (string, *logtest.Hook) {
	t.Helper()
	board := hal.NewVirtBoard(hal.VirtConfig{})
	if setup != nil {
		setup(board)
	}
	logger, hook := logtest.NewNullLogger()
	k := kern.New(board, kern.Config{Logger: logger})
	for _, s := range procs {
		k.Spawn(s.name, s.main)
	}

	done := make(chan error, 1)
	go func() { done <- k.Run(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("kernel run: %v", err)
		}
	case <-time.After(time.Minute):
		t.Fatal("kernel did not wind down")
	}
	return string(board.Output()), hook
}

// lastExitCode digs the most recent exit of any task of pid out of the
// captured log.
func lastExitCode(hook *logtest.Hook, pid int) (int, bool) {
	code, found := 0, false
	for _, e := range hook.AllEntries() {
		if e.Message != "task exited" {
			continue
		}
		if p, ok := e.Data["pid"].(int); !ok || p != pid {
			continue
		}
		if c, ok := e.Data["code"].(int); ok {
			code, found = c, true
		}
	}
	return code, found
}

func TestRoundRobinYieldOrder(t *testing.T) {
	prog := func(e *kern.Env) {
		partner := func(p *kern.Env) {
			p.Print("t0\n")
			p.Yield()
			p.Print("t1\n")
		}
		tid := e.ThreadCreate(partner, 0)
		e.Print("r0\n")
		e.Yield()
		e.Print("r1\n")
		e.Yield()
		e.Waittid(int(tid))
		e.Print("rounds done\n")
	}

	out, _ := boot(t, nil, spawn{"rounds", prog})
	want := "r0\nt0\nr1\nt1\nrounds done\n"
	if out != want {
		t.Fatalf("transcript = %q, want %q", out, want)
	}
}

func TestTwoProcessesInterleave(t *testing.T) {
	mk := func(tag string) kern.Program {
		return func(e *kern.Env) {
			e.Printf("%s pid %d\n", tag, e.GetPid())
			e.Yield()
			e.Printf("%s again\n", tag)
		}
	}

	out, _ := boot(t, nil, spawn{"a", mk("A")}, spawn{"b", mk("B")})
	want := "A pid 0\nB pid 1\nA again\nB again\n"
	if out != want {
		t.Fatalf("transcript = %q, want %q", out, want)
	}
}

func TestExitCodeReported(t *testing.T) {
	prog := func(e *kern.Env) {
		e.Print("going\n")
		e.Exit(7)
	}

	out, hook := boot(t, nil, spawn{"seven", prog})
	if out != "going\n" {
		t.Fatalf("transcript = %q, want %q", out, "going\n")
	}
	if code, ok := lastExitCode(hook, 0); !ok || code != 7 {
		t.Fatalf("exit code = %d, %v, want 7", code, ok)
	}
}

func TestTimerTickPreemptsComputeLoop(t *testing.T) {
	prog := func(e *kern.Env) {
		sib := func(s *kern.Env) { s.Print("preempted in\n") }
		tid := e.ThreadCreate(sib, 0)
		// Long enough to cross at least two tick boundaries.
		e.Spin(300_000)
		e.Print("spinner done\n")
		e.Waittid(int(tid))
	}

	out, _ := boot(t, nil, spawn{"spinner", prog})
	want := "preempted in\nspinner done\n"
	if out != want {
		t.Fatalf("transcript = %q, want %q", out, want)
	}
}

func TestSleepHoldsUntilDeadline(t *testing.T) {
	prog := func(e *kern.Env) {
		start := e.GetTimeMS()
		e.Sleep(35)
		if d := e.GetTimeMS() - start; d < 35 {
			e.Printf("woke %d ms early\n", 35-d)
			return
		}
		e.Print("sleep ok\n")
	}

	out, _ := boot(t, nil, spawn{"nap", prog})
	if out != "sleep ok\n" {
		t.Fatalf("transcript = %q, want %q", out, "sleep ok\n")
	}
}

func TestSemaphoreHandsOffInQueueOrder(t *testing.T) {
	prog := func(e *kern.Env) {
		sem := e.SemaphoreCreate(0)
		waiter := func(w *kern.Env) {
			w.SemaphoreDown(sem)
			w.Printf("waiter %d through\n", w.Arg())
		}
		t1 := e.ThreadCreate(waiter, 1)
		t2 := e.ThreadCreate(waiter, 2)
		e.Yield()
		e.Print("handing out\n")
		e.SemaphoreUp(sem)
		e.SemaphoreUp(sem)
		e.Waittid(int(t1))
		e.Waittid(int(t2))
		e.Print("handoff done\n")
	}

	out, _ := boot(t, nil, spawn{"handoff", prog})
	want := "handing out\nwaiter 1 through\nwaiter 2 through\nhandoff done\n"
	if out != want {
		t.Fatalf("transcript = %q, want %q", out, want)
	}
}

func TestSpinMutexKeepsCountExact(t *testing.T) {
	prog := func(e *kern.Env) {
		lock := e.MutexCreate()
		base := uint64(e.Sbrk(0))
		if e.Sbrk(8) < 0 {
			e.Print("sbrk failed\n")
			return
		}
		adder := func(a *kern.Env) {
			for i := 0; i < 50; i++ {
				a.MutexLock(lock)
				a.StoreU64(base, a.LoadU64(base)+1)
				a.MutexUnlock(lock)
			}
		}
		t1 := e.ThreadCreate(adder, 0)
		t2 := e.ThreadCreate(adder, 1)
		e.Waittid(int(t1))
		e.Waittid(int(t2))
		e.Printf("spin count %d\n", e.LoadU64(base))
	}

	out, _ := boot(t, nil, spawn{"spinlock", prog})
	if out != "spin count 100\n" {
		t.Fatalf("transcript = %q, want %q", out, "spin count 100\n")
	}
}

func TestCondvarWaitTimeoutBothPaths(t *testing.T) {
	prog := func(e *kern.Env) {
		m := e.MutexBlockingCreate()
		cv := e.CondvarCreate()

		e.MutexLock(m)
		if e.CondvarWaitTimeout(cv, m, 30) == 1 {
			e.Print("wait timed out\n")
		}
		e.MutexUnlock(m)

		helper := func(h *kern.Env) {
			h.Sleep(10)
			h.CondvarSignal(cv)
		}
		tid := e.ThreadCreate(helper, 0)
		e.MutexLock(m)
		if e.CondvarWaitTimeout(cv, m, 500) == 0 {
			e.Print("wait signaled\n")
		}
		e.MutexUnlock(m)
		e.Waittid(int(tid))
	}

	out, _ := boot(t, nil, spawn{"timeout", prog})
	want := "wait timed out\nwait signaled\n"
	if out != want {
		t.Fatalf("transcript = %q, want %q", out, want)
	}
}

func TestWaittidRecyclesTids(t *testing.T) {
	prog := func(e *kern.Env) {
		worker := func(w *kern.Env) { w.Exit(3) }
		t1 := e.ThreadCreate(worker, 0)
		code := e.Waittid(int(t1))
		t2 := e.ThreadCreate(worker, 0)
		e.Printf("first tid %d code %d, second tid %d\n", t1, code, t2)
		e.Waittid(int(t2))
	}

	out, _ := boot(t, nil, spawn{"recycle", prog})
	want := "first tid 1 code 3, second tid 1\n"
	if out != want {
		t.Fatalf("transcript = %q, want %q", out, want)
	}
}

func TestWaittidRejectsSelfAndUnknown(t *testing.T) {
	prog := func(e *kern.Env) {
		e.Printf("self %d missing %d\n", e.Waittid(e.Tid()), e.Waittid(9))
	}

	out, _ := boot(t, nil, spawn{"badwait", prog})
	if out != "self -1 missing -1\n" {
		t.Fatalf("transcript = %q, want %q", out, "self -1 missing -1\n")
	}
}

func TestWaittidAfterStackMunmap(t *testing.T) {
	prog := func(e *kern.Env) {
		worker := func(w *kern.Env) { w.Exit(int(w.Arg())) }

		// tid 1's stack band starts at 0x2000_3000. Drop the whole
		// band before collecting the dead thread.
		tid := e.ThreadCreate(worker, 7)
		e.Yield()
		if rc := e.Munmap(0x2000_3000, 8192); rc != 0 {
			e.Printf("full unmap rc %d\n", rc)
			return
		}
		e.Printf("full unmap: tid %d code %d\n", tid, e.Waittid(int(tid)))

		// Same tid again, this time dropping only the head page.
		tid = e.ThreadCreate(worker, 8)
		e.Yield()
		if rc := e.Munmap(0x2000_3000, 4096); rc != 0 {
			e.Printf("head unmap rc %d\n", rc)
			return
		}
		e.Printf("head unmap: tid %d code %d\n", tid, e.Waittid(int(tid)))

		// The band must come back whole for the tid's next owner.
		tid = e.ThreadCreate(worker, 9)
		e.Printf("reuse: tid %d code %d\n", tid, e.Waittid(int(tid)))
	}

	out, hook := boot(t, nil, spawn{"reclaim", prog})
	want := "full unmap: tid 1 code 7\nhead unmap: tid 1 code 8\nreuse: tid 1 code 9\n"
	if out != want {
		t.Fatalf("transcript = %q, want %q", out, want)
	}
	if code, ok := lastExitCode(hook, 0); !ok || code != 0 {
		t.Fatalf("exit code = %d, %v, want 0", code, ok)
	}
}

func TestTaskInfoCountersAdvance(t *testing.T) {
	prog := func(e *kern.Env) {
		e.Yield()
		e.Yield()
		e.Yield()
		ti, ok := e.TaskInfo()
		if !ok {
			e.Print("task_info failed\n")
			return
		}
		if ti.Syscalls[abi.SysYield] != 3 {
			e.Printf("yield count %d\n", ti.Syscalls[abi.SysYield])
			return
		}
		if ti.Status != uint32(task.StatusRunning) {
			e.Printf("status %d\n", ti.Status)
			return
		}
		e.Print("task info ok\n")
	}

	out, _ := boot(t, nil, spawn{"info", prog})
	if out != "task info ok\n" {
		t.Fatalf("transcript = %q, want %q", out, "task info ok\n")
	}
}

func TestMemoryMapLifecycle(t *testing.T) {
	prog := func(e *kern.Env) {
		brk := e.Sbrk(4096)
		if brk < 0 {
			e.Print("sbrk failed\n")
			return
		}
		e.StoreU64(uint64(brk), 0xfeed)
		if e.LoadU64(uint64(brk)) != 0xfeed {
			e.Print("brk readback wrong\n")
			return
		}
		if e.Sbrk(-4096) != brk+4096 {
			e.Print("shrink returned wrong break\n")
			return
		}

		const va = 0x5000_0000
		if e.Mmap(va, 8192, 3) != 0 {
			e.Print("mmap failed\n")
			return
		}
		e.StoreU64(va+4096, 7)
		if e.LoadU64(va+4096) != 7 {
			e.Print("mapped readback wrong\n")
			return
		}
		if e.Munmap(va, 8192) != 0 {
			e.Print("munmap failed\n")
			return
		}
		if e.Munmap(va, 8192) == 0 {
			e.Print("double munmap succeeded\n")
			return
		}
		if e.Mmap(va, 4096, 8) == 0 {
			e.Print("bad prot accepted\n")
			return
		}
		e.Print("mem ok\n")
	}

	out, _ := boot(t, nil, spawn{"mem", prog})
	if out != "mem ok\n" {
		t.Fatalf("transcript = %q, want %q", out, "mem ok\n")
	}
}

func TestFaultKillsProcessOnly(t *testing.T) {
	survivor := func(e *kern.Env) {
		e.Sleep(30)
		e.Print("survivor done\n")
	}

	out, hook := boot(t, nil,
		spawn{"fault", progs.Fault},
		spawn{"survivor", survivor})

	if !strings.Contains(out, "about to store") {
		t.Fatalf("transcript %q missing the fault preamble", out)
	}
	if strings.Contains(out, "unreachable") {
		t.Fatalf("transcript %q shows execution past the fault", out)
	}
	if !strings.Contains(out, "survivor done\n") {
		t.Fatalf("transcript %q missing the survivor", out)
	}
	if code, ok := lastExitCode(hook, 0); !ok || code != -11 {
		t.Fatalf("faulting exit code = %d, %v, want -11", code, ok)
	}
}

func TestCtrlCKillsForegroundReader(t *testing.T) {
	reader := func(e *kern.Env) {
		e.Print("reading\n")
		buf := make([]byte, 8)
		for {
			e.Read(0, buf)
		}
	}

	out, hook := boot(t, func(b *hal.VirtBoard) {
		b.ScriptRX(50_000, []byte{0x03})
	}, spawn{"reader", reader})

	if out != "reading\n" {
		t.Fatalf("transcript = %q, want %q", out, "reading\n")
	}
	if code, ok := lastExitCode(hook, 0); !ok || code != -2 {
		t.Fatalf("exit code = %d, %v, want -2", code, ok)
	}
}

func TestKillTakesDownSleepingProcess(t *testing.T) {
	victim := func(e *kern.Env) {
		for {
			e.Sleep(50)
		}
	}
	killer := func(e *kern.Env) {
		e.Sleep(10)
		if e.Kill(0, 9) != 0 {
			e.Print("kill failed\n")
		}
	}

	out, hook := boot(t, nil, spawn{"victim", victim}, spawn{"killer", killer})
	if out != "" {
		t.Fatalf("transcript = %q, want empty", out)
	}
	if code, ok := lastExitCode(hook, 0); !ok || code != -9 {
		t.Fatalf("victim exit code = %d, %v, want -9", code, ok)
	}
	if code, ok := lastExitCode(hook, 1); !ok || code != 0 {
		t.Fatalf("killer exit code = %d, %v, want 0", code, ok)
	}
}

func TestConsoleEchoSession(t *testing.T) {
	out, _ := boot(t, func(b *hal.VirtBoard) {
		b.ScriptRX(50_000, []byte("hi\n"))
		b.ScriptRX(250_000, []byte{0x04})
	}, spawn{"echo", progs.Echo})

	if !strings.Contains(out, "> hi\n") {
		t.Fatalf("transcript %q missing the echoed line", out)
	}
	if !strings.Contains(out, "echo: bye\n") {
		t.Fatalf("transcript %q missing the goodbye", out)
	}
}

func TestUDPLoopback(t *testing.T) {
	out, _ := boot(t, nil, spawn{"pingpong", progs.PingPong})
	want := "pingpong: got \"ping\" back on fd 3\n"
	if out != want {
		t.Fatalf("transcript = %q, want %q", out, want)
	}
}

func TestPhilosophersFinish(t *testing.T) {
	out, _ := boot(t, nil, spawn{"philosophers", progs.Philosophers})
	if got := strings.Count(out, "eats"); got != 15 {
		t.Fatalf("meals = %d, want 15\ntranscript:\n%s", got, out)
	}
	if !strings.HasSuffix(out, "table cleared\n") {
		t.Fatalf("transcript %q does not end with the table clearing", out)
	}
}

func TestProducersConsumerDrainRing(t *testing.T) {
	out, _ := boot(t, nil, spawn{"prodcons", progs.ProdCons})
	if !strings.Contains(out, "consumed 12 items, sum 2418\n") {
		t.Fatalf("transcript %q missing the consumer total", out)
	}
	if !strings.HasSuffix(out, "prodcons done\n") {
		t.Fatalf("transcript %q does not end cleanly", out)
	}
}

func TestBarrierOpensOnce(t *testing.T) {
	out, _ := boot(t, nil, spawn{"barrier", progs.Barrier})
	if got := strings.Count(out, "past barrier"); got != 3 {
		t.Fatalf("workers past barrier = %d, want 3\ntranscript:\n%s", got, out)
	}
	// Nobody passes before the last arrival.
	arrive := strings.LastIndex(out, "at barrier")
	pass := strings.Index(out, "past barrier")
	if arrive == -1 || pass == -1 || pass < arrive {
		t.Fatalf("a worker passed before the last arrival:\n%s", out)
	}
	if !strings.HasSuffix(out, "barrier done\n") {
		t.Fatalf("transcript %q does not end cleanly", out)
	}
}

func TestRaceLockedCountExact(t *testing.T) {
	out, hook := boot(t, nil, spawn{"race", progs.Race})
	if !strings.Contains(out, "locked count = 800 of 800\n") {
		t.Fatalf("transcript %q missing the exact locked count", out)
	}
	if !strings.HasSuffix(out, "race done\n") {
		t.Fatalf("transcript %q does not end cleanly", out)
	}
	if code, ok := lastExitCode(hook, 0); !ok || code != 0 {
		t.Fatalf("exit code = %d, %v, want 0", code, ok)
	}
}

func TestSleeperMeasuresNaps(t *testing.T) {
	out, _ := boot(t, nil, spawn{"sleeper", progs.Sleeper})
	if strings.Contains(out, "early") {
		t.Fatalf("a sleep returned early:\n%s", out)
	}
	if !strings.Contains(out, "nap of 40 ms took ") {
		t.Fatalf("transcript %q missing the sibling nap", out)
	}
	if !strings.HasSuffix(out, "sleeper done\n") {
		t.Fatalf("transcript %q does not end cleanly", out)
	}
}
