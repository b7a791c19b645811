// Package kern assembles the machine: it owns the scheduler, the timer
// registry, the console driver and the trap paths between them, and runs
// the whole thing off one board.
package kern

import (
	"context"
	"fmt"

	"github.com/inhies/go-bytesize"
	"github.com/sirupsen/logrus"

	"tern/hal"
	"tern/kern/device"
	"tern/kern/hart"
	"tern/kern/mm"
	"tern/kern/sync"
	"tern/kern/task"
	"tern/kern/timer"
	"tern/kern/up"
)

// Config carries the knobs New does not read off the board.
type Config struct {
	// Logger receives kernel logging. Defaults to the logrus standard
	// logger.
	Logger *logrus.Logger

	// TickHz is the preemption tick rate. Defaults to 100.
	TickHz uint64

	// MemoryBytes is the frame budget handed to each address space.
	// Defaults to 128MB.
	MemoryBytes uint64

	// OnExit, when set, observes every process teardown.
	OnExit func(pid int)
}

// Kernel is the machine. All registries hang off it; nothing in the
// package lives in a package-level variable, so two kernels can run side
// by side in one test binary.
type Kernel struct {
	board hal.Board
	cfg   Config

	log  *logrus.Entry
	intr *hart.IntrState
	mgr  *task.Manager
	proc *task.Processor
	tmr  *timer.Registry
	uart *device.Uart

	pids *up.Cell[task.RecycleAllocator]
	ext  *up.Cell[map[int]*procExt]
	fg   *up.Cell[int]
}

// procExt is the kernel-side state of a process that does not belong in
// its control block: the user-level sync primitive tables and the thread
// entry registry. Slots holding nil are free for reuse, like fds.
type procExt struct {
	mutexes  []sync.Mutex
	sems     []*sync.Semaphore
	condvars []*sync.Condvar
	entries  []Program
}

// New wires a kernel to a board. The board is not started until Run.
func New(board hal.Board, cfg Config) *Kernel {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.TickHz == 0 {
		cfg.TickHz = 100
	}
	if cfg.MemoryBytes == 0 {
		cfg.MemoryBytes = 128 << 20
	}

	intr := hart.NewIntrState()
	mgr := task.NewManager(intr, cfg.Logger.WithField("sub", "sched"))
	proc := task.NewProcessor(intr, mgr, board, cfg.Logger.WithField("sub", "sched"))
	tmr := timer.NewRegistry(intr, board, board, mgr, cfg.TickHz, cfg.Logger.WithField("sub", "timer"))
	uart := device.NewUart(intr, proc, board.Console(), cfg.Logger.WithField("sub", "uart"))

	k := &Kernel{
		board: board,
		cfg:   cfg,
		log:   cfg.Logger.WithField("sub", "kern"),
		intr:  intr,
		mgr:   mgr,
		proc:  proc,
		tmr:   tmr,
		uart:  uart,
		pids:  up.NewCell(intr, task.RecycleAllocator{}),
		ext:   up.NewCell(intr, map[int]*procExt{}),
		fg:    up.NewCell(intr, -1),
	}

	proc.OnTaskExit = func(t *task.TaskControlBlock) {
		k.tmr.Remove(t)
	}
	proc.OnProcessGone = func(pid int) {
		k.dropExt(pid)
		if cfg.OnExit != nil {
			cfg.OnExit(pid)
		}
	}
	uart.Intercept = k.interceptConsole

	return k
}

// Uart exposes the console driver, mainly so frontends can preload input
// in tests.
func (k *Kernel) Uart() *device.Uart { return k.uart }

// Spawn creates a process around main and queues its root task. Safe to
// call before Run; processes spawned later join the ready queue as soon
// as the hart next idles.
func (k *Kernel) Spawn(name string, main Program) int {
	var pid int
	k.pids.ExclusiveSession(func(a *task.RecycleAllocator) {
		pid = a.Alloc()
	})

	space := mm.NewPagedSpace(k.cfg.MemoryBytes, brkBase)
	pcb := task.NewProcess(k.intr, pid, name, space,
		device.Stdin{U: k.uart}, device.Stdout{U: k.uart}, device.Stdout{U: k.uart})

	t := task.NewTask(k.intr, pid, 0)
	pcb.Inner.ExclusiveSession(func(in *task.ProcessInner) {
		tid := in.TidAlloc.Alloc()
		if tid != 0 {
			panic("kern: root task did not get tid 0")
		}
		if err := in.Space.Map(stackLowVA(0), stackSize, mm.PermR|mm.PermW); err != nil {
			panic(fmt.Sprintf("kern: mapping root stack: %v", err))
		}
		in.AttachTask(t)
	})
	t.Trap = hart.AppInitContext(entryVA(0), stackTopVA(0), 0)
	t.WithInner(func(in *task.TaskInner) { in.Status = task.StatusReady })

	k.ext.ExclusiveSession(func(m *map[int]*procExt) {
		(*m)[pid] = &procExt{entries: []Program{main}}
	})
	k.fg.ExclusiveSession(func(fg *int) {
		if *fg < 0 {
			*fg = pid
		}
	})

	k.mgr.InsertPID(pcb)
	k.mgr.Add(t)
	k.startTask(t, main)

	k.log.WithFields(logrus.Fields{"pid": pid, "name": name}).Info("process spawned")
	return pid
}

// Run starts the board and schedules until every process has exited or
// ctx ends. It must run on the goroutine that owns the idle context,
// which is whoever calls it.
func (k *Kernel) Run(ctx context.Context) error {
	if err := k.board.Start(intrBridge{k.intr}); err != nil {
		return fmt.Errorf("kern: starting board: %w", err)
	}
	defer k.board.Stop()

	// A canceled ctx must also unwedge an idle loop parked in
	// WaitForInterrupt, so stopping the board doubles as the poke.
	unhook := context.AfterFunc(ctx, k.board.Stop)
	defer unhook()

	k.log.WithFields(logrus.Fields{
		"clock_hz": k.board.Frequency(),
		"tick_hz":  k.cfg.TickHz,
		"memory":   bytesize.New(float64(k.cfg.MemoryBytes)).String(),
	}).Info("kernel up")

	k.tmr.SetNextTrigger()

	for {
		if ctx.Err() != nil {
			k.haltAll()
			return ctx.Err()
		}
		if t := k.mgr.Fetch(); t != nil {
			k.proc.Run(t)
			continue
		}
		if k.mgr.ProcessCount() == 0 {
			k.log.Info("all processes exited")
			return nil
		}
		if line, ok := k.intr.Take(); ok {
			k.handleKernelIntr(line)
			continue
		}
		k.board.WaitForInterrupt()
	}
}

// haltAll unwinds every parked task goroutine. Only the idle loop calls
// it, so no task holds the hart.
func (k *Kernel) haltAll() {
	for _, p := range k.mgr.Processes() {
		var tasks []*task.TaskControlBlock
		p.Inner.ExclusiveSession(func(in *task.ProcessInner) {
			for _, t := range in.Tasks {
				if t != nil {
					tasks = append(tasks, t)
				}
			}
		})
		for _, t := range tasks {
			if t.Status() != task.StatusZombie {
				t.Cx.Halt()
			}
		}
	}
	k.log.Warn("kernel halted with processes still live")
}

// dropExt forgets a process's kernel-side tables and its foreground
// claim.
func (k *Kernel) dropExt(pid int) {
	k.ext.ExclusiveSession(func(m *map[int]*procExt) {
		delete(*m, pid)
	})
	k.fg.ExclusiveSession(func(fg *int) {
		if *fg == pid {
			*fg = -1
		}
	})
}

// withExt runs f over a process's kernel-side tables. Reports false when
// the process is gone. f runs inside the cell session and must not park.
func (k *Kernel) withExt(pid int, f func(*procExt)) bool {
	ok := false
	k.ext.ExclusiveSession(func(m *map[int]*procExt) {
		if e, found := (*m)[pid]; found {
			f(e)
			ok = true
		}
	})
	return ok
}

// process resolves a pid through the registry. Tasks hold pids, never
// process pointers, so a dead process is unreachable the moment its
// registry entry drops.
func (k *Kernel) process(pid int) *task.ProcessControlBlock {
	p, ok := k.mgr.Process(pid)
	if !ok {
		panic(fmt.Sprintf("kern: running task's pid %d not in registry", pid))
	}
	return p
}

// interceptConsole watches the RX stream for control bytes. Ctrl-C turns
// into SIGINT for the foreground process and never reaches its reader.
func (k *Kernel) interceptConsole(b byte) bool {
	if b != 0x03 {
		return false
	}
	pid := -1
	k.fg.ExclusiveSession(func(fg *int) { pid = *fg })
	if pid < 0 {
		return true
	}
	if p, ok := k.mgr.Process(pid); ok {
		p.Inner.ExclusiveSession(func(in *task.ProcessInner) {
			in.Signals |= task.SigINT
		})
		k.log.WithField("pid", pid).Debug("ctrl-c turned into SIGINT")
	}
	return true
}

// handleKernelIntr services an interrupt taken from idle context. Unlike
// the user path there is no current task to suspend or kill.
func (k *Kernel) handleKernelIntr(line hart.Line) {
	switch line.Cause() {
	case hart.CauseSupervisorTimer:
		k.tmr.SetNextTrigger()
		k.tmr.Check()
	case hart.CauseSupervisorExternal:
		k.uart.HandleIRQ()
	default:
		panic(fmt.Sprintf("kern: unexpected interrupt line %d in kernel context", line))
	}
}

// intrBridge forwards board interrupt lines into the hart latch.
type intrBridge struct {
	s *hart.IntrState
}

func (b intrBridge) Raise(l hal.Line) {
	switch l {
	case hal.LineTimer:
		b.s.Raise(hart.LineTimer)
	case hal.LineExternal:
		b.s.Raise(hart.LineExternal)
	}
}
