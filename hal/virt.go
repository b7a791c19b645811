package hal

import (
	"bytes"
	"io"
	"sort"
	"sync"
)

// VirtConfig configures the simulated board.
type VirtConfig struct {
	// Spec supplies the clock rate. Zero value falls back to DefaultSpec.
	Spec Spec

	// TX, when set, receives a live copy of every console write in
	// addition to the recorded transcript.
	TX io.Writer
}

// VirtBoard is a fully deterministic machine. Time is a counter that moves
// only when a task burns cycles or the idle loop fast-forwards to the next
// armed wake source, so a run produces the same interleaving every time.
//
// The board doubles as its own console: writes land in a transcript that
// tests inspect with Output, reads drain a FIFO fed by InjectRX or by
// scripted arrivals.
type VirtBoard struct {
	spec   Spec
	mirror io.Writer

	mu           sync.Mutex
	cycles       uint64
	compare      uint64
	compareArmed bool
	raiser       Raiser
	rx           []byte
	script       []scriptedRX
	tx           bytes.Buffer
}

type scriptedRX struct {
	at   uint64
	data []byte
}

// NewVirtBoard builds a stopped board at cycle zero.
func NewVirtBoard(cfg VirtConfig) *VirtBoard {
	if cfg.Spec.ClockHz == 0 {
		cfg.Spec = DefaultSpec()
	}
	return &VirtBoard{spec: cfg.Spec, mirror: cfg.TX}
}

// Start wires the interrupt sink. The board raises nothing before Start.
func (b *VirtBoard) Start(r Raiser) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.raiser = r
	return nil
}

// Stop detaches the interrupt sink.
func (b *VirtBoard) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.raiser = nil
}

// Cycles reports the current value of the cycle counter.
func (b *VirtBoard) Cycles() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cycles
}

// Frequency reports ticks of the cycle counter per simulated second.
func (b *VirtBoard) Frequency() uint64 {
	return b.spec.ClockHz
}

// Burn advances the clock by n cycles, delivering any timer comparator or
// scripted receive events crossed along the way, in cycle order.
func (b *VirtBoard) Burn(n uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advanceTo(b.cycles + n)
}

// SetCompare arms the timer comparator. A deadline at or before the current
// cycle fires immediately; otherwise it fires when the clock crosses it.
// The comparator is edge triggered and disarms after raising.
func (b *VirtBoard) SetCompare(deadline uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.compare = deadline
	b.compareArmed = true
	if deadline <= b.cycles {
		b.compareArmed = false
		b.raise(LineTimer)
	}
}

// WaitForInterrupt fast-forwards the clock to the nearest armed wake source
// and delivers it. With nothing armed the machine can never wake again, so
// it panics rather than hang.
func (b *VirtBoard) WaitForInterrupt() {
	b.mu.Lock()
	defer b.mu.Unlock()
	at, ok := b.nearestEvent()
	if !ok {
		panic("virt: wait for interrupt with no wake source armed")
	}
	b.advanceTo(at)
}

// InjectRX queues console input at the current cycle and raises the
// external line. Safe to call from any goroutine.
func (b *VirtBoard) InjectRX(p []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rx = append(b.rx, p...)
	b.raise(LineExternal)
}

// ScriptRX schedules console input to arrive once the clock reaches the
// given cycle.
func (b *VirtBoard) ScriptRX(at uint64, p []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data := append([]byte(nil), p...)
	b.script = append(b.script, scriptedRX{at: at, data: data})
	sort.SliceStable(b.script, func(i, j int) bool { return b.script[i].at < b.script[j].at })
}

// Console exposes the board's own transcript-backed console.
func (b *VirtBoard) Console() Console { return b }

// Write records console output, mirroring it when a TX writer was given.
func (b *VirtBoard) Write(p []byte) (int, error) {
	b.mu.Lock()
	b.tx.Write(p)
	b.mu.Unlock()
	if b.mirror != nil {
		b.mirror.Write(p)
	}
	return len(p), nil
}

// ReadByte pops one byte of pending console input.
func (b *VirtBoard) ReadByte() (byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.rx) == 0 {
		return 0, false
	}
	c := b.rx[0]
	b.rx = b.rx[1:]
	return c, true
}

// Output snapshots everything written to the console so far.
func (b *VirtBoard) Output() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.tx.Bytes()...)
}

// advanceTo moves the clock to target, stopping at each armed event on the
// way so deliveries happen in cycle order. Callers hold mu.
func (b *VirtBoard) advanceTo(target uint64) {
	for {
		at, ok := b.nearestEvent()
		if !ok || at > target {
			break
		}
		if at > b.cycles {
			b.cycles = at
		}
		b.deliverDue()
	}
	if target > b.cycles {
		b.cycles = target
	}
}

// nearestEvent reports the earliest armed wake source. Callers hold mu.
func (b *VirtBoard) nearestEvent() (uint64, bool) {
	var at uint64
	ok := false
	if b.compareArmed {
		at, ok = b.compare, true
	}
	if len(b.script) > 0 && (!ok || b.script[0].at < at) {
		at, ok = b.script[0].at, true
	}
	return at, ok
}

// deliverDue fires every event whose cycle has been reached. Callers hold mu.
func (b *VirtBoard) deliverDue() {
	if b.compareArmed && b.compare <= b.cycles {
		b.compareArmed = false
		b.raise(LineTimer)
	}
	for len(b.script) > 0 && b.script[0].at <= b.cycles {
		b.rx = append(b.rx, b.script[0].data...)
		b.script = b.script[1:]
		b.raise(LineExternal)
	}
}

func (b *VirtBoard) raise(l Line) {
	if b.raiser != nil {
		b.raiser.Raise(l)
	}
}
