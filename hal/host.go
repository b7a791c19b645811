package hal

import (
	"io"
	"os"
	"sync"
	"time"
)

// HostConfig configures the wall-clock board.
type HostConfig struct {
	// Spec supplies the nominal clock rate. Zero value falls back to
	// DefaultSpec.
	Spec Spec

	// Console receives TX bytes. Defaults to os.Stdout.
	Console io.Writer
}

// HostBoard runs the machine against real time. The cycle counter is
// derived from the wall clock at the spec's nominal rate, the timer
// comparator is a time.Timer, and console input arrives from whatever
// frontend calls InjectRX.
type HostBoard struct {
	spec Spec
	out  io.Writer

	mu     sync.Mutex
	raiser Raiser
	epoch  time.Time
	timer  *time.Timer
	rx     []byte

	// wfi latches raises so a sleeper never misses one that landed
	// between draining the lines and parking.
	wfi chan struct{}
}

// NewHostBoard builds a stopped board. The cycle counter starts moving
// immediately; Start only wires the interrupt sink.
func NewHostBoard(cfg HostConfig) *HostBoard {
	if cfg.Spec.ClockHz == 0 {
		cfg.Spec = DefaultSpec()
	}
	if cfg.Console == nil {
		cfg.Console = os.Stdout
	}
	return &HostBoard{
		spec:  cfg.Spec,
		out:   cfg.Console,
		epoch: time.Now(),
		wfi:   make(chan struct{}, 1),
	}
}

// Start wires the interrupt sink and rebases the cycle counter to zero.
func (b *HostBoard) Start(r Raiser) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.raiser = r
	b.epoch = time.Now()
	return nil
}

// Stop detaches the interrupt sink and cancels any armed comparator. It
// also pokes any goroutine parked in WaitForInterrupt so shutdown does not
// hang on an idle machine.
func (b *HostBoard) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.raiser = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	select {
	case b.wfi <- struct{}{}:
	default:
	}
}

// Cycles reports elapsed wall time scaled to the nominal clock rate. The
// two-part math keeps the product inside uint64 for any plausible uptime.
func (b *HostBoard) Cycles() uint64 {
	b.mu.Lock()
	epoch := b.epoch
	b.mu.Unlock()
	ns := uint64(time.Since(epoch).Nanoseconds())
	freq := b.spec.ClockHz
	return ns/1e9*freq + ns%1e9*freq/1e9
}

// Frequency reports the nominal clock rate.
func (b *HostBoard) Frequency() uint64 {
	return b.spec.ClockHz
}

// Burn sleeps for the wall-clock equivalent of n cycles.
func (b *HostBoard) Burn(n uint64) {
	freq := b.spec.ClockHz
	d := time.Duration(n/freq)*time.Second + time.Duration(n%freq*uint64(time.Second)/freq)
	time.Sleep(d)
}

// SetCompare arms the timer comparator. A deadline already in the past
// fires immediately.
func (b *HostBoard) SetCompare(deadline uint64) {
	now := b.Cycles()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if deadline <= now {
		b.raiseLocked(LineTimer)
		return
	}
	freq := b.spec.ClockHz
	n := deadline - now
	d := time.Duration(n/freq)*time.Second + time.Duration(n%freq*uint64(time.Second)/freq)
	b.timer = time.AfterFunc(d, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.raiseLocked(LineTimer)
	})
}

// WaitForInterrupt blocks until the board raises a line. Raises that landed
// since the last wait return immediately.
func (b *HostBoard) WaitForInterrupt() {
	<-b.wfi
}

// InjectRX queues console input and raises the external line. Safe to call
// from any goroutine; frontends feed keystrokes through here.
func (b *HostBoard) InjectRX(p []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rx = append(b.rx, p...)
	b.raiseLocked(LineExternal)
}

// Console exposes the board's console endpoint.
func (b *HostBoard) Console() Console { return b }

// Write sends TX bytes to the configured sink.
func (b *HostBoard) Write(p []byte) (int, error) {
	return b.out.Write(p)
}

// ReadByte pops one byte of pending console input.
func (b *HostBoard) ReadByte() (byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.rx) == 0 {
		return 0, false
	}
	c := b.rx[0]
	b.rx = b.rx[1:]
	return c, true
}

// raiseLocked forwards a line to the sink and pokes any sleeper. Callers
// hold mu.
func (b *HostBoard) raiseLocked(l Line) {
	if b.raiser != nil {
		b.raiser.Raise(l)
	}
	select {
	case b.wfi <- struct{}{}:
	default:
	}
}
