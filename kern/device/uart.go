// Package device holds peripheral drivers. The boards this kernel targets
// expose a single device, the console line.
package device

import (
	"github.com/sirupsen/logrus"

	"tern/hal"
	"tern/kern/sync"
	"tern/kern/up"
)

// Uart buffers console input delivered over the external interrupt line
// and parks readers until bytes arrive. Transmit goes straight through;
// the host console never applies backpressure.
type Uart struct {
	port  hal.Console
	sched sync.Sched
	cond  *sync.Condvar
	inner *up.Cell[uartInner]
	log   *logrus.Entry

	// Intercept sees every received byte before buffering and may swallow
	// it by returning true. The kernel hooks control characters here.
	Intercept func(b byte) bool
}

type uartInner struct {
	rx []byte
}

// NewUart wires the driver to a console port.
func NewUart(gate up.IntrGate, s sync.Sched, port hal.Console, log *logrus.Entry) *Uart {
	return &Uart{
		port:  port,
		sched: s,
		cond:  sync.NewCondvar(gate, s),
		inner: up.NewCell(gate, uartInner{}),
		log:   log,
	}
}

// WaitInput parks the calling task until the buffer may hold input. The
// wait joins the queue while the buffer cell is still open, so an
// interrupt landing in between cannot slip a byte past the sleeper. A
// buffer that already has bytes returns at once. Wakeups may be spurious;
// callers recheck with TryReadByte.
func (u *Uart) WaitInput() {
	var park func()
	u.inner.ExclusiveSession(func(in *uartInner) {
		if len(in.rx) > 0 {
			return
		}
		cx := u.cond.WaitNoSched()
		park = func() { u.sched.Schedule(cx) }
	})
	if park != nil {
		park()
	}
}

// TryReadByte returns a buffered byte without blocking.
func (u *Uart) TryReadByte() (byte, bool) {
	var (
		b  byte
		ok bool
	)
	u.inner.ExclusiveSession(func(in *uartInner) {
		if len(in.rx) > 0 {
			b, ok = in.rx[0], true
			in.rx = in.rx[1:]
		}
	})
	return b, ok
}

// Write transmits p on the console port.
func (u *Uart) Write(p []byte) (int, error) {
	return u.port.Write(p)
}

// HandleIRQ drains the port's receive fifo into the buffer and wakes one
// parked reader per byte kept. An intercepted byte usually posted a
// signal somewhere, so it wakes every parked reader instead; they recheck
// the buffer and notice whatever state changed. Runs in kernel context
// with the hart held.
func (u *Uart) HandleIRQ() {
	count, swallowed := 0, 0
	u.inner.ExclusiveSession(func(in *uartInner) {
		for {
			b, ok := u.port.ReadByte()
			if !ok {
				break
			}
			if u.Intercept != nil && u.Intercept(b) {
				swallowed++
				continue
			}
			in.rx = append(in.rx, b)
			count++
		}
	})
	if count > 0 {
		u.log.WithField("bytes", count).Debug("console rx buffered")
	}
	for i := 0; i < count; i++ {
		u.cond.Signal()
	}
	if swallowed > 0 {
		u.cond.Broadcast()
	}
}

// Buffered reports how many received bytes are waiting.
func (u *Uart) Buffered() int {
	n := 0
	u.inner.ExclusiveSession(func(in *uartInner) {
		n = len(in.rx)
	})
	return n
}
