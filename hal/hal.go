// Package hal is the only contact point between the kernel and the host
// machine: timebase, machine timer, serial console and interrupt wiring.
package hal

import (
	"errors"
	"io"
)

var ErrNotImplemented = errors.New("not implemented")

// Line is a wired interrupt input to the hart.
type Line uint32

const (
	// LineTimer fires when the cycle counter passes the comparator.
	LineTimer Line = 1 << iota
	// LineExternal fires when the console has receive data pending.
	LineExternal
)

// Raiser latches interrupt lines. The kernel supplies one at Start; a
// board may call it from any goroutine.
type Raiser interface {
	Raise(Line)
}

// RXInjector accepts console input on behalf of a board. Frontends feed
// keystrokes through it from their own goroutines.
type RXInjector interface {
	InjectRX(p []byte)
}

// Clock is the machine timebase.
type Clock interface {
	// Cycles reads the free-running cycle counter.
	Cycles() uint64
	// Frequency reports counter cycles per second.
	Frequency() uint64
	// Burn retires n cycles: a wall-clock wait on real-time boards, a
	// counter jump on virtual ones.
	Burn(n uint64)
}

// Timer is the machine timer comparator. Each arm fires LineTimer once
// when the counter reaches the compare value.
type Timer interface {
	SetCompare(cycles uint64)
}

// Console is the serial port: a TX writer plus a drainable RX latch.
// ReadByte never blocks; LineExternal says when draining is worthwhile.
type Console interface {
	io.Writer
	ReadByte() (byte, bool)
}

// Board aggregates the machine devices.
type Board interface {
	Clock
	Timer
	Console() Console
	// Start begins delivering interrupts to r.
	Start(r Raiser) error
	// Stop quiesces the board; no raises happen after it returns.
	Stop()
	// WaitForInterrupt parks until an interrupt has been raised since
	// the last wait. Virtual boards fast-forward time instead.
	WaitForInterrupt()
}
