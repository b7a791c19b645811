// Package vfs defines the file-like capability held by fd-table slots.
package vfs

import "errors"

// ErrNotSupported is returned when a file lacks the requested direction,
// like writing to the keyboard.
var ErrNotSupported = errors.New("vfs: operation not supported")

// ErrWouldBlock is returned by Read when no data is queued. Files never
// park the caller themselves; blocking is the syscall layer's job, so a
// task parked mid-read still sees its pending signals.
var ErrWouldBlock = errors.New("vfs: no data queued")

// File is a read/write capability held in an fd slot.
type File interface {
	Readable() bool
	Writable() bool
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Waiter is implemented by files whose reads are worth parking for. The
// syscall layer parks through WaitInput when a read would block; files
// without it report would-block straight to the caller, datagram style.
type Waiter interface {
	WaitInput()
}
