package device

import "tern/kern/vfs"

// Stdin exposes the console receive side as a file. Read drains whatever
// is buffered and reports would-block when nothing is; the syscall layer
// parks through WaitInput and retries, checking signals in between.
type Stdin struct {
	U *Uart
}

func (s Stdin) Readable() bool { return true }
func (s Stdin) Writable() bool { return false }

func (s Stdin) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := 0
	for n < len(p) {
		b, ok := s.U.TryReadByte()
		if !ok {
			break
		}
		p[n] = b
		n++
	}
	if n == 0 {
		return 0, vfs.ErrWouldBlock
	}
	return n, nil
}

// WaitInput parks until console input may be available.
func (s Stdin) WaitInput() { s.U.WaitInput() }

func (s Stdin) Write(p []byte) (int, error) { return 0, vfs.ErrNotSupported }

// Stdout exposes the console transmit side as a file.
type Stdout struct {
	U *Uart
}

func (s Stdout) Readable() bool { return false }
func (s Stdout) Writable() bool { return true }

func (s Stdout) Read(p []byte) (int, error) { return 0, vfs.ErrNotSupported }

func (s Stdout) Write(p []byte) (int, error) { return s.U.Write(p) }
