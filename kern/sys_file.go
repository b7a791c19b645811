package kern

import (
	"errors"

	"tern/kern/task"
	"tern/kern/vfs"
)

// sysWrite copies length bytes of user memory at va and writes them to
// fd. The copy out of the address space happens under the process cell;
// the device write happens outside it, since a file may park.
func (k *Kernel) sysWrite(e *Env, fd, va, length uint64) int64 {
	var (
		f    vfs.File
		buf  []byte
		rerr error
	)
	k.process(e.t.Pid).Inner.ExclusiveSession(func(in *task.ProcessInner) {
		f = in.Fd(int(fd))
		if f == nil || !f.Writable() {
			f = nil
			return
		}
		buf = make([]byte, length)
		rerr = in.Space.ReadAt(va, buf)
	})
	if f == nil || rerr != nil {
		return -1
	}
	n, err := f.Write(buf)
	if err != nil {
		return -1
	}
	return int64(n)
}

// sysRead reads up to length bytes from fd into user memory at va.
// Console reads park until input arrives, rechecking pending signals on
// every wakeup so ctrl-c can kill a blocked reader. Datagram endpoints
// report an empty queue as zero bytes.
func (k *Kernel) sysRead(e *Env, fd, va, length uint64) int64 {
	var f vfs.File
	k.process(e.t.Pid).Inner.ExclusiveSession(func(in *task.ProcessInner) {
		f = in.Fd(int(fd))
	})
	if f == nil || !f.Readable() {
		return -1
	}

	buf := make([]byte, length)
	var n int
	for {
		var err error
		n, err = f.Read(buf)
		if err == nil {
			break
		}
		if !errors.Is(err, vfs.ErrWouldBlock) {
			return -1
		}
		w, ok := f.(vfs.Waiter)
		if !ok {
			return 0
		}
		w.WaitInput()
		k.checkSignals(e)
	}

	var werr error
	k.process(e.t.Pid).Inner.ExclusiveSession(func(in *task.ProcessInner) {
		werr = in.Space.WriteAt(va, buf[:n])
	})
	if werr != nil {
		return -1
	}
	return int64(n)
}
