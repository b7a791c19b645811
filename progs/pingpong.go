package progs

import (
	"tern/kern"
	"tern/kern/net"
)

// PingPong opens a udp endpoint and bounces a datagram off it. The
// transport loops writes back to the reader, so the round trip proves the
// fd plumbing end to end: connect, write, read, all through user memory.
func PingPong(e *kern.Env) {
	fd := e.Connect(net.NewIPv4(10, 0, 2, 2), 26099, 2000)
	if fd < 0 {
		e.Print("pingpong: connect failed\n")
		e.Exit(-1)
	}

	msg := []byte("ping")
	if n := e.Write(int(fd), msg); n != int64(len(msg)) {
		e.Printf("pingpong: short write %d\n", n)
		e.Exit(-1)
	}

	buf := make([]byte, 16)
	n := e.Read(int(fd), buf)
	if n <= 0 {
		e.Print("pingpong: empty read\n")
		e.Exit(-1)
	}
	e.Printf("pingpong: got %q back on fd %d\n", buf[:n], fd)
}
