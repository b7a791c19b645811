// Package net provides the UDP endpoint capability behind the connect
// call. Transport is a loopback queue; there is no wire underneath.
package net

import (
	"fmt"
	"sync"

	"tern/kern/vfs"
)

// IPv4 is a dotted-quad address packed big-endian into a word.
type IPv4 uint32

// NewIPv4 builds an address from its four octets.
func NewIPv4(a, b, c, d uint8) IPv4 {
	return IPv4(a)<<24 | IPv4(b)<<16 | IPv4(c)<<8 | IPv4(d)
}

func (ip IPv4) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", uint8(ip>>24), uint8(ip>>16), uint8(ip>>8), uint8(ip))
}

// UDP is a connected datagram endpoint. Writes loop straight back into
// the receive queue, which is enough to exercise the fd plumbing without
// a network stack behind it.
type UDP struct {
	raddr IPv4
	lport uint16
	rport uint16

	mu sync.Mutex
	rx [][]byte
}

// NewUDP returns an endpoint connected to raddr:rport from lport.
func NewUDP(raddr IPv4, lport, rport uint16) *UDP {
	return &UDP{raddr: raddr, lport: lport, rport: rport}
}

// Remote reports the connected peer.
func (u *UDP) Remote() (IPv4, uint16) { return u.raddr, u.rport }

// LocalPort reports the bound local port.
func (u *UDP) LocalPort() uint16 { return u.lport }

func (u *UDP) Readable() bool { return true }
func (u *UDP) Writable() bool { return true }

// Write queues one datagram.
func (u *UDP) Write(p []byte) (int, error) {
	pkt := make([]byte, len(p))
	copy(pkt, p)
	u.mu.Lock()
	u.rx = append(u.rx, pkt)
	u.mu.Unlock()
	return len(p), nil
}

// Read pops the oldest datagram into p, truncating if p is short.
func (u *UDP) Read(p []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.rx) == 0 {
		return 0, vfs.ErrWouldBlock
	}
	pkt := u.rx[0]
	u.rx = u.rx[1:]
	return copy(p, pkt), nil
}
