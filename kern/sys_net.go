package kern

import (
	"github.com/sirupsen/logrus"

	"tern/kern/net"
	"tern/kern/task"
)

// sysConnect opens a UDP endpoint to raddr:rport from lport and binds it
// to the lowest free fd. Only datagram sockets exist; the transport is a
// loopback queue, so the fd-table bookkeeping is the whole contract.
func (k *Kernel) sysConnect(e *Env, raddr, lport, rport uint64) int64 {
	ep := net.NewUDP(net.IPv4(raddr), uint16(lport), uint16(rport))
	var fd int
	k.process(e.t.Pid).Inner.ExclusiveSession(func(in *task.ProcessInner) {
		fd = in.AllocFd(ep)
	})
	k.log.WithFields(logrus.Fields{
		"pid":   e.t.Pid,
		"fd":    fd,
		"raddr": net.IPv4(raddr).String(),
		"rport": uint16(rport),
	}).Debug("udp endpoint connected")
	return int64(fd)
}
