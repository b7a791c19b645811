package task

// SignalFlags is the pending-signal bitmask of a process.
type SignalFlags uint32

const (
	SigDEF SignalFlags = 1 << iota
	SigHUP
	SigINT
	SigQUIT
	SigILL
	SigTRAP
	SigABRT
	SigBUS
	SigFPE
	SigKILL
	SigUSR1
	SigSEGV
)

// SignalFromNum converts a signal number to its flag bit, or 0 when the
// number is out of range.
func SignalFromNum(num int) SignalFlags {
	if num < 0 || num > 31 {
		return 0
	}
	f := SignalFlags(1) << uint(num)
	if f > SigSEGV {
		return 0
	}
	return f
}

// Check reports the first pending fatal signal as an exit code plus a
// diagnostic. ok is false when nothing fatal is pending.
func (f SignalFlags) Check() (code int, msg string, ok bool) {
	switch {
	case f&SigINT != 0:
		return -2, "Killed, SIGINT=2", true
	case f&SigILL != 0:
		return -4, "Illegal Instruction, SIGILL=4", true
	case f&SigABRT != 0:
		return -6, "Aborted, SIGABRT=6", true
	case f&SigFPE != 0:
		return -8, "Erroneous Arithmetic Operation, SIGFPE=8", true
	case f&SigKILL != 0:
		return -9, "Killed, SIGKILL=9", true
	case f&SigSEGV != 0:
		return -11, "Segmentation Fault, SIGSEGV=11", true
	default:
		return 0, "", false
	}
}
