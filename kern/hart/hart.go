// Package hart models the execution state of a single virtual hart:
// trap frames, switchable kernel contexts, and the interrupt latch.
package hart

// Cause identifies why the hart entered the kernel.
type Cause uint8

const (
	CauseUnknown Cause = iota
	CauseUserEnvCall
	CauseStoreFault
	CauseStorePageFault
	CauseLoadFault
	CauseLoadPageFault
	CauseInstructionFault
	CauseInstructionPageFault
	CauseIllegalInstruction
	CauseBreakpoint
	CauseSupervisorTimer
	CauseSupervisorExternal
)

func (c Cause) String() string {
	switch c {
	case CauseUserEnvCall:
		return "user_env_call"
	case CauseStoreFault:
		return "store_fault"
	case CauseStorePageFault:
		return "store_page_fault"
	case CauseLoadFault:
		return "load_fault"
	case CauseLoadPageFault:
		return "load_page_fault"
	case CauseInstructionFault:
		return "instruction_fault"
	case CauseInstructionPageFault:
		return "instruction_page_fault"
	case CauseIllegalInstruction:
		return "illegal_instruction"
	case CauseBreakpoint:
		return "breakpoint"
	case CauseSupervisorTimer:
		return "supervisor_timer"
	case CauseSupervisorExternal:
		return "supervisor_external"
	default:
		return "unknown"
	}
}

// Interrupt reports whether the cause is asynchronous.
func (c Cause) Interrupt() bool {
	return c == CauseSupervisorTimer || c == CauseSupervisorExternal
}

// Register indices into TrapContext.X, following the RISC-V integer ABI.
const (
	RegSP = 2
	RegA0 = 10
	RegA1 = 11
	RegA2 = 12
	RegA3 = 13
	RegA4 = 14
	RegA7 = 17
)

// TrapContext is the register file captured when a task enters the kernel.
//
// It is touched only by whichever context currently holds the hart, so it
// carries no lock of its own.
type TrapContext struct {
	X    [32]uint64
	SEPC uint64
}

// AppInitContext builds the trap frame for a fresh task: pc at entry,
// stack pointer at sp, a0 carrying the task argument.
func AppInitContext(entry, sp, arg uint64) TrapContext {
	cx := TrapContext{SEPC: entry}
	cx.X[RegSP] = sp
	cx.X[RegA0] = arg
	return cx
}
