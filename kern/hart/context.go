package hart

import "runtime"

// Resume tells a parked context why it got the hart back.
type Resume uint8

const (
	// ResumeRun hands the context the hart.
	ResumeRun Resume = iota
	// ResumeHalt unwinds the parked goroutine instead of resuming it.
	ResumeHalt
)

// TaskContext is one switchable execution context: a goroutine plus the
// one-slot gate its resume permit arrives on.
//
// The gate is buffered so a permit deposited just before the owner parks
// is not lost. At most one permit is in flight per hart, held by whoever
// is running.
type TaskContext struct {
	gate chan Resume
}

// NewTaskContext returns a context whose owner has not parked yet.
func NewTaskContext() *TaskContext {
	return &TaskContext{gate: make(chan Resume, 1)}
}

// SwitchTo hands the hart to next and parks until a permit comes back.
func (cx *TaskContext) SwitchTo(next *TaskContext) {
	next.gate <- ResumeRun
	cx.Park()
}

// Park waits for the context's next permit without handing the hart to
// anyone. Fresh task goroutines park once before their first run.
func (cx *TaskContext) Park() {
	if r := <-cx.gate; r == ResumeHalt {
		runtime.Goexit()
	}
}

// Exit hands the hart to next and ends the calling goroutine. The caller
// must not hold any kernel state.
func (cx *TaskContext) Exit(next *TaskContext) {
	next.gate <- ResumeRun
	runtime.Goexit()
}

// Halt resumes a parked context with an unwind request. It is a no-op if
// a run permit is already pending.
func (cx *TaskContext) Halt() {
	select {
	case cx.gate <- ResumeHalt:
	default:
	}
}
