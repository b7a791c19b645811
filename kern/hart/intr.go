package hart

import "sync/atomic"

// Line is a wired interrupt input.
type Line uint32

const (
	LineTimer Line = 1 << iota
	LineExternal
)

// Cause maps the line to its trap cause.
func (l Line) Cause() Cause {
	switch l {
	case LineTimer:
		return CauseSupervisorTimer
	case LineExternal:
		return CauseSupervisorExternal
	default:
		return CauseUnknown
	}
}

// IntrState is the hart's interrupt latch: pending lines plus the global
// delivery-enable bit.
//
// Raise may be called from any goroutine. Delivery points drain the latch
// with Take, which yields nothing while delivery is disabled; latched
// lines stay pending until taken.
type IntrState struct {
	pending atomic.Uint32
	enabled atomic.Bool
	notify  chan struct{}
}

// NewIntrState returns a latch with delivery enabled and nothing pending.
func NewIntrState() *IntrState {
	s := &IntrState{notify: make(chan struct{}, 1)}
	s.enabled.Store(true)
	return s
}

// Raise latches the line and nudges anyone sleeping in Notify.
func (s *IntrState) Raise(l Line) {
	for {
		old := s.pending.Load()
		if s.pending.CompareAndSwap(old, old|uint32(l)) {
			break
		}
	}
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Take drains and returns the highest-priority deliverable line.
// Timer outranks external.
func (s *IntrState) Take() (Line, bool) {
	if !s.enabled.Load() {
		return 0, false
	}
	for {
		old := s.pending.Load()
		if old == 0 {
			return 0, false
		}
		var l Line
		switch {
		case old&uint32(LineTimer) != 0:
			l = LineTimer
		default:
			l = LineExternal
		}
		if s.pending.CompareAndSwap(old, old&^uint32(l)) {
			return l, true
		}
	}
}

// Pending reports whether any line is latched, deliverable or not.
func (s *IntrState) Pending() bool {
	return s.pending.Load() != 0
}

// Disable turns delivery off and reports the previous enable state.
func (s *IntrState) Disable() bool {
	return s.enabled.Swap(false)
}

// Restore sets the enable state back to a value saved by Disable.
func (s *IntrState) Restore(enabled bool) {
	s.enabled.Store(enabled)
}

// Enabled reports whether delivery is on.
func (s *IntrState) Enabled() bool {
	return s.enabled.Load()
}

// Notify returns the channel nudged by Raise. Receiving from it clears
// the nudge; callers re-check Pending afterwards.
func (s *IntrState) Notify() <-chan struct{} {
	return s.notify
}
