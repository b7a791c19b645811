package task

// TaskStatus is the scheduling state of a task.
//
// Legal transitions: UnInit -> Ready -> Running -> {Ready, Blocked,
// Zombie}; Blocked -> Ready on wakeup. Zombie is terminal.
type TaskStatus uint8

const (
	StatusUnInit TaskStatus = iota
	StatusReady
	StatusRunning
	StatusBlocked
	StatusZombie
)

func (s TaskStatus) String() string {
	switch s {
	case StatusUnInit:
		return "uninit"
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusBlocked:
		return "blocked"
	case StatusZombie:
		return "zombie"
	default:
		return "unknown"
	}
}
