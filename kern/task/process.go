package task

import (
	"tern/kern/mm"
	"tern/kern/up"
	"tern/kern/vfs"
)

// ProcessControlBlock is the per-process resource container. Tasks refer
// to it by pid through the registry, never by pointer, so a process with
// no live tasks really is gone once the registry entry drops.
type ProcessControlBlock struct {
	Pid   int
	Name  string
	Inner *up.Cell[ProcessInner]
}

// ProcessInner is the lock-protected part of a process block.
type ProcessInner struct {
	// Tasks is indexed by tid; reclaimed slots are nil.
	Tasks []*TaskControlBlock
	// Live counts tasks that have not exited yet.
	Live int

	TidAlloc RecycleAllocator
	FdTable  []vfs.File
	Space    mm.AddressSpace
	Signals  SignalFlags
}

// NewProcess builds a process block with the standard fd triple wired to
// the console files.
func NewProcess(gate up.IntrGate, pid int, name string, space mm.AddressSpace, stdin, stdout, stderr vfs.File) *ProcessControlBlock {
	return &ProcessControlBlock{
		Pid:  pid,
		Name: name,
		Inner: up.NewCell(gate, ProcessInner{
			FdTable: []vfs.File{stdin, stdout, stderr},
			Space:   space,
		}),
	}
}

// AllocFd places f in the lowest free slot and returns its number.
func (in *ProcessInner) AllocFd(f vfs.File) int {
	for fd, slot := range in.FdTable {
		if slot == nil {
			in.FdTable[fd] = f
			return fd
		}
	}
	in.FdTable = append(in.FdTable, f)
	return len(in.FdTable) - 1
}

// Fd returns the file in slot fd, or nil when the slot is empty or out
// of range.
func (in *ProcessInner) Fd(fd int) vfs.File {
	if fd < 0 || fd >= len(in.FdTable) {
		return nil
	}
	return in.FdTable[fd]
}

// AttachTask records t under its tid and counts it live.
func (in *ProcessInner) AttachTask(t *TaskControlBlock) {
	for len(in.Tasks) <= t.Tid {
		in.Tasks = append(in.Tasks, nil)
	}
	if in.Tasks[t.Tid] != nil {
		panic("task: tid slot already occupied")
	}
	in.Tasks[t.Tid] = t
	in.Live++
}

// Task returns the block in slot tid, or nil when absent.
func (in *ProcessInner) Task(tid int) *TaskControlBlock {
	if tid < 0 || tid >= len(in.Tasks) {
		return nil
	}
	return in.Tasks[tid]
}
