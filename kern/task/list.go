package task

// TaskList is an intrusive FIFO of task control blocks. The link lives in
// the block itself, which makes "a task sits in at most one queue" a
// checked invariant instead of a convention: pushing a block that is
// already queued panics.
//
// Lists carry no lock; callers wrap them in a cell.
type TaskList struct {
	head *TaskControlBlock
	tail *TaskControlBlock
}

// Push appends t.
func (l *TaskList) Push(t *TaskControlBlock) {
	if t.queued || t.next != nil {
		panic("task: block is already queued")
	}
	t.queued = true
	if l.tail == nil {
		l.head = t
		l.tail = t
		return
	}
	l.tail.next = t
	l.tail = t
}

// Pop removes and returns the head, or nil when the list is empty.
func (l *TaskList) Pop() *TaskControlBlock {
	t := l.head
	if t == nil {
		return nil
	}
	l.head = t.next
	if l.head == nil {
		l.tail = nil
	}
	t.next = nil
	t.queued = false
	return t
}

// Remove unlinks t wherever it sits and reports whether it was present.
func (l *TaskList) Remove(t *TaskControlBlock) bool {
	var prev *TaskControlBlock
	for cur := l.head; cur != nil; cur = cur.next {
		if cur != t {
			prev = cur
			continue
		}
		if prev == nil {
			l.head = cur.next
		} else {
			prev.next = cur.next
		}
		if l.tail == cur {
			l.tail = prev
		}
		cur.next = nil
		cur.queued = false
		return true
	}
	return false
}

// Empty reports whether the list holds no tasks.
func (l *TaskList) Empty() bool { return l.head == nil }
