package task

// WaitQueue is a FIFO of tasks blocked on the same condition (queue space,
// queue data, a semaphore signal, a mutex release).
//
// The scheduler does not order equal waiters by priority; wake order is
// strictly arrival order. All mutation happens inside the kernel's critical
// section, so the queue itself carries no lock.
type WaitQueue struct {
	head *TCB
	tail *TCB
	n    int
}

func (q *WaitQueue) Empty() bool { return q.head == nil }

func (q *WaitQueue) Len() int { return q.n }

// PushBack appends t. The caller must ensure t is not linked anywhere else.
func (q *WaitQueue) PushBack(t *TCB) {
	t.EventNext = nil
	if q.tail == nil {
		q.head = t
	} else {
		q.tail.EventNext = t
	}
	q.tail = t
	q.n++
}

// PopFront removes and returns the longest-waiting task, or nil.
func (q *WaitQueue) PopFront() *TCB {
	t := q.head
	if t == nil {
		return nil
	}
	q.head = t.EventNext
	if q.head == nil {
		q.tail = nil
	}
	t.EventNext = nil
	q.n--
	return t
}

// Remove unlinks t wherever it sits in the queue. Used when a timed wait
// expires or the task is suspended while blocked.
func (q *WaitQueue) Remove(t *TCB) bool {
	var prev *TCB
	for cur := q.head; cur != nil; cur = cur.EventNext {
		if cur != t {
			prev = cur
			continue
		}
		if prev == nil {
			q.head = cur.EventNext
		} else {
			prev.EventNext = cur.EventNext
		}
		if q.tail == cur {
			q.tail = prev
		}
		cur.EventNext = nil
		q.n--
		return true
	}
	return false
}
