// Package readyq holds the priority-indexed ready queue.
//
// The queue keeps one FIFO list per priority level plus a bitmap of
// non-empty levels, so "highest-priority ready task" is a single
// bits.Len call regardless of how many tasks are ready.
package readyq

import (
	"math/bits"

	"kestrel/internal/kernel/task"
)

// Queue indexes Ready tasks by priority. It carries no lock; every call
// must happen inside the kernel's critical section.
//
// Invariant: a task is linked here iff its state is Ready.
type Queue struct {
	head   [task.NumPriorities]*task.TCB
	tail   [task.NumPriorities]*task.TCB
	bitmap uint8
	n      int
}

func (q *Queue) Len() int { return q.n }

// Bitmap reports which priority levels currently hold ready tasks.
// Bit i corresponds to priority i.
func (q *Queue) Bitmap() uint8 { return q.bitmap }

// Push appends t to the FIFO for its priority level.
func (q *Queue) Push(t *task.TCB) {
	p := t.Priority
	t.ReadyNext = nil
	if q.tail[p] == nil {
		q.head[p] = t
	} else {
		q.tail[p].ReadyNext = t
	}
	q.tail[p] = t
	q.bitmap |= 1 << p
	q.n++
}

// Peek returns the task Pop would return, without removing it.
func (q *Queue) Peek() *task.TCB {
	if q.bitmap == 0 {
		return nil
	}
	return q.head[bits.Len8(q.bitmap)-1]
}

// Pop removes and returns the longest-waiting task at the highest
// non-empty priority level, or nil if the queue is empty.
func (q *Queue) Pop() *task.TCB {
	if q.bitmap == 0 {
		return nil
	}
	p := task.Priority(bits.Len8(q.bitmap) - 1)
	t := q.head[p]
	q.unlink(p, nil, t)
	return t
}

// Remove unlinks t from its priority list. Returns false if t is not
// queued. Only used on the slow paths (suspend of a Ready task), so the
// linear walk within one priority level is fine.
func (q *Queue) Remove(t *task.TCB) bool {
	p := t.Priority
	var prev *task.TCB
	for cur := q.head[p]; cur != nil; cur = cur.ReadyNext {
		if cur == t {
			q.unlink(p, prev, cur)
			return true
		}
		prev = cur
	}
	return false
}

func (q *Queue) unlink(p task.Priority, prev, cur *task.TCB) {
	if prev == nil {
		q.head[p] = cur.ReadyNext
	} else {
		prev.ReadyNext = cur.ReadyNext
	}
	if q.tail[p] == cur {
		q.tail[p] = prev
	}
	if q.head[p] == nil {
		q.bitmap &^= 1 << p
	}
	cur.ReadyNext = nil
	q.n--
}
