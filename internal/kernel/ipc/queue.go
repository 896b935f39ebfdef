package ipc

import (
	"kestrel/internal/kernel/sched"
	"kestrel/internal/kernel/task"
)

// MaxItemSize bounds queue message size. Messages are fixed-size,
// ownership-free values copied in and out by the queue; the bound keeps
// queue storage and the stack usage of senders and receivers statically
// predictable. Values with embedded pointers that need lifetime tracking
// across the task boundary do not belong in a queue.
const MaxItemSize = 64

// Queue is a bounded byte-copying message queue. Storage is a single ring
// buffer of capacity*itemSize bytes allocated at construction; nothing is
// allocated per message.
type Queue struct {
	k        *sched.Kernel
	itemSize int
	capacity int

	buf   []byte
	head  int // index (in items) of the oldest message
	count int

	senders   task.WaitQueue
	receivers task.WaitQueue
}

// NewQueue builds a queue of capacity messages of exactly itemSize bytes.
func NewQueue(k *sched.Kernel, itemSize, capacity int) (*Queue, error) {
	if k == nil || itemSize <= 0 || capacity <= 0 {
		return nil, ErrBadValue
	}
	if itemSize > MaxItemSize {
		return nil, ErrTooLarge
	}
	return &Queue{
		k:        k,
		itemSize: itemSize,
		capacity: capacity,
		buf:      make([]byte, itemSize*capacity),
	}, nil
}

func (q *Queue) Cap() int { return q.capacity }

func (q *Queue) Len() int {
	q.k.Enter()
	n := q.count
	q.k.Leave()
	return n
}

func (q *Queue) putLocked(msg []byte) {
	slot := (q.head + q.count) % q.capacity
	copy(q.buf[slot*q.itemSize:(slot+1)*q.itemSize], msg)
	q.count++
}

func (q *Queue) getLocked(dst []byte) {
	copy(dst, q.buf[q.head*q.itemSize:(q.head+1)*q.itemSize])
	q.head = (q.head + 1) % q.capacity
	q.count--
}

// Send copies msg into the queue, blocking up to timeout ticks for space.
// Task context only.
func (q *Queue) Send(msg []byte, timeout sched.Ticks) error {
	if len(msg) != q.itemSize {
		return ErrItemSize
	}
	k := q.k
	k.Enter()
	start := k.NowLocked()
	for {
		if q.count < q.capacity {
			q.putLocked(msg)
			k.WakeOneLocked(&q.receivers)
			k.LeaveSwitch()
			return nil
		}
		if timeout == 0 {
			k.Leave()
			return ErrFull
		}
		remaining, ok := remainingTicks(k, start, timeout)
		if !ok {
			k.Leave()
			return ErrTimeout
		}
		if k.BlockLocked(&q.senders, remaining) == task.WakeTimeout {
			k.Leave()
			return ErrTimeout
		}
		// Woken by a receiver draining a slot; a peer may have raced us to
		// it, so re-check rather than assume.
	}
}

// TrySend is Send with no wait.
func (q *Queue) TrySend(msg []byte) error { return q.Send(msg, 0) }

// SendFromISR copies msg in if space is available, waking one receiver.
// Never blocks; any preemption it causes is taken at the running task's
// next safe boundary.
func (q *Queue) SendFromISR(msg []byte) error {
	if len(msg) != q.itemSize {
		return ErrItemSize
	}
	k := q.k
	k.Enter()
	if q.count >= q.capacity {
		k.Leave()
		return ErrFull
	}
	q.putLocked(msg)
	k.WakeOneLocked(&q.receivers)
	k.Leave()
	return nil
}

// Receive copies the oldest message into dst, blocking up to timeout ticks
// for one to arrive. Task context only.
func (q *Queue) Receive(dst []byte, timeout sched.Ticks) error {
	if len(dst) != q.itemSize {
		return ErrItemSize
	}
	k := q.k
	k.Enter()
	start := k.NowLocked()
	for {
		if q.count > 0 {
			q.getLocked(dst)
			k.WakeOneLocked(&q.senders)
			k.LeaveSwitch()
			return nil
		}
		if timeout == 0 {
			k.Leave()
			return ErrEmpty
		}
		remaining, ok := remainingTicks(k, start, timeout)
		if !ok {
			k.Leave()
			return ErrTimeout
		}
		if k.BlockLocked(&q.receivers, remaining) == task.WakeTimeout {
			k.Leave()
			return ErrTimeout
		}
	}
}

// TryReceive is Receive with no wait.
func (q *Queue) TryReceive(dst []byte) error { return q.Receive(dst, 0) }

// remainingTicks shrinks a timeout by the time already spent waiting, so a
// signal-then-race retry cannot extend the caller's total wait. Wraparound
// safe. Critical section held.
func remainingTicks(k *sched.Kernel, start, timeout sched.Ticks) (sched.Ticks, bool) {
	if timeout == sched.Forever {
		return sched.Forever, true
	}
	elapsed := k.NowLocked() - start
	if elapsed >= timeout {
		return 0, false
	}
	return timeout - elapsed, true
}
