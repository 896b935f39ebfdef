package ipc

import (
	"kestrel/internal/kernel/sched"
	"kestrel/internal/kernel/task"
)

// Semaphore is a counting semaphore. A positive count admits that many
// acquires without blocking; releases beyond limit are discarded (a binary
// semaphore is just limit 1).
//
// Wakes are not direct handoffs: a released waiter re-checks the count and
// may lose the race to a task that acquired in between, in which case it
// blocks again for its remaining timeout.
type Semaphore struct {
	k       *sched.Kernel
	count   int
	limit   int
	waiters task.WaitQueue
}

func NewSemaphore(k *sched.Kernel, initial, limit int) (*Semaphore, error) {
	if k == nil || limit <= 0 || initial < 0 || initial > limit {
		return nil, ErrBadValue
	}
	return &Semaphore{k: k, count: initial, limit: limit}, nil
}

func (s *Semaphore) Count() int {
	s.k.Enter()
	n := s.count
	s.k.Leave()
	return n
}

// Acquire takes one count, blocking up to timeout ticks. Task context only.
func (s *Semaphore) Acquire(timeout sched.Ticks) error {
	k := s.k
	k.Enter()
	start := k.NowLocked()
	for {
		if s.count > 0 {
			s.count--
			k.Leave()
			return nil
		}
		if timeout == 0 {
			k.Leave()
			return ErrTimeout
		}
		remaining, ok := remainingTicks(k, start, timeout)
		if !ok {
			k.Leave()
			return ErrTimeout
		}
		if k.BlockLocked(&s.waiters, remaining) == task.WakeTimeout {
			k.Leave()
			return ErrTimeout
		}
	}
}

// TryAcquire takes one count without waiting.
func (s *Semaphore) TryAcquire() bool {
	k := s.k
	k.Enter()
	ok := s.count > 0
	if ok {
		s.count--
	}
	k.Leave()
	return ok
}

// Release returns one count and wakes the longest waiter. Task context;
// may preempt the caller if the waiter outranks it.
func (s *Semaphore) Release() {
	k := s.k
	k.Enter()
	s.releaseLocked()
	k.LeaveSwitch()
}

// ReleaseFromISR is Release for interrupt context: never parks the caller.
func (s *Semaphore) ReleaseFromISR() {
	k := s.k
	k.Enter()
	s.releaseLocked()
	k.Leave()
}

func (s *Semaphore) releaseLocked() {
	if s.count < s.limit {
		s.count++
	}
	s.k.WakeOneLocked(&s.waiters)
}
