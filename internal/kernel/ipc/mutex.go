package ipc

import (
	"kestrel/internal/kernel/sched"
	"kestrel/internal/kernel/task"
)

// Mutex is a non-recursive ownership lock. There is no priority
// inheritance: a low-priority owner can delay a high-priority waiter for
// as long as it holds the lock. Keep critical regions short.
type Mutex struct {
	k       *sched.Kernel
	owner   *task.TCB
	waiters task.WaitQueue
}

func NewMutex(k *sched.Kernel) (*Mutex, error) {
	if k == nil {
		return nil, ErrBadValue
	}
	return &Mutex{k: k}, nil
}

// Lock acquires the mutex, blocking up to timeout ticks. Acquiring a mutex
// the caller already owns fails with ErrSelfLock rather than deadlocking.
// Task context only.
func (m *Mutex) Lock(timeout sched.Ticks) error {
	k := m.k
	k.Enter()
	cur := k.CurrentLocked()
	if m.owner == cur {
		k.Leave()
		return ErrSelfLock
	}
	start := k.NowLocked()
	for {
		if m.owner == nil {
			m.owner = cur
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
		if k.BlockLocked(&m.waiters, remaining) == task.WakeTimeout {
			k.Leave()
			return ErrTimeout
		}
	}
}

// TryLock acquires the mutex without waiting.
func (m *Mutex) TryLock() bool {
	k := m.k
	k.Enter()
	ok := m.owner == nil
	if ok {
		m.owner = k.CurrentLocked()
	}
	k.Leave()
	return ok
}

// Unlock releases the mutex and wakes the longest waiter. Only the owner
// may unlock. Task context only.
func (m *Mutex) Unlock() error {
	k := m.k
	k.Enter()
	if m.owner != k.CurrentLocked() {
		k.Leave()
		return ErrNotOwner
	}
	m.owner = nil
	k.WakeOneLocked(&m.waiters)
	k.LeaveSwitch()
	return nil
}

// Owner reports the current holder's name, or "" when unlocked.
// Diagnostic only.
func (m *Mutex) Owner() string {
	k := m.k
	k.Enter()
	name := ""
	if m.owner != nil {
		name = m.owner.Name
	}
	k.Leave()
	return name
}
