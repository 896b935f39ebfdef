package sched

import "kestrel/internal/kernel/task"

// TickElapsed reports whether timeout ticks have passed since start, given
// the current counter value. The arithmetic is pure unsigned wraparound, so
// it stays correct when now has wrapped past zero while start has not.
// Timeouts up to half the counter range (~24 days at 1 ms) are unambiguous.
func TickElapsed(now, start, timeout Ticks) bool {
	return now-start >= timeout
}

// Tick advances scheduler time by one period. It must be invoked exactly
// once per timer period from interrupt context: the hardware models call it
// from their timer exception, a host deployment calls it from a dedicated
// timer goroutine.
//
// Tick wakes every timed waiter whose deadline has passed, then requests a
// switch when any Ready task has priority >= the running task's. The >=
// makes equal-priority peers time-slice at tick granularity.
func (k *Kernel) Tick() {
	k.cs.Enter()
	k.tick++
	now := k.tick

	var prev *task.TCB
	for t := k.sleepers; t != nil; {
		next := t.SleepNext
		if TickElapsed(now, t.WaitStart, t.WaitTicks) {
			if prev == nil {
				k.sleepers = next
			} else {
				prev.SleepNext = next
			}
			t.SleepNext = nil
			t.Sleeping = false
			k.wakeLocked(t, task.WakeTimeout)
		} else {
			prev = t
		}
		t = next
	}

	if k.started && k.current != nil {
		if top := k.ready.Peek(); top != nil && top.Priority >= k.current.Priority {
			k.requestSwitchLocked()
		}
	}
	k.cs.Leave()
}

// Now returns the current tick counter.
func (k *Kernel) Now() Ticks {
	k.cs.Enter()
	n := k.tick
	k.cs.Leave()
	return n
}

// NowLocked is Now for callers already inside the critical section.
func (k *Kernel) NowLocked() Ticks { return k.tick }

// SleepTicks blocks the calling task for n ticks. n == 0 degrades to Yield.
// Task context only.
func (k *Kernel) SleepTicks(n Ticks) {
	if n == 0 {
		k.Yield()
		return
	}
	k.cs.Enter()
	k.BlockLocked(nil, n)
	k.cs.Leave()
}

// addSleeperLocked links the current task onto the sleep list with the
// given timeout, anchored at the current tick.
func (k *Kernel) addSleeperLocked(t *task.TCB, timeout Ticks) {
	t.WaitStart = k.tick
	t.WaitTicks = timeout
	t.Sleeping = true
	t.SleepNext = k.sleepers
	k.sleepers = t
}

func (k *Kernel) removeSleeperLocked(t *task.TCB) {
	if !t.Sleeping {
		return
	}
	var prev *task.TCB
	for cur := k.sleepers; cur != nil; cur = cur.SleepNext {
		if cur == t {
			if prev == nil {
				k.sleepers = cur.SleepNext
			} else {
				prev.SleepNext = cur.SleepNext
			}
			break
		}
		prev = cur
	}
	t.SleepNext = nil
	t.Sleeping = false
}

// wakeLocked makes a Blocked task Ready, unlinking it from any IPC wait
// queue first, and preempts if it outranks the running task.
func (k *Kernel) wakeLocked(t *task.TCB, why task.WakeReason) {
	if t.WaitingOn != nil {
		t.WaitingOn.Remove(t)
		t.WaitingOn = nil
	}
	t.WakeReason = why
	t.State = task.StateReady
	k.ready.Push(t)
	k.wakes++
	k.publishLocked(EventWake, WakeEvent{
		Tick:   k.tick,
		Task:   t.Name,
		Reason: why,
	})
	k.preemptIfHigherLocked()
}
