package sched

import "kestrel/internal/kernel/task"

// Enter and Leave expose the kernel's critical section to the IPC
// primitives, which compose their atomicity from it. Leave does not consume
// a pending switch; callers on a path that may have woken or blocked a task
// use LeaveSwitch instead.
func (k *Kernel) Enter() { k.cs.Enter() }
func (k *Kernel) Leave() { k.cs.Leave() }

// LeaveSwitch leaves the critical section and hands any pending switch
// request to the port. Task context only.
func (k *Kernel) LeaveSwitch() {
	k.cs.Leave()
	k.checkpoint()
}

// Current returns the running task.
func (k *Kernel) Current() *task.TCB {
	k.cs.Enter()
	t := k.current
	k.cs.Leave()
	return t
}

// CurrentLocked is Current for callers already inside the critical section.
func (k *Kernel) CurrentLocked() *task.TCB { return k.current }

// BlockLocked transitions the calling task to Blocked, optionally enqueued
// on wq and optionally bounded by a tick timeout, and switches away. It
// must be called from task context with the critical section held; it
// returns with the section held again once the task has been woken, and
// reports why.
//
// A waker that fires between the section being released and the task
// parking is not lost: the hostsim resume signal is a one-slot semaphore,
// and the hardware models switch inside exceptions where the window does
// not exist.
func (k *Kernel) BlockLocked(wq *task.WaitQueue, timeout Ticks) task.WakeReason {
	cur := k.current
	cur.WakeReason = task.WakeNone
	cur.State = task.StateBlocked
	if wq != nil {
		wq.PushBack(cur)
		cur.WaitingOn = wq
	}
	if timeout != Forever {
		k.addSleeperLocked(cur, timeout)
	}
	k.requestSwitchLocked()

	k.cs.Leave()
	k.checkpoint()
	k.cs.Enter()
	return cur.WakeReason
}

// WakeOneLocked releases the longest waiter on wq, if any. The woken task
// is detached from its timeout and becomes Ready with WakeSignal; a
// strictly higher-priority wake requests preemption. Critical section held.
func (k *Kernel) WakeOneLocked(wq *task.WaitQueue) *task.TCB {
	t := wq.PopFront()
	if t == nil {
		return nil
	}
	t.WaitingOn = nil
	k.removeSleeperLocked(t)
	t.WakeReason = task.WakeSignal
	t.State = task.StateReady
	k.ready.Push(t)
	k.wakes++
	k.publishLocked(EventWake, WakeEvent{
		Tick:   k.tick,
		Task:   t.Name,
		Reason: task.WakeSignal,
	})
	k.preemptIfHigherLocked()
	return t
}
