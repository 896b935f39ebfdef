package sched

import "kestrel/internal/kernel/task"

// requestSwitchLocked arms the edge-triggered switch request and forwards
// it to the port. Safe to call redundantly; the flag is consumed once.
func (k *Kernel) requestSwitchLocked() {
	k.needSwitch = true
	k.port.TriggerContextSwitch()
}

// preemptIfHigherLocked requests a switch when a Ready task strictly
// outranks the running one. Wake paths use this (equal priority does not
// preempt on wake; it waits for the tick boundary).
func (k *Kernel) preemptIfHigherLocked() {
	if !k.started || k.current == nil {
		return
	}
	if top := k.ready.Peek(); top != nil && top.Priority > k.current.Priority {
		k.requestSwitchLocked()
	}
}

// SwitchContext implements port.Hooks. The port calls it at its safe switch
// boundary with the critical section held.
func (k *Kernel) SwitchContext() (prev, next *task.TCB) {
	k.needSwitch = false
	prev = k.current
	if prev != nil && prev.State == task.StateRunning {
		prev.State = task.StateReady
		k.ready.Push(prev)
	}
	next = k.ready.Pop()
	if next == nil {
		// Structurally impossible once the idle task exists; if it happens
		// anyway, scheduler state is corrupt and there is no safe recovery.
		k.port.Halt("ready queue empty during switch")
		return prev, prev
	}
	next.State = task.StateRunning
	k.current = next
	if next != prev {
		k.switches++
		k.publishLocked(EventSwitch, SwitchEvent{
			Tick: k.tick,
			From: nameOf(prev),
			To:   next.Name,
		})
	}
	return prev, next
}

// TaskExited implements port.Hooks: the entry function of t returned. The
// task is retired as permanently Suspended; there is no deletion path, so
// the TCB stays around for diagnostics.
func (k *Kernel) TaskExited(t *task.TCB) {
	t.State = task.StateSuspended
	k.publishLocked(EventExit, ExitEvent{Tick: k.tick, Task: t.Name})
}

// Yield offers the CPU to a Ready task of equal or higher priority. With
// FIFO ready lists this rotates equal-priority peers; if the caller is
// alone at the top it simply keeps running. Task context only.
func (k *Kernel) Yield() {
	k.cs.Enter()
	k.requestSwitchLocked()
	k.cs.Leave()
	k.checkpoint()
}

// Suspend removes t from scheduling until Resume. t == nil suspends the
// caller. A Blocked task loses its wait: it is unlinked from its wait queue
// and sleep entry and will not observe a timeout. Task context only.
func (k *Kernel) Suspend(t *task.TCB) {
	k.cs.Enter()
	if t == nil {
		t = k.current
	}
	switch t.State {
	case task.StateRunning:
		t.State = task.StateSuspended
		k.requestSwitchLocked()
	case task.StateReady:
		k.ready.Remove(t)
		t.State = task.StateSuspended
	case task.StateBlocked:
		if t.WaitingOn != nil {
			t.WaitingOn.Remove(t)
			t.WaitingOn = nil
		}
		k.removeSleeperLocked(t)
		t.State = task.StateSuspended
	case task.StateSuspended:
		// already out
	}
	k.cs.Leave()
	k.checkpoint()
}

// Resume makes a Suspended task Ready again, preempting the caller if the
// resumed task outranks it. Task context only; use ResumeFromISR elsewhere.
func (k *Kernel) Resume(t *task.TCB) {
	k.resume(t)
	k.checkpoint()
}

// ResumeFromISR is Resume for interrupt context: it never parks the caller,
// the switch happens at the running task's next safe boundary.
func (k *Kernel) ResumeFromISR(t *task.TCB) { k.resume(t) }

func (k *Kernel) resume(t *task.TCB) {
	k.cs.Enter()
	if t != nil && t.State == task.StateSuspended && t != k.current {
		t.State = task.StateReady
		t.WakeReason = task.WakeNone
		k.ready.Push(t)
		k.preemptIfHigherLocked()
	}
	k.cs.Leave()
}

func nameOf(t *task.TCB) string {
	if t == nil {
		return ""
	}
	return t.Name
}
