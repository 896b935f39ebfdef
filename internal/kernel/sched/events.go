package sched

import (
	"kestrel/internal/eventbus"
	"kestrel/internal/kernel/task"
)

// Event types published on the bus. Publishing is non-blocking and happens
// inside the critical section; slow subscribers drop events rather than
// stall the scheduler.
const (
	EventSwitch = "kernel.switch"
	EventWake   = "kernel.wake"
	EventExit   = "kernel.exit"
)

// SwitchEvent is emitted once per actual context switch (not per request).
type SwitchEvent struct {
	Tick Ticks  `json:"tick"`
	From string `json:"from"`
	To   string `json:"to"`
}

// WakeEvent is emitted when a Blocked task becomes Ready.
type WakeEvent struct {
	Tick   Ticks           `json:"tick"`
	Task   string          `json:"task"`
	Reason task.WakeReason `json:"reason"`
}

// ExitEvent is emitted when a task entry function returns.
type ExitEvent struct {
	Tick Ticks  `json:"tick"`
	Task string `json:"task"`
}

func (k *Kernel) publishLocked(typ string, data any) {
	if k.bus == nil {
		return
	}
	k.bus.Publish(eventbus.Event{Type: typ, Data: data})
}
