// Package port defines the contract between the scheduler core and the
// architecture-specific context-switch back ends.
//
// The kernel is written against this contract only; it never branches on a
// target architecture. Four implementations exist:
//
//   - armcm:   full-ISA 32-bit core model (8-word hardware exception frame
//     plus 8 software-saved callee registers, PendSV-style deferred switch)
//   - armcm0:  reduced-ISA variant of the same frame (high registers are
//     staged through the low ones on the save path)
//   - xtensa:  windowed-register core model (window registers, SAR, loop
//     registers; tick from a compare-timer/software-interrupt pair)
//   - hostsim: goroutine-per-task simulation for off-target testing
package port

import "kestrel/internal/kernel/task"

// CriticalSection serializes scheduler-state mutation against asynchronous
// tick and switch-request delivery. On the hardware models it stands in for
// global interrupt disable; on hostsim it is a process-wide mutex.
//
// It is not reentrant. The kernel never nests critical sections; internal
// helpers that assume the section is held carry a Locked suffix instead.
type CriticalSection interface {
	Enter()
	Leave()
}

// Hooks is the scheduler side of the contract. A port invokes these at its
// safe switch boundary: exception entry on the hardware models, a kernel
// call checkpoint on hostsim. The critical section is held for every call.
type Hooks interface {
	// SwitchContext consumes the pending switch request. It re-queues the
	// outgoing task if it is still Running, selects the highest-priority
	// Ready task, marks it Running and returns both. prev == next means no
	// register transfer is needed.
	SwitchContext() (prev, next *task.TCB)

	// TaskExited reports that a task's entry function returned. The task
	// is retired permanently; the port must transfer to another task
	// afterwards and never resume this one.
	TaskExited(t *task.TCB)
}

// Port is the back-end contract proper: stack initialization, first-task
// start, and switch triggering. Exactly one port is active per kernel.
type Port interface {
	Name() string

	// Attach binds the scheduler. Called once, before any task is created.
	Attach(h Hooks)

	// CriticalSection returns the section instance guarding this kernel's
	// state. Stable across calls.
	CriticalSection() CriticalSection

	// InitTaskStack constructs a synthetic "interrupted" frame on
	// t.Stack such that resuming from it would begin executing t.Entry
	// with a defined initial machine state: scratch registers zeroed,
	// status register set up for thread execution with interrupts
	// enabled, return address pointing at a trap sentinel. Writes the
	// frame top into t.SP. Must not assume the task has ever run.
	InitTaskStack(t *task.TCB) error

	// StartFirstTask installs the first task's saved frame into the live
	// machine state and begins execution. Invoked exactly once. On real
	// hardware this never returns; the hardware models hand control back
	// to the caller acting as the simulated CPU, and hostsim blocks until
	// the port is stopped.
	StartFirstTask(first *task.TCB)

	// TriggerContextSwitch arms the lowest-priority asynchronous switch
	// mechanism available and returns immediately. The register transfer
	// happens later, at a boundary the mechanism chooses.
	TriggerContextSwitch()

	// Halt parks the machine in a safe low-power state after an
	// unrecoverable invariant violation. It must not crash and must not
	// let scheduling continue.
	Halt(reason string)
}

// Yielder is implemented by ports whose deferred switches complete at
// kernel call boundaries rather than at a hardware exception (hostsim).
// The kernel calls Checkpoint from task context after leaving the critical
// section; ports that switch inside exceptions simply don't implement it.
type Yielder interface {
	Checkpoint()
}

// IdleSource lets a port supply the idle task body. Ports that can park
// cheaply (hostsim waits on a channel instead of spinning) use this;
// otherwise the kernel installs a default spin loop.
type IdleSource interface {
	IdleFunc() func()
}

// Stopper is implemented by ports that can be shut down. Stopping releases
// StartFirstTask; it exists for the simulation back end, where a run must
// end without powering off a board.
type Stopper interface {
	Stop()
}
