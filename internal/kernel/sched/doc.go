// Package sched is the architecture-agnostic scheduler core: tick
// processing, wake-time evaluation, and fixed-priority task selection.
//
// Scheduling model: single core, preemptive, interrupt-driven. The strictly
// highest-priority Ready task always runs. Equal-priority tasks round-robin
// at tick boundaries (a tick preempts when a Ready peer has priority >= the
// running task's) and rotate voluntarily via Yield; a wake or resume only
// preempts when the woken task has strictly higher priority.
//
// Two calling contexts exist and must not be mixed up:
//
//   - Task context: code running inside a task body. APIs in this group
//     (Yield, SleepTicks, Suspend, Resume, the blocking IPC paths) may park
//     the caller.
//   - Interrupt context: the tick source, cron injectors, or any goroutine
//     that is not a task. Only the FromISR variants and Tick may be called
//     here; they never park and defer the actual switch to the running
//     task's next safe boundary.
package sched
