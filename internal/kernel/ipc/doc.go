// Package ipc holds the inter-task synchronization primitives: bounded
// message queues, counting semaphores, and mutexes. They are a direct
// composition of the kernel's critical section and block/wake contract and
// contain no waiting logic of their own.
//
// Blocking calls take a tick timeout: 0 means fail immediately, a positive
// count bounds the wait, sched.Forever waits indefinitely. A timed-out wait
// returns ErrTimeout; it is never silently retried.
//
// The FromISR variants never block and never complete a switch; they are
// the only forms safe outside task context (timer callbacks, injectors).
package ipc
