package task

// Word is the natural machine word of the modeled 32-bit targets.
// Task stacks are word-addressed.
type Word = uint32

// Priority is a fixed task priority in [0, NumPriorities).
//
// Convention: higher numeric value means higher priority. 7 always wins over
// 0, and the idle task runs at 0. (Interrupt priorities on some of the
// modeled cores run the other way; that convention never leaks in here.)
type Priority uint8

// NumPriorities is the number of distinct task priority levels.
const NumPriorities = 8

// IdlePriority is reserved for the idle task. User tasks may share it, but
// they will then compete with idle in FIFO order.
const IdlePriority Priority = 0

func (p Priority) Valid() bool { return p < NumPriorities }

// State is the scheduling state of a task.
//
// Exactly one task is Running at any instant (uniprocessor invariant).
// A task is linked into the ready queue iff its state is Ready.
type State uint8

const (
	StateReady State = iota
	StateRunning
	StateBlocked
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateBlocked:
		return "blocked"
	case StateSuspended:
		return "suspended"
	default:
		return "invalid"
	}
}

// WakeReason reports why a Blocked task became Ready again.
type WakeReason uint8

const (
	WakeNone    WakeReason = iota
	WakeSignal             // the wait condition was satisfied by another task
	WakeTimeout            // the wait timed out
)

// TCB is the per-task control block. One exists per task for the task's
// whole lifetime; there is no deletion path.
//
// All scheduler bookkeeping fields are owned by the kernel and mutated only
// inside the critical section. Stack and SP are owned by the active port
// while the task is not running; for the task that is currently executing,
// SP is stale until the next context switch saves a fresh frame.
type TCB struct {
	Name     string
	Priority Priority
	State    State

	// Stack is the word-addressed backing store used by ports that model a
	// saved register frame. SP indexes the top of the saved frame (the
	// lowest occupied word; stacks grow down). The hostsim port does not
	// use a frame and leaves Stack nil.
	Stack []Word
	SP    int

	// Entry is the task body. It must not return on a real target; the
	// ports arrange a trap sentinel (hardware models) or an exit handler
	// (hostsim) for the case where it does.
	Entry func()

	// Ready queue linkage (per-priority FIFO).
	ReadyNext *TCB

	// Sleep list linkage and wait bookkeeping. A task can be on the sleep
	// list (timeout pending) and an IPC wait queue at the same time.
	SleepNext  *TCB
	Sleeping   bool
	WaitStart  uint32 // tick at which the timed wait began
	WaitTicks  uint32 // timeout, in ticks
	WakeReason WakeReason

	// IPC wait queue linkage. WaitingOn points back at the queue the task
	// is enqueued on so a timeout or suspension can unlink it.
	EventNext *TCB
	WaitingOn *WaitQueue

	// PortData is reserved for the active context-switch port (for example
	// the hostsim worker handle). The kernel never touches it.
	PortData any
}
