package sched

import (
	"context"
	"errors"
	"fmt"

	"kestrel/internal/eventbus"
	"kestrel/internal/kernel/port"
	"kestrel/internal/kernel/readyq"
	"kestrel/internal/kernel/task"
	logx "kestrel/pkg/logx"
)

// Ticks counts scheduler tick periods. The counter is 32 bits wide and is
// expected to wrap over device lifetime; all comparisons go through
// TickElapsed, never through < or >.
type Ticks = uint32

// Forever disables the timeout on a blocking call.
const Forever Ticks = ^Ticks(0)

var (
	ErrNoTasks        = errors.New("sched: no tasks registered")
	ErrAlreadyStarted = errors.New("sched: kernel already started")
	ErrBadPriority    = errors.New("sched: priority out of range")
	ErrNilEntry       = errors.New("sched: task entry function is nil")
)

// Config carries the few knobs the kernel itself owns.
type Config struct {
	// DefaultStackWords sizes task stacks when TaskConfig.StackWords is
	// zero. Only the frame-model ports consume the stack; hostsim ignores
	// it entirely.
	DefaultStackWords int
}

func (c Config) withDefaults() Config {
	if c.DefaultStackWords <= 0 {
		c.DefaultStackWords = 256
	}
	return c
}

// TaskConfig describes one task at registration time.
type TaskConfig struct {
	Name       string
	Priority   task.Priority
	StackWords int // 0 = Config.DefaultStackWords
	Entry      func()
}

// Kernel is the single scheduler instance. It is constructed once at boot,
// started once, and never torn down (hostsim runs may stop the port, which
// abandons the simulated machine rather than unwinding it).
//
// Every field below the port handles is guarded by the port's critical
// section.
type Kernel struct {
	cfg  Config
	log  logx.Logger
	bus  eventbus.Bus
	port port.Port
	cs   port.CriticalSection

	ready    readyq.Queue
	current  *task.TCB
	idle     *task.TCB
	tasks    []*task.TCB
	sleepers *task.TCB // unordered singly-linked list of timed waiters

	tick       Ticks
	started    bool
	needSwitch bool // edge-triggered; consumed by SwitchContext
	switches   uint64
	wakes      uint64
}

// New wires a kernel to its port. The port is attached immediately and must
// not be shared with another kernel.
func New(cfg Config, p port.Port, log logx.Logger, bus eventbus.Bus) *Kernel {
	if log.IsZero() {
		log = logx.Nop()
	}
	k := &Kernel{
		cfg:  cfg.withDefaults(),
		log:  log,
		bus:  bus,
		port: p,
		cs:   p.CriticalSection(),
	}
	p.Attach(k)
	return k
}

// Port returns the active back end.
func (k *Kernel) Port() port.Port { return k.port }

// NewTask registers a task. Normally called before Run; registering after
// start is allowed from task context and preempts immediately if the new
// task outranks the caller.
func (k *Kernel) NewTask(cfg TaskConfig) (*task.TCB, error) {
	if !cfg.Priority.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrBadPriority, cfg.Priority)
	}
	if cfg.Entry == nil {
		return nil, ErrNilEntry
	}
	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("task-%d", len(k.tasks))
	}
	words := cfg.StackWords
	if words <= 0 {
		words = k.cfg.DefaultStackWords
	}

	t := &task.TCB{
		Name:     name,
		Priority: cfg.Priority,
		State:    task.StateReady,
		Stack:    make([]task.Word, words),
		Entry:    cfg.Entry,
	}
	if err := k.port.InitTaskStack(t); err != nil {
		return nil, fmt.Errorf("init task stack for %q: %w", name, err)
	}

	k.cs.Enter()
	k.tasks = append(k.tasks, t)
	k.ready.Push(t)
	started := k.started
	if started {
		k.preemptIfHigherLocked()
	}
	k.cs.Leave()
	if started {
		k.checkpoint()
	}

	k.log.Debug("task registered",
		logx.String("task", name),
		logx.Int("priority", int(cfg.Priority)),
		logx.Int("stack_words", words))
	return t, nil
}

// Run starts scheduling: it creates the mandatory idle task, selects the
// highest-priority Ready task and hands off to the port. With the hostsim
// port it blocks until ctx is cancelled; the hardware models return control
// to the caller acting as the simulated CPU.
//
// Registering zero tasks is a configuration error and is reported before
// anything starts.
func (k *Kernel) Run(ctx context.Context) error {
	k.cs.Enter()
	if k.started {
		k.cs.Leave()
		return ErrAlreadyStarted
	}
	if len(k.tasks) == 0 {
		k.cs.Leave()
		return ErrNoTasks
	}
	k.cs.Leave()

	idle, err := k.NewTask(TaskConfig{
		Name:     "idle",
		Priority: task.IdlePriority,
		Entry:    k.idleBody(),
	})
	if err != nil {
		return fmt.Errorf("create idle task: %w", err)
	}

	k.cs.Enter()
	k.idle = idle
	first := k.ready.Pop()
	first.State = task.StateRunning
	k.current = first
	k.started = true
	k.cs.Leave()

	if ctx != nil {
		if s, ok := k.port.(port.Stopper); ok {
			go func() {
				<-ctx.Done()
				s.Stop()
			}()
		}
	}

	k.log.Info("kernel started",
		logx.String("port", k.port.Name()),
		logx.String("first", first.Name),
		logx.Int("tasks", len(k.tasks)))
	k.port.StartFirstTask(first)
	return nil
}

func (k *Kernel) idleBody() func() {
	if is, ok := k.port.(port.IdleSource); ok {
		return is.IdleFunc()
	}
	// Default: spin on the preemption point. The frame-model ports never
	// actually execute this; it only has to exist so the ready queue is
	// structurally non-empty.
	return func() {
		for {
			k.Checkpoint()
		}
	}
}

// checkpoint hands a pending switch to the port if the port completes
// switches at call boundaries. Must be invoked from task context with the
// critical section released.
func (k *Kernel) checkpoint() {
	if y, ok := k.port.(port.Yielder); ok {
		y.Checkpoint()
	}
}

// Checkpoint is the explicit preemption point for compute-bound task code
// on the hostsim port. Hardware targets preempt inside exceptions and do
// not need it; calling it there is a no-op.
func (k *Kernel) Checkpoint() { k.checkpoint() }
