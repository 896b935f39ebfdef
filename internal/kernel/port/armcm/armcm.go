// Package armcm models the context-switch back end for the full-ISA 32-bit
// core family: an 8-word hardware exception frame, 8 software-saved callee
// registers, and a switch deferred to the lowest-priority exception so it
// never preempts a higher-priority interrupt.
//
// The model is driven from a single goroutine (tests, or a harness acting
// as the simulated CPU): TriggerContextSwitch pends the switch exception,
// ServicePending takes it. Task entry functions are never executed; frames
// are the product under test.
package armcm

import (
	"errors"

	"kestrel/internal/kernel/port"
	"kestrel/internal/kernel/task"
	logx "kestrel/pkg/logx"
)

var (
	ErrStackTooSmall = errors.New("armcm: stack too small for initial frame")
	ErrNilEntry      = errors.New("armcm: task entry function is nil")
)

// stackMargin keeps a little headroom below the initial frame so the first
// real push after resume cannot underflow the region.
const stackMargin = 8

type Port struct {
	log   logx.Logger
	hooks port.Hooks
	cs    critical

	regs    Registers
	sp      int // live stack pointer index into the running task's stack
	running *task.TCB

	pendSwitch bool
	started    bool
	halted     bool

	tickFn  func()
	entries []func()
}

func New(log logx.Logger) *Port {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Port{log: log}
}

func (p *Port) Name() string { return "armcm" }

func (p *Port) Attach(h port.Hooks) { p.hooks = h }

// critical models global interrupt disable. The depth counter stands in for
// the saved interrupt mask; the model is single-goroutine, so no real lock
// is needed.
type critical struct{ depth int }

func (c *critical) Enter() { c.depth++ }
func (c *critical) Leave() { c.depth-- }

func (p *Port) CriticalSection() port.CriticalSection { return &p.cs }

// InterruptsDisabled reports whether the modeled interrupt mask is set.
func (p *Port) InterruptsDisabled() bool { return p.cs.depth > 0 }

// InitTaskStack assigns the entry a synthetic code address and builds the
// initial frame at the top of the task's stack region.
func (p *Port) InitTaskStack(t *task.TCB) error {
	if t.Entry == nil {
		return ErrNilEntry
	}
	if len(t.Stack) < frameWords+stackMargin {
		return ErrStackTooSmall
	}
	pc := entryBase + task.Word(len(p.entries))*4
	p.entries = append(p.entries, t.Entry)
	t.SP = buildInitialFrame(t.Stack, pc)
	return nil
}

// EntryPC returns the synthetic code address assigned to the i-th
// registered entry. Test helper.
func (p *Port) EntryPC(i int) task.Word { return entryBase + task.Word(i)*4 }

// StartFirstTask installs the first task's frame into the live register
// state. A one-shot supervisor call is reserved for this on real silicon;
// loading the registers directly is equivalent and is what the model does.
// Control returns to the caller acting as the simulated CPU.
func (p *Port) StartFirstTask(first *task.TCB) {
	p.sp = popFrame(first, &p.regs)
	p.running = first
	p.started = true
}

// TriggerContextSwitch pends the dedicated lowest-priority exception and
// returns. Nothing is transferred until ServicePending.
func (p *Port) TriggerContextSwitch() {
	if p.halted {
		return
	}
	p.pendSwitch = true
}

// ServicePending models the switch exception being taken at the next
// instruction boundary with no higher-priority exception active: save the
// outgoing context, ask the scheduler for the next task, restore it.
func (p *Port) ServicePending() {
	if !p.pendSwitch || !p.started || p.halted {
		return
	}
	p.pendSwitch = false

	p.cs.Enter()
	prev, next := p.hooks.SwitchContext()
	if p.halted || next == nil || next == prev {
		p.cs.Leave()
		return
	}
	pushFrame(prev, p.sp, &p.regs)
	p.sp = popFrame(next, &p.regs)
	p.running = next
	p.cs.Leave()
}

// BindTick installs the scheduler's tick entry point, invoked once per
// system timer period.
func (p *Port) BindTick(fn func()) { p.tickFn = fn }

// SysTick models one period of the system timer: the timer exception runs
// the tick callback, then tail-chains into the switch exception if the
// tick pended one.
func (p *Port) SysTick() {
	if p.halted {
		return
	}
	if p.tickFn != nil {
		p.tickFn()
	}
	p.ServicePending()
}

// Registers exposes the live register model. Test helper.
func (p *Port) Registers() *Registers { return &p.regs }

// SP returns the live stack pointer index. Test helper.
func (p *Port) SP() int { return p.sp }

// Running returns the task the model believes owns the CPU.
func (p *Port) Running() *task.TCB { return p.running }

// Halted reports whether the model has latched into its fatal spin state.
func (p *Port) Halted() bool { return p.halted }

// Halt latches the model into a safe spin: every subsequent trigger and
// service call is ignored, standing in for the wfi loop a real port parks
// in when scheduler state is beyond recovery.
func (p *Port) Halt(reason string) {
	p.log.Error("kernel halt", logx.String("reason", reason))
	p.halted = true
}
