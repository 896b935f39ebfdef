// Package armcm0 models the reduced-ISA variant of the armcm back end.
//
// The frame layout and exception mechanism are identical to armcm: the same
// 8-word hardware frame, the same 8 software-saved callee registers, 64
// bytes per context. What differs is the save/restore path: this core's
// store-multiple instruction only reaches r0-r7, so r8-r11 must be moved
// through the low registers four at a time before the normal push form can
// be used. That costs a handful of cycles per switch and nothing else; the
// saved frame is bit-identical to armcm's.
package armcm0

import (
	"errors"

	"kestrel/internal/kernel/port"
	"kestrel/internal/kernel/task"
	logx "kestrel/pkg/logx"
)

var (
	ErrStackTooSmall = errors.New("armcm0: stack too small for initial frame")
	ErrNilEntry      = errors.New("armcm0: task entry function is nil")
)

type Registers struct {
	R   [13]task.Word // r0-r12
	LR  task.Word
	PC  task.Word
	PSR task.Word
}

const (
	frameWords  = 16
	stackMargin = 8

	initialPSR   task.Word = 0x01000000 // Thumb bit
	taskExitTrap task.Word = 0xfffffffe
	entryBase    task.Word = 0x08000000

	// Per-switch cost of shuffling r8-r11 through the low registers:
	// 4 mov + the extra push/pop pair, on both the save and restore side.
	shuffleCycles = 10
)

// Frame indices, lowest address first: software half below the hardware
// half, exactly as armcm lays it out.
const (
	offLow  = 0 // r4-r7
	offHigh = 4 // r8-r11
	offR0   = 8 // hardware frame: r0-r3, r12, lr, pc, xPSR
	offR12  = 12
	offLR   = 13
	offPC   = 14
	offPSR  = 15
)

type Port struct {
	log   logx.Logger
	hooks port.Hooks
	cs    critical

	regs    Registers
	sp      int
	running *task.TCB

	pendSwitch bool
	started    bool
	halted     bool

	tickFn       func()
	entries      []func()
	switchCycles uint64
}

func New(log logx.Logger) *Port {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Port{log: log}
}

func (p *Port) Name() string { return "armcm0" }

func (p *Port) Attach(h port.Hooks) { p.hooks = h }

type critical struct{ depth int }

func (c *critical) Enter() { c.depth++ }
func (c *critical) Leave() { c.depth-- }

func (p *Port) CriticalSection() port.CriticalSection { return &p.cs }

func (p *Port) InitTaskStack(t *task.TCB) error {
	if t.Entry == nil {
		return ErrNilEntry
	}
	if len(t.Stack) < frameWords+stackMargin {
		return ErrStackTooSmall
	}
	pc := entryBase + task.Word(len(p.entries))*4
	p.entries = append(p.entries, t.Entry)

	sp := len(t.Stack) - frameWords
	f := t.Stack[sp : sp+frameWords]
	for i := range f {
		f[i] = 0
	}
	f[offLR] = taskExitTrap
	f[offPC] = pc
	f[offPSR] = initialPSR
	t.SP = sp
	return nil
}

// save stores the outgoing context. The hardware frame is conceptually
// already stacked; the handler pushes r4-r7 directly, then stages r8-r11
// through r4-r7 because the push encoding cannot reach them.
func (p *Port) save(t *task.TCB, sp int) {
	sp -= frameWords
	f := t.Stack[sp : sp+frameWords]

	f[offR0+0] = p.regs.R[0]
	f[offR0+1] = p.regs.R[1]
	f[offR0+2] = p.regs.R[2]
	f[offR0+3] = p.regs.R[3]
	f[offR12] = p.regs.R[12]
	f[offLR] = p.regs.LR
	f[offPC] = p.regs.PC
	f[offPSR] = p.regs.PSR

	var stage [4]task.Word
	for i := 0; i < 4; i++ {
		f[offLow+i] = p.regs.R[4+i]
		stage[i] = p.regs.R[8+i] // mov r4-r7, r8-r11
	}
	for i := 0; i < 4; i++ {
		f[offHigh+i] = stage[i]
	}
	p.switchCycles += shuffleCycles
	t.SP = sp
}

// restore is the mirror: pop r8-r11 into r4-r7 first, move them up, then
// pop the real r4-r7; the hardware unstacks the rest on exception return.
func (p *Port) restore(t *task.TCB) int {
	f := t.Stack[t.SP : t.SP+frameWords]

	var stage [4]task.Word
	for i := 0; i < 4; i++ {
		stage[i] = f[offHigh+i]
	}
	for i := 0; i < 4; i++ {
		p.regs.R[8+i] = stage[i] // mov r8-r11, r4-r7
		p.regs.R[4+i] = f[offLow+i]
	}

	p.regs.R[0] = f[offR0+0]
	p.regs.R[1] = f[offR0+1]
	p.regs.R[2] = f[offR0+2]
	p.regs.R[3] = f[offR0+3]
	p.regs.R[12] = f[offR12]
	p.regs.LR = f[offLR]
	p.regs.PC = f[offPC]
	p.regs.PSR = f[offPSR]
	p.switchCycles += shuffleCycles
	return t.SP + frameWords
}

func (p *Port) StartFirstTask(first *task.TCB) {
	p.sp = p.restore(first)
	p.running = first
	p.started = true
}

func (p *Port) TriggerContextSwitch() {
	if p.halted {
		return
	}
	p.pendSwitch = true
}

// ServicePending models the deferred switch exception being taken.
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
	p.save(prev, p.sp)
	p.sp = p.restore(next)
	p.running = next
	p.cs.Leave()
}

func (p *Port) BindTick(fn func()) { p.tickFn = fn }

// SysTick models one timer period: tick callback, then tail-chain into a
// pended switch.
func (p *Port) SysTick() {
	if p.halted {
		return
	}
	if p.tickFn != nil {
		p.tickFn()
	}
	p.ServicePending()
}

func (p *Port) EntryPC(i int) task.Word { return entryBase + task.Word(i)*4 }

func (p *Port) Registers() *Registers { return &p.regs }

func (p *Port) SP() int { return p.sp }

func (p *Port) Running() *task.TCB { return p.running }

// SwitchCycles reports the accumulated modeled cost of the high-register
// shuffling. Purely diagnostic; armcm has no equivalent because its
// store-multiple reaches the whole callee-saved set.
func (p *Port) SwitchCycles() uint64 { return p.switchCycles }

func (p *Port) Halted() bool { return p.halted }

func (p *Port) Halt(reason string) {
	p.log.Error("kernel halt", logx.String("reason", reason))
	p.halted = true
}
