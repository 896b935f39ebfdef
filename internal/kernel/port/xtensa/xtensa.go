// Package xtensa models the context-switch back end for the windowed-
// register core. The exception frame is larger than the armcm family's
// because the register file itself is windowed: all 16 live window
// registers go out, plus the shift-amount register, the fault cause and
// address registers, and the three hardware loop registers.
//
// Two further differences from the armcm family are modeled:
//
//   - Window overflow handling: a 4-word base save area is reserved under
//     every frame, where the window overflow handler spills a0-a3 of the
//     caller's window. A plain push/pop of the current window is not
//     sufficient on this architecture.
//   - The periodic tick comes from a compare-match timer, and the switch
//     is requested on a separate low-priority software interrupt, since
//     the core has no dedicated switch exception to pend.
package xtensa

import (
	"errors"

	"kestrel/internal/kernel/port"
	"kestrel/internal/kernel/task"
	logx "kestrel/pkg/logx"
)

var (
	ErrStackTooSmall = errors.New("xtensa: stack too small for initial frame")
	ErrNilEntry      = errors.New("xtensa: task entry function is nil")
)

// Registers is the modeled state the switch must preserve.
type Registers struct {
	A        [16]task.Word // current window, a0-a15
	SAR      task.Word
	EXCCAUSE task.Word
	EXCVADDR task.Word
	LBEG     task.Word
	LEND     task.Word
	LCOUNT   task.Word
	PS       task.Word
	PC       task.Word
}

const (
	windowWords  = 16
	specialWords = 9 // SAR, EXCCAUSE, EXCVADDR, LBEG, LEND, LCOUNT, PS, PC + pad
	frameWords   = windowWords + specialWords

	// baseSaveWords is the area under every frame reserved for the window
	// overflow handler to spill the caller's a0-a3.
	baseSaveWords = 4
	stackMargin   = 8

	// initialPS: windowed-overflow enable, user vector mode, call
	// increment of one register window. Interrupts enabled.
	initialPS task.Word = 0x00050020

	taskExitTrap task.Word = 0xfffffffe
	entryBase    task.Word = 0x40080000
)

// Frame indices, lowest address first.
const (
	offA0       = 0  // a0-a15
	offSAR      = 16
	offEXCCAUSE = 17
	offEXCVADDR = 18
	offLBEG     = 19
	offLEND     = 20
	offLCOUNT   = 21
	offPS       = 22
	offPC       = 23
	offPad      = 24 // keeps the frame 8-byte aligned
)

type Port struct {
	log   logx.Logger
	hooks port.Hooks
	cs    critical

	regs    Registers
	sp      int
	running *task.TCB

	// softPend models the low-priority software interrupt used for the
	// switch; ccount/ccompare model the tick timer.
	softPend bool
	ccount   task.Word
	ccompare task.Word

	started bool
	halted  bool

	tickFn  func()
	entries []func()
}

func New(log logx.Logger) *Port {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Port{log: log, ccompare: 1}
}

func (p *Port) Name() string { return "xtensa" }

func (p *Port) Attach(h port.Hooks) { p.hooks = h }

type critical struct{ depth int }

func (c *critical) Enter() { c.depth++ }
func (c *critical) Leave() { c.depth-- }

func (p *Port) CriticalSection() port.CriticalSection { return &p.cs }

// InitTaskStack builds the initial frame and its base save area. a0 takes
// the exit trap (it is the return register of the windowed ABI), PC the
// synthetic entry address, PS the initial status word.
func (p *Port) InitTaskStack(t *task.TCB) error {
	if t.Entry == nil {
		return ErrNilEntry
	}
	if len(t.Stack) < frameWords+baseSaveWords+stackMargin {
		return ErrStackTooSmall
	}
	pc := entryBase + task.Word(len(p.entries))*4
	p.entries = append(p.entries, t.Entry)

	sp := len(t.Stack) - frameWords
	f := t.Stack[sp : sp+frameWords]
	for i := range f {
		f[i] = 0
	}
	f[offA0] = taskExitTrap
	f[offPS] = initialPS
	f[offPC] = pc

	// Zero the base save area so a spurious overflow spill reads as a
	// terminated call chain rather than stack garbage.
	for i := sp - baseSaveWords; i < sp; i++ {
		t.Stack[i] = 0
	}
	t.SP = sp
	return nil
}

// spillWindow models the window overflow handler's work ahead of a switch:
// the caller's a0-a3 land in the base save area under the outgoing frame.
// On real silicon this happens lazily per overflow exception; the switch
// path forces it so the saved stack is self-contained.
func spillWindow(t *task.TCB, sp int, r *Registers) {
	base := sp - frameWords - baseSaveWords
	if base < 0 {
		return
	}
	for i := 0; i < baseSaveWords; i++ {
		t.Stack[base+i] = r.A[i]
	}
}

func (p *Port) save(t *task.TCB, sp int) {
	sp -= frameWords
	f := t.Stack[sp : sp+frameWords]
	for i := 0; i < windowWords; i++ {
		f[offA0+i] = p.regs.A[i]
	}
	f[offSAR] = p.regs.SAR
	f[offEXCCAUSE] = p.regs.EXCCAUSE
	f[offEXCVADDR] = p.regs.EXCVADDR
	f[offLBEG] = p.regs.LBEG
	f[offLEND] = p.regs.LEND
	f[offLCOUNT] = p.regs.LCOUNT
	f[offPS] = p.regs.PS
	f[offPC] = p.regs.PC
	t.SP = sp
	spillWindow(t, sp+frameWords, &p.regs)
}

func (p *Port) restore(t *task.TCB) int {
	f := t.Stack[t.SP : t.SP+frameWords]
	for i := 0; i < windowWords; i++ {
		p.regs.A[i] = f[offA0+i]
	}
	p.regs.SAR = f[offSAR]
	p.regs.EXCCAUSE = f[offEXCCAUSE]
	p.regs.EXCVADDR = f[offEXCVADDR]
	p.regs.LBEG = f[offLBEG]
	p.regs.LEND = f[offLEND]
	p.regs.LCOUNT = f[offLCOUNT]
	p.regs.PS = f[offPS]
	p.regs.PC = f[offPC]
	return t.SP + frameWords
}

func (p *Port) StartFirstTask(first *task.TCB) {
	p.sp = p.restore(first)
	p.running = first
	p.started = true
}

// TriggerContextSwitch raises the low-priority software interrupt.
func (p *Port) TriggerContextSwitch() {
	if p.halted {
		return
	}
	p.softPend = true
}

// ServiceSoftware models the software interrupt being taken.
func (p *Port) ServiceSoftware() {
	if !p.softPend || !p.started || p.halted {
		return
	}
	p.softPend = false

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

// TimerInterrupt models one compare-match period: bump the cycle counter,
// run the tick callback, then take the software interrupt if the tick
// requested a switch.
func (p *Port) TimerInterrupt() {
	if p.halted {
		return
	}
	p.ccount = p.ccompare
	p.ccompare++
	if p.tickFn != nil {
		p.tickFn()
	}
	p.ServiceSoftware()
}

func (p *Port) EntryPC(i int) task.Word { return entryBase + task.Word(i)*4 }

func (p *Port) Registers() *Registers { return &p.regs }

func (p *Port) SP() int { return p.sp }

func (p *Port) Running() *task.TCB { return p.running }

func (p *Port) Halted() bool { return p.halted }

func (p *Port) Halt(reason string) {
	p.log.Error("kernel halt", logx.String("reason", reason))
	p.halted = true
}
