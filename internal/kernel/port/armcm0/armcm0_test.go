package armcm0_test

import (
	"errors"
	"testing"

	"kestrel/internal/kernel/port/armcm"
	"kestrel/internal/kernel/port/armcm0"
	"kestrel/internal/kernel/task"
	logx "kestrel/pkg/logx"
)

// hooksStub lets the tests script the scheduler's switch decision directly.
type hooksStub struct {
	prev, next *task.TCB
	exited     []*task.TCB
}

func (h *hooksStub) SwitchContext() (*task.TCB, *task.TCB) { return h.prev, h.next }
func (h *hooksStub) TaskExited(t *task.TCB)                { h.exited = append(h.exited, t) }

func mkTask(name string, words int) *task.TCB {
	return &task.TCB{
		Name:  name,
		Stack: make([]task.Word, words),
		Entry: func() {},
	}
}

// TestFrameIdenticalToFullISA pins the documented compatibility property:
// the reduced core's saved frame is bit-identical to armcm's, only the
// save/restore path differs.
func TestFrameIdenticalToFullISA(t *testing.T) {
	t.Parallel()

	full := armcm.New(logx.Nop())
	reduced := armcm0.New(logx.Nop())

	for i := 0; i < 3; i++ {
		a := mkTask("full", 64)
		b := mkTask("reduced", 64)
		if err := full.InitTaskStack(a); err != nil {
			t.Fatalf("armcm InitTaskStack: %v", err)
		}
		if err := reduced.InitTaskStack(b); err != nil {
			t.Fatalf("armcm0 InitTaskStack: %v", err)
		}
		if a.SP != b.SP {
			t.Fatalf("entry %d: SP %d vs %d", i, a.SP, b.SP)
		}
		for w := a.SP; w < len(a.Stack); w++ {
			if a.Stack[w] != b.Stack[w] {
				t.Fatalf("entry %d: frame word %d: %#x vs %#x", i, w, a.Stack[w], b.Stack[w])
			}
		}
	}
}

func TestInitialFrameLoaded(t *testing.T) {
	t.Parallel()

	p := armcm0.New(logx.Nop())
	a := mkTask("a", 64)
	if err := p.InitTaskStack(a); err != nil {
		t.Fatalf("InitTaskStack: %v", err)
	}
	p.Attach(&hooksStub{})
	p.StartFirstTask(a)

	r := p.Registers()
	if r.PC != p.EntryPC(0) {
		t.Fatalf("PC = %#x, want %#x", r.PC, p.EntryPC(0))
	}
	if r.LR != 0xfffffffe {
		t.Fatalf("LR = %#x, want exit trap", r.LR)
	}
	if r.PSR != 0x01000000 {
		t.Fatalf("PSR = %#x, want Thumb bit only", r.PSR)
	}
	if p.SP() != len(a.Stack) {
		t.Fatalf("SP() = %d, want %d", p.SP(), len(a.Stack))
	}
}

// TestHighRegisterRoundTrip checks that r8-r11, which travel through the
// low registers on this core, survive a save/restore cycle unchanged.
func TestHighRegisterRoundTrip(t *testing.T) {
	t.Parallel()

	p := armcm0.New(logx.Nop())
	a, b := mkTask("a", 64), mkTask("b", 64)
	for _, tk := range []*task.TCB{a, b} {
		if err := p.InitTaskStack(tk); err != nil {
			t.Fatalf("InitTaskStack(%s): %v", tk.Name, err)
		}
	}
	h := &hooksStub{}
	p.Attach(h)
	p.StartFirstTask(a)

	r := p.Registers()
	want := armcm0.Registers{LR: 0xa11a, PC: 0xbeef, PSR: 0x01000003}
	for i := range want.R {
		want.R[i] = 0x2000 + task.Word(i)
	}
	*r = want

	h.prev, h.next = a, b
	p.TriggerContextSwitch()
	p.ServicePending()
	if p.Running() != b {
		t.Fatalf("Running() = %v, want b", p.Running())
	}
	if r.PC != p.EntryPC(1) {
		t.Fatalf("PC = %#x, want b's entry", r.PC)
	}

	h.prev, h.next = b, a
	p.TriggerContextSwitch()
	p.ServicePending()
	if *r != want {
		t.Fatalf("restored registers = %+v, want %+v", *r, want)
	}
}

func TestSwitchCyclesAccumulate(t *testing.T) {
	t.Parallel()

	p := armcm0.New(logx.Nop())
	a, b := mkTask("a", 64), mkTask("b", 64)
	for _, tk := range []*task.TCB{a, b} {
		if err := p.InitTaskStack(tk); err != nil {
			t.Fatalf("InitTaskStack(%s): %v", tk.Name, err)
		}
	}
	h := &hooksStub{}
	p.Attach(h)
	p.StartFirstTask(a) // one restore
	if got := p.SwitchCycles(); got != 10 {
		t.Fatalf("SwitchCycles() after start = %d, want 10", got)
	}

	h.prev, h.next = a, b
	p.TriggerContextSwitch()
	p.ServicePending() // one save + one restore
	if got := p.SwitchCycles(); got != 30 {
		t.Fatalf("SwitchCycles() after switch = %d, want 30", got)
	}
}

func TestDeferredUntilServiced(t *testing.T) {
	t.Parallel()

	p := armcm0.New(logx.Nop())
	a, b := mkTask("a", 64), mkTask("b", 64)
	for _, tk := range []*task.TCB{a, b} {
		if err := p.InitTaskStack(tk); err != nil {
			t.Fatalf("InitTaskStack(%s): %v", tk.Name, err)
		}
	}
	h := &hooksStub{prev: a, next: b}
	p.Attach(h)
	p.StartFirstTask(a)

	// Servicing without a pending trigger must not switch.
	p.ServicePending()
	if p.Running() != a {
		t.Fatalf("switched without a pended exception")
	}
	p.TriggerContextSwitch()
	if p.Running() != a {
		t.Fatalf("trigger transferred control immediately")
	}
	p.ServicePending()
	if p.Running() != b {
		t.Fatalf("Running() = %v, want b", p.Running())
	}
}

func TestSysTickRunsTickThenSwitch(t *testing.T) {
	t.Parallel()

	p := armcm0.New(logx.Nop())
	a, b := mkTask("a", 64), mkTask("b", 64)
	for _, tk := range []*task.TCB{a, b} {
		if err := p.InitTaskStack(tk); err != nil {
			t.Fatalf("InitTaskStack(%s): %v", tk.Name, err)
		}
	}
	h := &hooksStub{prev: a, next: b}
	p.Attach(h)
	p.StartFirstTask(a)

	ticks := 0
	p.BindTick(func() {
		ticks++
		p.TriggerContextSwitch()
	})
	p.SysTick()
	if ticks != 1 {
		t.Fatalf("tick callback ran %d times, want 1", ticks)
	}
	if p.Running() != b {
		t.Fatalf("tail-chained switch did not happen")
	}
}

func TestStackTooSmall(t *testing.T) {
	t.Parallel()

	p := armcm0.New(logx.Nop())
	err := p.InitTaskStack(mkTask("a", 16))
	if !errors.Is(err, armcm0.ErrStackTooSmall) {
		t.Fatalf("err = %v, want ErrStackTooSmall", err)
	}
	if err := p.InitTaskStack(&task.TCB{Name: "nil", Stack: make([]task.Word, 64)}); !errors.Is(err, armcm0.ErrNilEntry) {
		t.Fatalf("err = %v, want ErrNilEntry", err)
	}
}
