package armcm

import "kestrel/internal/kernel/task"

// Registers is the modeled register file. The port owns it between
// exceptions; tests inspect it directly to verify save/restore round trips.
type Registers struct {
	R   [13]task.Word // r0-r12
	LR  task.Word
	PC  task.Word
	PSR task.Word
}

const (
	// The exception entry stacks r0-r3, r12, lr, pc, xPSR (8 words); the
	// switch handler pushes the remaining callee-saved r4-r11 in software.
	// 16 words, 64 bytes of context per task.
	hwFrameWords = 8
	swFrameWords = 8
	frameWords   = hwFrameWords + swFrameWords

	// initialPSR carries only the Thumb bit; execution state is undefined
	// without it.
	initialPSR task.Word = 0x01000000

	// taskExitTrap is the synthetic return address planted in LR of every
	// initial frame. An entry function that returns resumes here, which
	// faults instead of falling through into garbage.
	taskExitTrap task.Word = 0xfffffffe

	// entryBase is where synthetic code addresses for task entry points
	// start. Each registered entry gets entryBase + 4*index.
	entryBase task.Word = 0x08000000
)

// Frame offsets relative to the saved stack pointer. The software-saved
// half sits below the hardware-stacked half.
const (
	offR4 = iota
	offR5
	offR6
	offR7
	offR8
	offR9
	offR10
	offR11
	offR0
	offR1
	offR2
	offR3
	offR12
	offLR
	offPC
	offPSR
)

// buildInitialFrame lays a synthetic "interrupted" frame at the top of
// stack, as if the task had been preempted the instant before its first
// instruction: scratch registers zeroed, PC at the entry address, LR at the
// exit trap. Returns the index of the new frame top.
func buildInitialFrame(stack []task.Word, pc task.Word) int {
	sp := len(stack) - frameWords
	f := stack[sp : sp+frameWords]
	for i := range f {
		f[i] = 0
	}
	f[offLR] = taskExitTrap
	f[offPC] = pc
	f[offPSR] = initialPSR
	return sp
}

// pushFrame models the save half of the switch: the hardware has already
// conceptually stacked the caller-saved registers on exception entry, and
// the handler stores r4-r11 below them with a single stmdb. Writes the new
// frame top into t.SP.
func pushFrame(t *task.TCB, sp int, r *Registers) {
	sp -= frameWords
	f := t.Stack[sp : sp+frameWords]
	f[offR0] = r.R[0]
	f[offR1] = r.R[1]
	f[offR2] = r.R[2]
	f[offR3] = r.R[3]
	f[offR12] = r.R[12]
	f[offLR] = r.LR
	f[offPC] = r.PC
	f[offPSR] = r.PSR
	for i := 0; i < swFrameWords; i++ {
		f[offR4+i] = r.R[4+i]
	}
	t.SP = sp
}

// popFrame restores the incoming task's context: ldmia of r4-r11, then the
// hardware unstacks the rest on exception return. Returns the live stack
// pointer index after the frame has been consumed.
func popFrame(t *task.TCB, r *Registers) int {
	f := t.Stack[t.SP : t.SP+frameWords]
	for i := 0; i < swFrameWords; i++ {
		r.R[4+i] = f[offR4+i]
	}
	r.R[0] = f[offR0]
	r.R[1] = f[offR1]
	r.R[2] = f[offR2]
	r.R[3] = f[offR3]
	r.R[12] = f[offR12]
	r.LR = f[offLR]
	r.PC = f[offPC]
	r.PSR = f[offPSR]
	return t.SP + frameWords
}
