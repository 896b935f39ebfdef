package hostsim_test

import (
	"testing"
	"time"

	"kestrel/internal/kernel/port/hostsim"
	logx "kestrel/pkg/logx"
)

// TestHaltReleasesCriticalSection halts from inside the critical section,
// the way the scheduler does on a fatal invariant violation, and checks the
// section is usable afterwards so diagnostics like Snapshot still work.
func TestHaltReleasesCriticalSection(t *testing.T) {
	t.Parallel()

	p := hostsim.New(logx.Nop())
	cs := p.CriticalSection()

	exited := make(chan struct{})
	go func() {
		defer close(exited)
		cs.Enter()
		p.Halt("corrupt scheduler state")
		t.Error("Halt returned")
	}()
	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatalf("halting goroutine did not exit")
	}

	acquired := make(chan struct{})
	go func() {
		cs.Enter()
		cs.Leave()
		close(acquired)
	}()
	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatalf("critical section still held after halt")
	}
}

// Halt reached outside the critical section must behave the same.
func TestHaltOutsideCriticalSection(t *testing.T) {
	t.Parallel()

	p := hostsim.New(logx.Nop())
	cs := p.CriticalSection()

	exited := make(chan struct{})
	go func() {
		defer close(exited)
		p.Halt("corrupt scheduler state")
	}()
	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatalf("halting goroutine did not exit")
	}

	cs.Enter()
	cs.Leave()
}
