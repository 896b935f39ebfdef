// Package hostsim is the desktop simulation back end. Each task is realized
// as a goroutine parked on a one-slot wake semaphore; a context switch
// signals the incoming task's goroutine and parks the outgoing one.
//
// The port is cooperative at kernel boundaries: a switch requested from
// interrupt context (the tick goroutine, a FromISR call) completes when the
// running task next enters the kernel or calls Checkpoint. Selection
// outcomes are identical to the hardware ports; only the transfer mechanism
// differs.
//
// A stopped port abandons its parked goroutines instead of unwinding them,
// the same way a halted board abandons its tasks. The port is therefore
// strictly one-shot.
package hostsim

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"kestrel/internal/kernel/port"
	"kestrel/internal/kernel/task"
	logx "kestrel/pkg/logx"
)

var ErrNilEntry = errors.New("hostsim: task entry function is nil")

type Port struct {
	log logx.Logger

	// mu is the process-wide critical section standing in for global
	// interrupt disable.
	mu sync.Mutex

	hooks port.Hooks

	// pending is the deferred-switch latch; pendCh additionally pokes the
	// idle loop so it can consume a request raised while nothing else
	// wants the CPU.
	pending atomic.Bool
	pendCh  chan struct{}

	started  atomic.Bool
	done     chan struct{}
	stopOnce sync.Once
}

// worker is the per-task execution vehicle. wake is a one-slot semaphore:
// a resume delivered before the goroutine parks is not lost, it just makes
// the next park return immediately. (Same protocol as a counting pause
// semaphore clamped at one.)
type worker struct {
	t    *task.TCB
	wake chan struct{}
}

func (w *worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func New(log logx.Logger) *Port {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Port{
		log:    log,
		pendCh: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (p *Port) Name() string { return "hostsim" }

func (p *Port) Attach(h port.Hooks) { p.hooks = h }

type critical struct{ mu *sync.Mutex }

func (c critical) Enter() { c.mu.Lock() }
func (c critical) Leave() { c.mu.Unlock() }

func (p *Port) CriticalSection() port.CriticalSection { return critical{&p.mu} }

// InitTaskStack has no frame to build; it spawns the task's goroutine
// parked on its wake semaphore. The goroutine does not touch the entry
// function until the scheduler transfers control to it for the first time.
func (p *Port) InitTaskStack(t *task.TCB) error {
	if t.Entry == nil {
		return ErrNilEntry
	}
	w := &worker{t: t, wake: make(chan struct{}, 1)}
	t.PortData = w
	go p.run(w)
	return nil
}

func (p *Port) run(w *worker) {
	<-w.wake
	select {
	case <-p.done:
		return
	default:
	}
	w.t.Entry()

	// The entry function returned. Retire the task and transfer to the
	// next one without parking: this goroutine is done.
	p.mu.Lock()
	p.hooks.TaskExited(w.t)
	_, next := p.hooks.SwitchContext()
	var nw *worker
	if next != nil && next != w.t {
		nw, _ = next.PortData.(*worker)
	}
	p.mu.Unlock()
	if nw != nil {
		nw.signal()
	}
}

// StartFirstTask releases the first task's goroutine and blocks until the
// port is stopped. It never returns control to a running simulation.
func (p *Port) StartFirstTask(first *task.TCB) {
	p.started.Store(true)
	if w, ok := first.PortData.(*worker); ok {
		w.signal()
	}
	<-p.done
}

// TriggerContextSwitch arms the deferred-switch latch. The transfer itself
// happens at the running task's next Checkpoint, which is the lowest-
// priority boundary this port has.
func (p *Port) TriggerContextSwitch() {
	p.pending.Store(true)
	select {
	case p.pendCh <- struct{}{}:
	default:
	}
}

// Checkpoint consumes a pending switch request. It must run on the current
// task's goroutine, outside the critical section: if a transfer is needed,
// the calling goroutine parks here until the scheduler hands control back.
func (p *Port) Checkpoint() {
	if !p.pending.Load() {
		return
	}
	p.mu.Lock()
	if !p.pending.Swap(false) {
		p.mu.Unlock()
		return
	}
	prev, next := p.hooks.SwitchContext()
	if next == nil || next == prev {
		p.mu.Unlock()
		return
	}
	pw, _ := prev.PortData.(*worker)
	nw, _ := next.PortData.(*worker)
	p.mu.Unlock()

	if nw != nil {
		nw.signal()
	}
	if pw != nil {
		// Park. This goroutine is prev's worker; it resumes exactly here
		// when prev is selected again.
		<-pw.wake
	}
}

// IdleFunc parks on the pending-switch channel instead of spinning, the
// host equivalent of a low-power wait-for-interrupt loop.
func (p *Port) IdleFunc() func() {
	return func() {
		for {
			select {
			case <-p.done:
				return
			case <-p.pendCh:
				p.Checkpoint()
			}
		}
	}
}

// Stop releases StartFirstTask and abandons all task goroutines. Idempotent.
func (p *Port) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
}

// Halt handles a fatal invariant violation: it stops the port and ends the
// calling goroutine, mirroring "loop in a low-power wait" on hardware. The
// kernel halts from inside the critical section, so Halt releases it before
// exiting; the harness can still snapshot the halted machine.
func (p *Port) Halt(reason string) {
	p.log.Error("kernel halt", logx.String("reason", reason))
	p.Stop()
	// TryLock covers a caller that was outside the section; either way the
	// mutex ends up released exactly once.
	_ = p.mu.TryLock()
	p.mu.Unlock()
	runtime.Goexit()
}
