package sim

import (
	"fmt"
	"runtime"

	"kestrel/internal/config"
	"kestrel/internal/eventbus"
	"kestrel/internal/kernel/ipc"
	"kestrel/internal/kernel/port/hostsim"
	"kestrel/internal/kernel/sched"
	"kestrel/internal/kernel/task"
	logx "kestrel/pkg/logx"
)

// burstBacklog bounds how many pending releases a burst task can accumulate
// before further injections are discarded.
const burstBacklog = 1024

// Scenario is a built, not-yet-started workload: one kernel on a hostsim
// port plus the release semaphores of its burst tasks.
type Scenario struct {
	Kernel *sched.Kernel
	Port   *hostsim.Port

	// Bursts maps burst task name to its release semaphore.
	Bursts map[string]*ipc.Semaphore
}

// Build registers every configured task with a fresh kernel. The config is
// assumed Validated; structural errors here indicate a bug, not bad input.
func Build(cfg *config.Config, log logx.Logger, bus eventbus.Bus) (*Scenario, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	p := hostsim.New(log.With(logx.String("component", "port")))
	k := sched.New(sched.Config{
		DefaultStackWords: cfg.Kernel.DefaultStackWords,
	}, p, log.With(logx.String("component", "kernel")), bus)

	s := &Scenario{
		Kernel: k,
		Port:   p,
		Bursts: map[string]*ipc.Semaphore{},
	}

	for _, tc := range cfg.Tasks {
		var entry func()
		switch tc.Kind {
		case "", "periodic":
			entry = periodicBody(k, sched.Ticks(tc.PeriodTicks), sched.Ticks(tc.LoadTicks))
		case "burst":
			sem, err := ipc.NewSemaphore(k, 0, burstBacklog)
			if err != nil {
				return nil, fmt.Errorf("task %q: %w", tc.Name, err)
			}
			s.Bursts[tc.Name] = sem
			entry = burstBody(k, sem, sched.Ticks(tc.LoadTicks))
		default:
			return nil, fmt.Errorf("task %q: unknown kind %q", tc.Name, tc.Kind)
		}

		_, err := k.NewTask(sched.TaskConfig{
			Name:       tc.Name,
			Priority:   task.Priority(tc.Priority),
			StackWords: tc.StackWords,
			Entry:      entry,
		})
		if err != nil {
			return nil, fmt.Errorf("register task %q: %w", tc.Name, err)
		}
	}
	return s, nil
}

// periodicBody runs load ticks of work every period ticks, anchored at each
// cycle's start so overruns shrink the following sleep instead of drifting.
func periodicBody(k *sched.Kernel, period, load sched.Ticks) func() {
	return func() {
		for {
			start := k.Now()
			spin(k, load)
			elapsed := k.Now() - start
			if elapsed < period {
				k.SleepTicks(period - elapsed)
			} else {
				k.Yield()
			}
		}
	}
}

// burstBody parks until the injector releases the semaphore, then burns
// load ticks per release.
func burstBody(k *sched.Kernel, sem *ipc.Semaphore, load sched.Ticks) func() {
	return func() {
		for {
			if err := sem.Acquire(sched.Forever); err != nil {
				return
			}
			spin(k, load)
		}
	}
}

// spin models CPU-bound work: it holds the processor for n ticks while
// still honoring preemption at each Checkpoint.
func spin(k *sched.Kernel, n sched.Ticks) {
	if n == 0 {
		return
	}
	start := k.Now()
	for !sched.TickElapsed(k.Now(), start, n) {
		k.Checkpoint()
		runtime.Gosched()
	}
}
