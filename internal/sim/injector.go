package sim

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"kestrel/internal/config"
	"kestrel/internal/kernel/ipc"
	logx "kestrel/pkg/logx"
)

// Injector fires burst releases on cron schedules. Releases go through the
// FromISR path: the cron goroutine is interrupt context as far as the
// kernel is concerned and must never park.
type Injector struct {
	log logx.Logger
	c   *cron.Cron
}

func NewInjector(cfg []config.InjectConfig, bursts map[string]*ipc.Semaphore, log logx.Logger) (*Injector, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	// SecondOptional allows both 5-field and 6-field (with seconds) specs;
	// Descriptor admits @every and friends.
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser))

	in := &Injector{log: log, c: c}
	for i, ic := range cfg {
		sem, ok := bursts[ic.Task]
		if !ok {
			return nil, fmt.Errorf("inject[%d]: task %q is not a burst task", i, ic.Task)
		}
		count := ic.Count
		if count <= 0 {
			count = 1
		}
		name := ic.Task
		job := cron.FuncJob(func() {
			for n := 0; n < count; n++ {
				sem.ReleaseFromISR()
			}
			log.Debug("burst injected",
				logx.String("task", name),
				logx.Int("count", count))
		})
		if _, err := c.AddJob(ic.Spec, job); err != nil {
			return nil, fmt.Errorf("inject[%d] %q: %w", i, ic.Spec, err)
		}
	}
	return in, nil
}

func (in *Injector) Start() { in.c.Start() }

// Stop prevents new firings and waits for in-flight jobs to finish.
func (in *Injector) Stop() { <-in.c.Stop().Done() }
