package sim

import (
	"context"
	"time"

	"kestrel/internal/config"
	"kestrel/internal/eventbus"
	logx "kestrel/pkg/logx"
)

// Runner owns one simulation run end to end: the tick timer goroutine, the
// burst injector, and the kernel itself. A Runner is single-use, like the
// hostsim port underneath it.
type Runner struct {
	cfg *config.Config
	log logx.Logger
	bus eventbus.Bus
}

func NewRunner(cfg *config.Config, log logx.Logger, bus eventbus.Bus) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{cfg: cfg, log: log, bus: bus}
}

// Run builds the scenario and drives it until ctx is cancelled or the
// configured run_for elapses.
func (r *Runner) Run(ctx context.Context) error {
	tickInterval, err := config.ParseDurationOrDefault(
		"kernel.tick_interval", r.cfg.Kernel.TickInterval, time.Millisecond)
	if err != nil {
		return err
	}
	runFor, err := config.ParseDurationField("kernel.run_for", r.cfg.Kernel.RunFor)
	if err != nil {
		return err
	}
	if runFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runFor)
		defer cancel()
	}

	s, err := Build(r.cfg, r.log, r.bus)
	if err != nil {
		return err
	}
	in, err := NewInjector(r.cfg.Inject, s.Bursts, r.log.With(logx.String("component", "injector")))
	if err != nil {
		return err
	}

	// The timer goroutine is the simulated tick interrupt.
	go func() {
		tk := time.NewTicker(tickInterval)
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				s.Kernel.Tick()
			}
		}
	}()

	in.Start()
	defer in.Stop()

	r.log.Info("simulation starting",
		logx.Duration("tick_interval", tickInterval),
		logx.Duration("run_for", runFor),
		logx.Int("tasks", len(r.cfg.Tasks)))

	started := time.Now()
	if err := s.Kernel.Run(ctx); err != nil {
		return err
	}

	snap := s.Kernel.Snapshot()
	r.log.Info("simulation finished",
		logx.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
		logx.Uint32("ticks", snap.Tick),
		logx.Uint64("switches", snap.Switches),
		logx.Uint64("wakes", snap.Wakes))
	return nil
}
