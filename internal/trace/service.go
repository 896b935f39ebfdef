package trace

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"kestrel/internal/eventbus"
	"kestrel/internal/kernel/sched"
	"kestrel/internal/kernel/task"
	logx "kestrel/pkg/logx"
)

type Service struct {
	log logx.Logger
	cfg Config
	bus eventbus.Bus

	// limiter throttles per-switch log lines only; the store sees every
	// event the bus delivers.
	limiter *rate.Limiter

	store Store

	cancel context.CancelFunc
	wg     sync.WaitGroup

	switches atomic.Uint64
	wakes    atomic.Uint64
	dropped  atomic.Uint64
}

func New(cfg Config, log logx.Logger, bus eventbus.Bus) (*Service, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 10
	}
	st, err := OpenStore(cfg.Store, log)
	if err != nil {
		return nil, err
	}
	return &Service{
		log:     log,
		cfg:     cfg,
		bus:     bus,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		store:   st,
	}, nil
}

// Apply updates the logging rate at runtime. The store is fixed for the
// service's lifetime.
func (s *Service) Apply(cfg Config) {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 10
	}
	s.limiter.SetLimit(rate.Limit(rps))
	s.limiter.SetBurst(rps)
}

func (s *Service) Start(ctx context.Context) {
	if !s.cfg.Enabled || s.bus == nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	ch, unsub := s.bus.Subscribe(256)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer unsub()
		s.consume(ctx, ch)
	}()
	s.log.Info("trace service started",
		logx.Bool("persist", s.store != nil),
		logx.Int("rate_per_sec", s.cfg.RatePerSec))
}

func (s *Service) Stop(ctx context.Context) {
	if s.cancel != nil {
		s.cancel()
		s.wg.Wait()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
	s.log.Info("trace service stopped",
		logx.Uint64("switches", s.switches.Load()),
		logx.Uint64("wakes", s.wakes.Load()))
	_ = ctx
}

func (s *Service) consume(ctx context.Context, ch <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			s.handle(ctx, ev)
		}
	}
}

func (s *Service) handle(ctx context.Context, ev eventbus.Event) {
	switch ev.Type {
	case sched.EventSwitch:
		sw, ok := ev.Data.(sched.SwitchEvent)
		if !ok {
			return
		}
		s.switches.Add(1)
		if s.limiter.Allow() {
			s.log.Debug("context switch",
				logx.Uint32("tick", sw.Tick),
				logx.String("from", sw.From),
				logx.String("to", sw.To))
		}
		s.persistSwitch(ctx, ev.Time, sw)

	case sched.EventWake:
		w, ok := ev.Data.(sched.WakeEvent)
		if !ok {
			return
		}
		s.wakes.Add(1)
		s.persistWake(ctx, ev.Time, w)

	case sched.EventExit:
		if e, ok := ev.Data.(sched.ExitEvent); ok {
			s.log.Info("task exited",
				logx.Uint32("tick", e.Tick),
				logx.String("task", e.Task))
		}
	}
}

func (s *Service) persistSwitch(ctx context.Context, at time.Time, sw sched.SwitchEvent) {
	if s.store == nil {
		return
	}
	err := s.store.AppendSwitch(ctx, SwitchRecord{At: at, Tick: sw.Tick, From: sw.From, To: sw.To})
	if err != nil {
		s.dropped.Add(1)
	}
}

func (s *Service) persistWake(ctx context.Context, at time.Time, w sched.WakeEvent) {
	if s.store == nil {
		return
	}
	err := s.store.AppendWake(ctx, WakeRecord{
		At:      at,
		Tick:    w.Tick,
		Task:    w.Task,
		Timeout: w.Reason == task.WakeTimeout,
	})
	if err != nil {
		s.dropped.Add(1)
	}
}
