package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"kestrel/internal/config"
	"kestrel/internal/eventbus"
	"kestrel/internal/sim"
	"kestrel/internal/trace"
	logx "kestrel/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./scenario.yaml", "path to scenario yaml/json")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	logSvc, log := logx.New(loggingConfig(cfg.Logging))
	defer logSvc.Close()
	mgr.SetLogger(log.With(logx.String("component", "config")))

	bus := eventbus.New()

	tracer, err := trace.New(traceConfig(cfg.Trace), log.With(logx.String("component", "trace")), bus)
	if err != nil {
		log.Error("trace init failed", logx.Err(err))
		os.Exit(1)
	}
	tracer.Start(ctx)
	defer tracer.Stop(context.Background())

	// Hot-reload: only logging and the trace rate can change mid-run; the
	// task set is fixed once the kernel starts.
	updates := mgr.Subscribe(1)
	defer mgr.Unsubscribe(updates)
	go func() {
		if err := mgr.Watch(ctx); err != nil {
			log.Warn("config watch stopped", logx.Err(err))
		}
	}()
	go func() {
		for next := range updates {
			logSvc.Apply(loggingConfig(next.Logging))
			tracer.Apply(traceConfig(next.Trace))
			log.Info("runtime config applied")
		}
	}()

	notifyReady(ctx, log)

	runner := sim.NewRunner(cfg, log, bus)
	err = runner.Run(ctx)
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		log.Error("simulation failed", logx.Err(err))
		os.Exit(1)
	}
}

func loggingConfig(lc config.LoggingConfig) logx.Config {
	console := true
	if lc.Console != nil {
		console = *lc.Console
	}
	return logx.Config{
		Level:   lc.Level,
		Console: console,
		File: logx.FileConfig{
			Enabled: lc.File.Enabled,
			Path:    lc.File.Path,
		},
	}
}

func traceConfig(tc *config.TraceConfig) trace.Config {
	if tc == nil {
		return trace.Config{}
	}
	enabled := true
	if tc.Enabled != nil {
		enabled = *tc.Enabled
	}
	busy, _ := config.ParseDurationField("trace.busy_timeout", tc.BusyTimeout)
	return trace.Config{
		Enabled:    enabled,
		RatePerSec: tc.RatePerSec,
		Store: trace.StoreConfig{
			Driver:      tc.Driver,
			Path:        tc.Path,
			BusyTimeout: busy,
		},
	}
}

// notifyReady tells systemd we are up and keeps the watchdog fed when one
// is configured. Both calls are no-ops outside a systemd unit.
func notifyReady(ctx context.Context, log logx.Logger) {
	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warn("sd_notify failed", logx.Err(err))
	} else if sent {
		log.Debug("sd_notify: ready")
	}

	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	go func() {
		tk := time.NewTicker(interval / 2)
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	}()
}
