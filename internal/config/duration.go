package config

import (
	"fmt"
	"strings"
	"time"
)

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// Validate applies structural checks that do not need a running kernel:
// priorities in range, names unique, inject targets resolving to burst
// tasks. Called on load and again before a watched reload is published.
func (c *Config) Validate() error {
	if len(c.Tasks) == 0 {
		return fmt.Errorf("tasks: at least one task is required")
	}
	seen := make(map[string]bool, len(c.Tasks))
	bursts := map[string]bool{}
	for i, t := range c.Tasks {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return fmt.Errorf("tasks[%d]: name is required", i)
		}
		if name == "idle" {
			return fmt.Errorf("tasks[%d]: %q is reserved", i, name)
		}
		if seen[name] {
			return fmt.Errorf("tasks[%d]: duplicate name %q", i, name)
		}
		seen[name] = true
		if t.Priority < 0 || t.Priority > 7 {
			return fmt.Errorf("tasks[%d] %q: priority %d out of range 0..7", i, name, t.Priority)
		}
		switch strings.TrimSpace(t.Kind) {
		case "", "periodic":
			if t.PeriodTicks <= 0 {
				return fmt.Errorf("tasks[%d] %q: period_ticks is required for periodic tasks", i, name)
			}
			if t.LoadTicks < 0 || t.LoadTicks > t.PeriodTicks {
				return fmt.Errorf("tasks[%d] %q: load_ticks must be in 0..period_ticks", i, name)
			}
		case "burst":
			bursts[name] = true
			if t.LoadTicks <= 0 {
				return fmt.Errorf("tasks[%d] %q: load_ticks is required for burst tasks", i, name)
			}
		default:
			return fmt.Errorf("tasks[%d] %q: unknown kind %q", i, name, t.Kind)
		}
	}
	for i, in := range c.Inject {
		if !bursts[in.Task] {
			return fmt.Errorf("inject[%d]: task %q is not a burst task", i, in.Task)
		}
		if strings.TrimSpace(in.Spec) == "" {
			return fmt.Errorf("inject[%d]: spec is required", i)
		}
		if in.Count < 0 {
			return fmt.Errorf("inject[%d]: count must be >= 0", i)
		}
	}
	if _, err := ParseDurationOrDefault("kernel.tick_interval", c.Kernel.TickInterval, time.Millisecond); err != nil {
		return err
	}
	if _, err := ParseDurationField("kernel.run_for", c.Kernel.RunFor); err != nil {
		return err
	}
	if c.Trace != nil {
		if _, err := ParseDurationField("trace.busy_timeout", c.Trace.BusyTimeout); err != nil {
			return err
		}
	}
	return nil
}
