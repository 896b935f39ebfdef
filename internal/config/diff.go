package config

import (
	"reflect"
	"sort"
	"strings"

	logx "kestrel/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections plus
// structured attrs for the reload log line. Only the runtime-applicable
// sections get detailed attrs; task and inject changes are surfaced so the
// operator sees that a restart is needed for them to take effect.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 10)

	if oldCfg.Logging.Level != newCfg.Logging.Level ||
		!boolPtrEqual(oldCfg.Logging.Console, newCfg.Logging.Console) ||
		oldCfg.Logging.File.Enabled != newCfg.Logging.File.Enabled ||
		strings.TrimSpace(oldCfg.Logging.File.Path) != strings.TrimSpace(newCfg.Logging.File.Path) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Kernel != newCfg.Kernel {
		changed = append(changed, "kernel")
		attrs = append(attrs,
			logx.String("kernel.tick_interval", strings.TrimSpace(newCfg.Kernel.TickInterval)),
			logx.String("kernel.run_for", strings.TrimSpace(newCfg.Kernel.RunFor)),
			logx.Int("kernel.default_stack_words", newCfg.Kernel.DefaultStackWords),
		)
	}

	if !reflect.DeepEqual(oldCfg.Tasks, newCfg.Tasks) {
		changed = append(changed, "tasks")
		attrs = append(attrs, logx.Int("tasks.count", len(newCfg.Tasks)))
	}
	if !reflect.DeepEqual(oldCfg.Inject, newCfg.Inject) {
		changed = append(changed, "inject")
		attrs = append(attrs, logx.Int("inject.count", len(newCfg.Inject)))
	}

	if !traceEqual(oldCfg.Trace, newCfg.Trace) {
		changed = append(changed, "trace")
		attrs = append(attrs, logx.Bool("trace.present", newCfg.Trace != nil))
		if newCfg.Trace != nil {
			attrs = append(attrs,
				logx.Int("trace.rate_per_sec", newCfg.Trace.RatePerSec),
				logx.String("trace.driver", strings.TrimSpace(newCfg.Trace.Driver)),
			)
		}
	}

	sort.Strings(changed)
	return changed, attrs
}

func traceEqual(a, b *TraceConfig) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	return boolPtrEqual(a.Enabled, b.Enabled) &&
		a.RatePerSec == b.RatePerSec &&
		a.Driver == b.Driver &&
		a.Path == b.Path &&
		a.BusyTimeout == b.BusyTimeout
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
