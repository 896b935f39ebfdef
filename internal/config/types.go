package config

// Config is the simulator scenario file. YAML and JSON are both accepted;
// YAML is coerced to JSON and decoded strictly, so unknown fields are
// rejected instead of silently ignored.
type Config struct {
	Logging LoggingConfig `json:"logging"`
	Kernel  KernelConfig  `json:"kernel"`

	// Tasks is the workload: every entry becomes one kernel task.
	Tasks []TaskConfig `json:"tasks"`

	// Inject fires aperiodic load bursts on cron schedules, to exercise
	// preemption under irregular load.
	Inject []InjectConfig `json:"inject,omitempty"`

	Trace *TraceConfig `json:"trace,omitempty"`
}

type LoggingConfig struct {
	Level string `json:"level,omitempty"` // trace|debug|info|warn|error
	// Console is a pointer so "omitted" defaults to true while an explicit
	// false still works.
	Console *bool      `json:"console,omitempty"`
	File    FileConfig `json:"file,omitempty"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// KernelConfig controls the simulated machine.
//
// All durations are Go duration strings (e.g. "1ms", "500us", "10s").
type KernelConfig struct {
	// TickInterval is the simulated timer period. Default "1ms".
	TickInterval string `json:"tick_interval,omitempty"`

	// RunFor bounds the simulation wall-clock time. Empty means run until
	// interrupted.
	RunFor string `json:"run_for,omitempty"`

	// DefaultStackWords sizes task stacks when a task omits stack_words.
	DefaultStackWords int `json:"default_stack_words,omitempty"`
}

// TaskConfig describes one simulated task.
//
// Kinds:
//   - "periodic": run load_ticks of work every period_ticks (the default)
//   - "burst":    park on a semaphore and run load_ticks of work per
//     release; released by inject entries
type TaskConfig struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
	Kind     string `json:"kind,omitempty"`

	PeriodTicks int `json:"period_ticks,omitempty"`
	LoadTicks   int `json:"load_ticks,omitempty"`

	StackWords int `json:"stack_words,omitempty"`
}

// InjectConfig releases a burst task on a cron schedule. Spec accepts
// 5-field and 6-field (seconds) cron expressions plus @every descriptors.
type InjectConfig struct {
	Task  string `json:"task"`
	Spec  string `json:"spec"`
	Count int    `json:"count,omitempty"` // releases per fire, default 1
}

// TraceConfig controls the switch-trace service.
type TraceConfig struct {
	// Enabled is a pointer so "omitted" defaults to true when the trace
	// block is present at all.
	Enabled *bool `json:"enabled,omitempty"`

	// RatePerSec caps per-switch log lines. Persisted records are not
	// rate limited. Default 10.
	RatePerSec int `json:"rate_per_sec,omitempty"`

	// Driver: "" or "none" disables persistence; "sqlite" needs the
	// sqlite build tag.
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}
