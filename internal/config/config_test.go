package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Tasks: []TaskConfig{
			{Name: "sensor", Priority: 5, Kind: "periodic", PeriodTicks: 10, LoadTicks: 2},
			{Name: "burst", Priority: 6, Kind: "burst", LoadTicks: 3},
		},
		Inject: []InjectConfig{
			{Task: "burst", Spec: "@every 1s", Count: 1},
		},
	}
}

func TestValidateOK(t *testing.T) {
	t.Parallel()
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "no tasks",
			mutate: func(c *Config) { c.Tasks = nil },
			want:   "at least one task",
		},
		{
			name:   "empty name",
			mutate: func(c *Config) { c.Tasks[0].Name = " " },
			want:   "name is required",
		},
		{
			name:   "reserved name",
			mutate: func(c *Config) { c.Tasks[0].Name = "idle" },
			want:   "reserved",
		},
		{
			name:   "duplicate name",
			mutate: func(c *Config) { c.Tasks[1].Name = c.Tasks[0].Name },
			want:   "duplicate",
		},
		{
			name:   "priority too high",
			mutate: func(c *Config) { c.Tasks[0].Priority = 8 },
			want:   "out of range",
		},
		{
			name:   "negative priority",
			mutate: func(c *Config) { c.Tasks[0].Priority = -1 },
			want:   "out of range",
		},
		{
			name:   "periodic without period",
			mutate: func(c *Config) { c.Tasks[0].PeriodTicks = 0 },
			want:   "period_ticks",
		},
		{
			name:   "load exceeds period",
			mutate: func(c *Config) { c.Tasks[0].LoadTicks = 11 },
			want:   "load_ticks",
		},
		{
			name:   "burst without load",
			mutate: func(c *Config) { c.Tasks[1].LoadTicks = 0 },
			want:   "load_ticks",
		},
		{
			name:   "unknown kind",
			mutate: func(c *Config) { c.Tasks[0].Kind = "sporadic" },
			want:   "unknown kind",
		},
		{
			name:   "inject target missing",
			mutate: func(c *Config) { c.Inject[0].Task = "sensor" },
			want:   "not a burst task",
		},
		{
			name:   "inject empty spec",
			mutate: func(c *Config) { c.Inject[0].Spec = "" },
			want:   "spec is required",
		},
		{
			name:   "negative inject count",
			mutate: func(c *Config) { c.Inject[0].Count = -1 },
			want:   "count",
		},
		{
			name:   "bad tick interval",
			mutate: func(c *Config) { c.Kernel.TickInterval = "fast" },
			want:   "tick_interval",
		},
		{
			name:   "bad run_for",
			mutate: func(c *Config) { c.Kernel.RunFor = "-3s" },
			want:   "run_for",
		},
		{
			name: "bad trace busy timeout",
			mutate: func(c *Config) {
				c.Trace = &TraceConfig{BusyTimeout: "soon"}
			},
			want: "busy_timeout",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const yamlScenario = `
logging:
  level: debug
kernel:
  tick_interval: 1ms
  run_for: 2s
tasks:
  - name: sensor
    priority: 5
    kind: periodic
    period_ticks: 10
    load_ticks: 2
  - name: burst
    priority: 6
    kind: burst
    load_ticks: 3
inject:
  - task: burst
    spec: "@every 500ms"
    count: 2
trace:
  enabled: true
  rate_per_sec: 5
`

func TestManagerParseYAML(t *testing.T) {
	t.Parallel()

	m := NewManager(writeFile(t, "scenario.yaml", yamlScenario))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("logging.level = %q", cfg.Logging.Level)
	}
	if len(cfg.Tasks) != 2 || cfg.Tasks[0].Name != "sensor" || cfg.Tasks[1].Kind != "burst" {
		t.Fatalf("tasks = %+v", cfg.Tasks)
	}
	if len(cfg.Inject) != 1 || cfg.Inject[0].Count != 2 {
		t.Fatalf("inject = %+v", cfg.Inject)
	}
	if cfg.Trace == nil || cfg.Trace.RatePerSec != 5 {
		t.Fatalf("trace = %+v", cfg.Trace)
	}
	if got := m.Get(); got != cfg {
		t.Fatalf("Get() should return the committed config")
	}
}

func TestManagerParseJSON(t *testing.T) {
	t.Parallel()

	body := `{"tasks":[{"name":"a","priority":1,"period_ticks":5}]}`
	m := NewManager(writeFile(t, "scenario.json", body))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.Tasks) != 1 || cfg.Tasks[0].Name != "a" {
		t.Fatalf("tasks = %+v", cfg.Tasks)
	}
}

func TestManagerRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	body := `{"tasks":[{"name":"a","priority":1,"period_ticks":5}],"bogus":true}`
	m := NewManager(writeFile(t, "scenario.json", body))
	if _, err := m.Parse(); err == nil {
		t.Fatalf("Parse accepted an unknown field")
	}
}

func TestManagerRejectsTrailingData(t *testing.T) {
	t.Parallel()

	body := `{"tasks":[{"name":"a","priority":1,"period_ticks":5}]}{"again":1}`
	m := NewManager(writeFile(t, "scenario.json", body))
	if _, err := m.Parse(); err == nil {
		t.Fatalf("Parse accepted trailing data")
	}
}

func TestManagerRejectsInvalidScenario(t *testing.T) {
	t.Parallel()

	body := `{"tasks":[{"name":"a","priority":9,"period_ticks":5}]}`
	m := NewManager(writeFile(t, "scenario.json", body))
	if _, err := m.Parse(); err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Fatalf("Parse = %v, want priority range error", err)
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()

	if sections, attrs := SummarizeConfigChange(validConfig(), validConfig()); len(sections) != 0 || len(attrs) != 0 {
		t.Fatalf("identical configs reported changes: %v", sections)
	}

	next := validConfig()
	next.Logging.Level = "debug"
	next.Kernel.TickInterval = "2ms"
	next.Tasks[0].PeriodTicks = 20
	next.Trace = &TraceConfig{RatePerSec: 5}
	sections, attrs := SummarizeConfigChange(validConfig(), next)
	want := []string{"kernel", "logging", "tasks", "trace"}
	if len(sections) != len(want) {
		t.Fatalf("sections = %v, want %v", sections, want)
	}
	for i := range want {
		if sections[i] != want[i] {
			t.Fatalf("sections = %v, want %v", sections, want)
		}
	}
	if len(attrs) == 0 {
		t.Fatalf("expected attrs for the changed sections")
	}

	// nil configs must not panic
	if sections, _ := SummarizeConfigChange(nil, validConfig()); len(sections) == 0 {
		t.Fatalf("nil old config should report changes")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()

	if d, err := ParseDurationField("x", " 10ms "); err != nil || d.Milliseconds() != 10 {
		t.Fatalf("ParseDurationField = %v, %v", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty duration = %v, %v", d, err)
	}
	if _, err := ParseDurationField("x", "-1s"); err == nil {
		t.Fatalf("negative duration accepted")
	}
	if _, err := ParseDurationField("x", "soon"); err == nil {
		t.Fatalf("garbage duration accepted")
	}
	if d, err := ParseDurationOrDefault("x", "", 42); err != nil || d != 42 {
		t.Fatalf("ParseDurationOrDefault = %v, %v", d, err)
	}
}
