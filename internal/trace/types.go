package trace

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("trace store disabled")

// Config configures the trace service.
type Config struct {
	Enabled bool

	// RatePerSec caps per-switch log lines; records written to the store
	// are never rate limited. <= 0 applies the default of 10.
	RatePerSec int

	Store StoreConfig
}

// StoreConfig configures persistence.
//
// Driver values:
//   - "" or "none": persistence disabled
//   - "sqlite": SQLite database file (optional build tag)
type StoreConfig struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// SwitchRecord is one persisted context switch.
// Keep it compact and schema-stable.
type SwitchRecord struct {
	At   time.Time
	Tick uint32
	From string
	To   string
}

// WakeRecord is one persisted task wake.
type WakeRecord struct {
	At      time.Time
	Tick    uint32
	Task    string
	Timeout bool
}
