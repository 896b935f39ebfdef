package trace

import (
	"context"
	"errors"
	"strings"

	logx "kestrel/pkg/logx"
)

// Store is the minimal persistence API the service writes through.
type Store interface {
	AppendSwitch(ctx context.Context, r SwitchRecord) error
	AppendWake(ctx context.Context, r WakeRecord) error
	Close() error
}

// OpenStore initializes the configured store.
// It returns (nil, nil) if persistence is disabled.
func OpenStore(cfg StoreConfig, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown trace store driver: " + driver)
	}
}
