//go:build !sqlite
// +build !sqlite

package trace

import (
	"errors"

	logx "kestrel/pkg/logx"
)

func openSQLite(cfg StoreConfig, log logx.Logger) (Store, error) {
	_ = cfg
	_ = log
	return nil, errors.New("sqlite trace store not built: build with -tags sqlite")
}
