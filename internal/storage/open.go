package storage

import (
	"context"
	"fmt"
	"strings"

	logx "blastbot/pkg/logx"
)

// Store is the persistence API used by the dispatcher and app layer.
//
// LoadCheckpoint returns (next, ok): ok is false when no checkpoint exists.
// SaveCheckpoint overwrites the checkpoint with the index of the next job
// to attempt; a concurrent reader always sees either the previous or the
// new value, never a partial write.
type Store interface {
	LoadCheckpoint(ctx context.Context) (next int, ok bool, err error)
	SaveCheckpoint(ctx context.Context, next int) error
	ClearCheckpoint(ctx context.Context) error
	AppendDelivery(ctx context.Context, rec DeliveryRecord) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite":
		return openSQLite(cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
