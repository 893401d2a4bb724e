// Package checkpoint persists the writes a migration run has completed so an
// interrupted run can pick up where it stopped.
//
// Entries are (kind, key) -> value strings; the meaning of each kind is up
// to the caller. Recording an existing entry overwrites its value.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Drivers accepted by Open.
const (
	DriverNone   = "none"
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// DefaultPrefix namespaces redis keys.
const DefaultPrefix = "kibela2esa"

// Sentinel errors.
var (
	ErrUnknownDriver = errors.New("unknown checkpoint driver")
	ErrMissingDSN    = errors.New("checkpoint driver requires a DSN")
	ErrClosed        = errors.New("checkpoint store is closed")
)

// Store is a resumable record of completed writes.
type Store interface {
	Lookup(ctx context.Context, kind, key string) (string, bool, error)
	Record(ctx context.Context, kind, key, value string) error
	Close() error
}

// Config selects and configures a Store.
type Config struct {
	// Driver is one of DriverNone, DriverMemory, DriverSQLite or DriverRedis.
	Driver string
	// DSN is a SQLite file path or a redis:// URL.
	DSN string
	// Prefix namespaces redis keys; typically the destination team.
	Prefix string
}

// Open returns the Store for cfg. It returns a nil Store for DriverNone.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverNone:
		return nil, nil
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingDSN, DriverSQLite)
		}
		return OpenSQLite(ctx, cfg.DSN)
	case DriverRedis:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingDSN, DriverRedis)
		}
		return OpenRedis(ctx, cfg.DSN, cfg.Prefix)
	default:
		return nil, fmt.Errorf("%w: %q (use none, memory, sqlite or redis)", ErrUnknownDriver, cfg.Driver)
	}
}
