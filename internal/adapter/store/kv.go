// Package store persists links, settings and the activity log as JSON
// values under fixed keys in a key-value backend.
package store

import (
	"context"
	"fmt"
	"path/filepath"

	"clickloop/internal/domain"
)

// Fixed keys for the persisted values.
const (
	KeyLinks    = "clickloop-links"
	KeySettings = "clickloop-settings"
	KeyLogs     = "clickloop-logs"
)

// KV is a minimal key-value backend. Get reports ok=false for a missing key.
type KV interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend    string // "file" (default) or "sqlite"
	DataDir    string
	SQLitePath string // default: <DataDir>/clickloop.db
}

// OpenKV opens the backend named in opts.
func OpenKV(opts Options) (KV, error) {
	switch opts.Backend {
	case "", "file":
		return NewFileKV(opts.DataDir)
	case "sqlite":
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(opts.DataDir, "clickloop.db")
		}
		return NewSQLiteKV(path)
	default:
		return nil, domain.NewSubSystemError("store", "store.Open", domain.ErrInvalidInput,
			fmt.Sprintf("unknown backend %q", opts.Backend))
	}
}
