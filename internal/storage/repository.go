// Package storage holds the backend-agnostic contracts for loading placemarks
// into a database table: the Repository interface, a registry of backend
// factories keyed by kind, and a parallel registry of DDL bootstrappers.
//
// Backends live in subpackages and register themselves in init; import
// csvkml/internal/storage/all to enable every built-in backend.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config selects and configures a backend.
type Config struct {
	Kind  string
	DSN   string
	Table string
}

// Repository is the minimal surface a backend exposes to the loader.
type Repository interface {
	// CopyFrom inserts rows (aligned to columns) into the configured table
	// and returns the number of rows the backend reports as inserted.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)

	// Exec runs a single statement, typically DDL.
	Exec(ctx context.Context, sql string) error

	Close()
}

// Factory constructs a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

// DDLBootstrapper creates the placemark table named table when missing.
type DDLBootstrapper func(ctx context.Context, repo Repository, table string) error

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
	ddls      = map[string]DDLBootstrapper{}
)

// Register installs f under kind. A later registration replaces an earlier one.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// RegisterDDL installs the table bootstrapper for kind.
func RegisterDDL(kind string, b DDLBootstrapper) {
	mu.Lock()
	defer mu.Unlock()
	ddls[kind] = b
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// EnsureTable runs the DDL bootstrapper registered for kind against repo.
func EnsureTable(ctx context.Context, kind string, repo Repository, table string) error {
	mu.RLock()
	b, ok := ddls[kind]
	mu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper for storage.kind=%s", kind)
	}
	if err := b(ctx, repo, table); err != nil {
		return fmt.Errorf("%s: ensure table %s: %w", kind, table, err)
	}
	return nil
}
