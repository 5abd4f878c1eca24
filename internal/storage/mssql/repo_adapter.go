package mssql

import (
	"context"
	"fmt"

	"csvkml/internal/ddl"
	"csvkml/internal/storage"
)

// newRepository is a test hook; tests replace it to avoid a real database.
var newRepository = NewRepository

// wrappedRepo adds the Close the storage.Repository interface expects.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDDL("mssql", ensureTable)
}

func ensureTable(ctx context.Context, repo storage.Repository, table string) error {
	sql, err := Dialect.BuildCreateTableSQL(ddl.PlacemarkTable(table))
	if err != nil {
		return err
	}
	if err := repo.Exec(ctx, sql); err != nil {
		return fmt.Errorf("apply DDL: %w", err)
	}
	return nil
}
