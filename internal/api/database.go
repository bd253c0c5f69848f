package api

import (
	"context"

	"github.com/LRZ-BADW/avina/internal/accounting"
	"github.com/LRZ-BADW/avina/internal/store"
)

// Database is what the handlers read from
type Database interface {
	// Read runs fn against one consistent snapshot
	Read(ctx context.Context, fn func(accounting.Reader) error) error
	// Concurrent returns a reader that is safe for use by several
	// goroutines at once. Reads through it do not share a snapshot.
	Concurrent() accounting.Reader
	Ping(ctx context.Context) error
}

type storeDatabase struct {
	store *store.Store
}

// NewDatabase adapts a Postgres store to the handlers
func NewDatabase(s *store.Store) Database {
	return &storeDatabase{store: s}
}

func (d *storeDatabase) Read(ctx context.Context, fn func(accounting.Reader) error) error {
	return d.store.ReadOnly(ctx, func(src *store.Source) error {
		return fn(src)
	})
}

func (d *storeDatabase) Concurrent() accounting.Reader {
	return d.store.Source()
}

func (d *storeDatabase) Ping(ctx context.Context) error {
	return d.store.Ping(ctx)
}
