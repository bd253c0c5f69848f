package store

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// Querier is the subset of pgx shared by pools and transactions
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides database operations
type Store struct {
	pool *pgxpool.Pool

	Flavors      *FlavorStore
	FlavorGroups *FlavorGroupStore
	FlavorPrices *FlavorPriceStore
	ServerStates *ServerStateStore
	Users        *UserStore
	Projects     *ProjectStore
	Budgets      *BudgetStore
	Quotas       *QuotaStore
}

// New creates a new Store with all sub-stores initialized
func New(pool *pgxpool.Pool) *Store {
	return bind(pool, pool)
}

func bind(pool *pgxpool.Pool, db Querier) *Store {
	s := &Store{
		pool: pool,
	}

	s.Flavors = &FlavorStore{db: db}
	s.FlavorGroups = &FlavorGroupStore{db: db}
	s.FlavorPrices = &FlavorPriceStore{db: db}
	s.ServerStates = &ServerStateStore{db: db}
	s.Users = &UserStore{db: db}
	s.Projects = &ProjectStore{db: db}
	s.Budgets = &BudgetStore{db: db}
	s.Quotas = &QuotaStore{db: db}

	return s
}

// Tx returns a Store whose sub-stores run inside tx
func (s *Store) Tx(tx pgx.Tx) *Store {
	return bind(s.pool, tx)
}

// BeginTx starts a new transaction
func (s *Store) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return s.pool.Begin(ctx)
}

// WithTx executes a function within a transaction
// If the function returns an error, the transaction is rolled back
// Otherwise, the transaction is committed
func (s *Store) WithTx(ctx context.Context, fn func(*Store) error) error {
	return s.withTx(ctx, pgx.TxOptions{}, fn)
}

// ReadOnly runs fn inside a read-only repeatable read transaction so that
// every query of fn sees the same snapshot
func (s *Store) ReadOnly(ctx context.Context, fn func(*Source) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	return s.withTx(ctx, opts, func(tx *Store) error {
		return fn(tx.Source())
	})
}

func (s *Store) withTx(ctx context.Context, opts pgx.TxOptions, fn func(*Store) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if err = fn(s.Tx(tx)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Stats returns database pool statistics
func (s *Store) Stats() *pgxpool.Stat {
	return s.pool.Stat()
}

// NewStore creates a new Store from a database URL
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := NewPool(ctx, DefaultConfig(databaseURL))
	if err != nil {
		return nil, err
	}
	return New(pool), nil
}

// Migrate creates missing tables and indexes. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
