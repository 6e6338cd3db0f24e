// Package unitofwork serialises mutations for one key (a driver) and makes them
// atomic across stores. Different keys never wait on each other.
package unitofwork

import (
	"context"
	"fmt"
	"sync"

	"hoslink/internal/platform/postgres"
	txcontext "hoslink/pkg/platform/tx"
)

// Memory runs work under a per-key mutex and rolls back in-memory writes registered
// through txcontext.OnRollback when fn fails.
type Memory struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewMemory() *Memory {
	return &Memory{locks: make(map[string]*keyLock)}
}

func (m *Memory) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	unlock := m.lock(key)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, journal := txcontext.WithJournal(ctx)
	if err := fn(ctx); err != nil {
		journal.Rollback()
		return err
	}
	return nil
}

func (m *Memory) lock(key string) func() {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}

// Postgres runs work in one transaction holding a transaction-scoped advisory lock
// on the key.
type Postgres struct {
	runner *postgres.TxRunner
}

func NewPostgres(runner *postgres.TxRunner) *Postgres {
	return &Postgres{runner: runner}
}

func (p *Postgres) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return p.runner.RunInTx(ctx, func(ctx context.Context) error {
		tx, ok := txcontext.From(ctx)
		if !ok {
			return fmt.Errorf("unit of work: no transaction in context")
		}
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}
		return fn(ctx)
	})
}
