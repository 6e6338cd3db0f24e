package tx

import (
	"context"
	"sync"
)

type journalKey struct{}

// Journal collects compensating actions for in-memory stores taking part in a unit
// of work. Rollback runs them in reverse registration order.
type Journal struct {
	mu   sync.Mutex
	undo []func()
}

// WithJournal attaches a fresh journal to ctx.
func WithJournal(ctx context.Context) (context.Context, *Journal) {
	j := &Journal{}
	return context.WithValue(ctx, journalKey{}, j), j
}

// OnRollback registers fn with the journal in ctx. Outside a unit of work it is a no-op.
func OnRollback(ctx context.Context, fn func()) {
	j, ok := ctx.Value(journalKey{}).(*Journal)
	if !ok {
		return
	}
	j.mu.Lock()
	j.undo = append(j.undo, fn)
	j.mu.Unlock()
}

// Rollback undoes every registered write.
func (j *Journal) Rollback() {
	j.mu.Lock()
	undo := j.undo
	j.undo = nil
	j.mu.Unlock()
	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
}
