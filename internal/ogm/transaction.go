package ogm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

var (
	ErrTransactionCommitted  = errors.New("transaction already committed")
	ErrTransactionRolledBack = errors.New("transaction already rolled back")
)

// Transaction is a unit of work started by a TransactionCoordinator.
type Transaction interface {
	Run(ctx context.Context, cypher string, params map[string]any) (neo4j.ResultWithContext, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	IsActive() bool
}

// TransactionCoordinator begins transactions. Hosts may register their own
// to replace the default TransactionManager.
type TransactionCoordinator interface {
	Begin(ctx context.Context) (Transaction, error)
}

// TransactionManager is the default TransactionCoordinator. A session bound
// to the context is reused; otherwise a write session is opened for the
// transaction and closed when it ends.
type TransactionManager struct {
	sessions SessionOpener
}

// NewTransactionManager creates a manager that opens sessions from sessions.
func NewTransactionManager(sessions SessionOpener) *TransactionManager {
	return &TransactionManager{sessions: sessions}
}

// Begin starts a transaction.
func (m *TransactionManager) Begin(ctx context.Context) (Transaction, error) {
	session, bound := SessionFromContext(ctx)
	if !bound {
		session = m.sessions.OpenSession(ctx, neo4j.AccessModeWrite)
	}

	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		if !bound {
			_ = session.Close(ctx)
		}
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &managedTransaction{tx: tx, session: session, ownsSession: !bound}, nil
}

// InTransaction runs fn in a transaction begun on coordinator. The
// transaction commits when fn returns nil and rolls back otherwise.
func InTransaction(ctx context.Context, coordinator TransactionCoordinator, fn func(ctx context.Context, tx Transaction) error) error {
	tx, err := coordinator.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
		return err
	}
	return tx.Commit(ctx)
}

type managedTransaction struct {
	tx          Tx
	session     Session
	ownsSession bool

	mu         sync.Mutex
	committed  bool
	rolledBack bool
}

func (t *managedTransaction) Run(ctx context.Context, cypher string, params map[string]any) (neo4j.ResultWithContext, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkActive(); err != nil {
		return nil, err
	}
	return t.tx.Run(ctx, cypher, params)
}

// Commit commits the transaction.
func (t *managedTransaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkActive(); err != nil {
		return err
	}

	if err := t.tx.Commit(ctx); err != nil {
		// The driver has discarded the transaction; nothing is left to roll back.
		t.rolledBack = true
		t.release(ctx)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	t.committed = true
	t.release(ctx)
	return nil
}

// Rollback rolls back the transaction.
func (t *managedTransaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.committed {
		return fmt.Errorf("cannot rollback: %w", ErrTransactionCommitted)
	}
	if t.rolledBack {
		return nil
	}

	err := t.tx.Rollback(ctx)
	t.rolledBack = true
	t.release(ctx)
	if err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// IsActive returns whether the transaction is still active
func (t *managedTransaction) IsActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.committed && !t.rolledBack
}

func (t *managedTransaction) checkActive() error {
	if t.committed {
		return ErrTransactionCommitted
	}
	if t.rolledBack {
		return ErrTransactionRolledBack
	}
	return nil
}

func (t *managedTransaction) release(ctx context.Context) {
	_ = t.tx.Close(ctx)
	if t.ownsSession {
		_ = t.session.Close(ctx)
	}
}
