package ogm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionManager_Begin(t *testing.T) {
	ctx := context.Background()

	t.Run("Should open and own a session when none is bound", func(t *testing.T) {
		opener := &fakeOpener{session: &fakeSession{}}
		tm := NewTransactionManager(opener)

		tx, err := tm.Begin(ctx)
		require.NoError(t, err)
		assert.True(t, tx.IsActive())

		_, err = tx.Run(ctx, "CREATE (:Person)", nil)
		require.NoError(t, err)
		require.NoError(t, tx.Commit(ctx))

		assert.Equal(t, 1, opener.opened)
		assert.Equal(t, 1, opener.session.tx.committed)
		assert.Equal(t, 1, opener.session.tx.closed)
		assert.Equal(t, 1, opener.session.closed)
		assert.False(t, tx.IsActive())
	})

	t.Run("Should reuse the session bound to the context", func(t *testing.T) {
		opener := &fakeOpener{session: &fakeSession{}}
		bound := &fakeSession{}
		tm := NewTransactionManager(opener)

		tx, err := tm.Begin(WithSession(ctx, bound))
		require.NoError(t, err)
		require.NoError(t, tx.Commit(ctx))

		assert.Zero(t, opener.opened)
		assert.Equal(t, 1, bound.begun)
		assert.Zero(t, bound.closed, "bound sessions are closed by their owner")
	})

	t.Run("Should close an owned session when begin fails", func(t *testing.T) {
		session := &fakeSession{beginErr: errors.New("database unavailable")}
		tm := NewTransactionManager(&fakeOpener{session: session})

		_, err := tm.Begin(ctx)

		assert.ErrorIs(t, err, session.beginErr)
		assert.Equal(t, 1, session.closed)
	})
}

func TestTransaction_StateRules(t *testing.T) {
	ctx := context.Background()
	begin := func(t *testing.T) (Transaction, *fakeSession) {
		session := &fakeSession{}
		tx, err := NewTransactionManager(&fakeOpener{session: session}).Begin(ctx)
		require.NoError(t, err)
		return tx, session
	}

	t.Run("Should not commit twice", func(t *testing.T) {
		tx, _ := begin(t)
		require.NoError(t, tx.Commit(ctx))

		assert.ErrorIs(t, tx.Commit(ctx), ErrTransactionCommitted)
	})

	t.Run("Should not rollback after commit", func(t *testing.T) {
		tx, _ := begin(t)
		require.NoError(t, tx.Commit(ctx))

		assert.ErrorIs(t, tx.Rollback(ctx), ErrTransactionCommitted)
	})

	t.Run("Should not run after rollback", func(t *testing.T) {
		tx, session := begin(t)
		require.NoError(t, tx.Rollback(ctx))
		require.NoError(t, tx.Rollback(ctx))

		_, err := tx.Run(ctx, "MATCH (n) RETURN n", nil)
		assert.ErrorIs(t, err, ErrTransactionRolledBack)
		assert.ErrorIs(t, tx.Commit(ctx), ErrTransactionRolledBack)
		assert.Equal(t, 1, session.tx.rolledBack)
		assert.Equal(t, 1, session.closed)
	})

	t.Run("Should end the transaction when commit fails", func(t *testing.T) {
		tx, session := begin(t)
		session.tx.commitErr = errors.New("deadlock")

		err := tx.Commit(ctx)

		assert.ErrorIs(t, err, session.tx.commitErr)
		assert.False(t, tx.IsActive())
		assert.Equal(t, 1, session.closed)
	})
}

func TestInTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("Should commit on success", func(t *testing.T) {
		session := &fakeSession{}
		tm := NewTransactionManager(&fakeOpener{session: session})

		err := InTransaction(ctx, tm, func(ctx context.Context, tx Transaction) error {
			_, err := tx.Run(ctx, "CREATE (:Movie)", nil)
			return err
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"CREATE (:Movie)"}, session.tx.runs)
		assert.Equal(t, 1, session.tx.committed)
		assert.Zero(t, session.tx.rolledBack)
	})

	t.Run("Should roll back on error", func(t *testing.T) {
		session := &fakeSession{}
		tm := NewTransactionManager(&fakeOpener{session: session})
		boom := errors.New("boom")

		err := InTransaction(ctx, tm, func(context.Context, Transaction) error { return boom })

		assert.ErrorIs(t, err, boom)
		assert.Zero(t, session.tx.committed)
		assert.Equal(t, 1, session.tx.rolledBack)
	})

	t.Run("Should report rollback failures alongside the cause", func(t *testing.T) {
		session := &fakeSession{tx: &fakeTx{rollbackErr: errors.New("connection lost")}}
		tm := NewTransactionManager(&fakeOpener{session: session})
		boom := errors.New("boom")

		err := InTransaction(ctx, tm, func(context.Context, Transaction) error { return boom })

		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, session.tx.rollbackErr)
	})

	t.Run("Should roll back and re-panic", func(t *testing.T) {
		session := &fakeSession{}
		tm := NewTransactionManager(&fakeOpener{session: session})

		assert.Panics(t, func() {
			_ = InTransaction(ctx, tm, func(context.Context, Transaction) error { panic("boom") })
		})
		assert.Equal(t, 1, session.tx.rolledBack)
	})
}
