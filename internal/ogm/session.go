package ogm

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Session is a handle to the graph database for a unit of work.
type Session interface {
	ExecuteRead(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error)
	ExecuteWrite(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error)
	BeginTransaction(ctx context.Context) (Tx, error)
	Close(ctx context.Context) error
}

// Tx is an explicit transaction opened on a Session.
type Tx interface {
	Run(ctx context.Context, cypher string, params map[string]any) (neo4j.ResultWithContext, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context) error
}

// SessionOpener opens sessions. SessionFactory is the production
// implementation.
type SessionOpener interface {
	OpenSession(ctx context.Context, mode neo4j.AccessMode) Session
}

type sessionKey struct{}

// WithSession binds s to the returned context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session bound by WithSession, if any.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok && s != nil
}

// driverSession adapts a neo4j.SessionWithContext.
type driverSession struct {
	session neo4j.SessionWithContext
}

func (s *driverSession) ExecuteRead(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	return s.session.ExecuteRead(ctx, work)
}

func (s *driverSession) ExecuteWrite(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	return s.session.ExecuteWrite(ctx, work)
}

func (s *driverSession) BeginTransaction(ctx context.Context) (Tx, error) {
	tx, err := s.session.BeginTransaction(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *driverSession) Close(ctx context.Context) error {
	return s.session.Close(ctx)
}
