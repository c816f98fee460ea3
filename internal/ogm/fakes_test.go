package ogm

import (
	"context"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type fakeTx struct {
	mu          sync.Mutex
	runs        []string
	commitErr   error
	rollbackErr error
	committed   int
	rolledBack  int
	closed      int
}

func (t *fakeTx) Run(_ context.Context, cypher string, _ map[string]any) (neo4j.ResultWithContext, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs = append(t.runs, cypher)
	return nil, nil
}

func (t *fakeTx) Commit(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.committed++
	return t.commitErr
}

func (t *fakeTx) Rollback(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolledBack++
	return t.rollbackErr
}

func (t *fakeTx) Close(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed++
	return nil
}

type fakeSession struct {
	mu       sync.Mutex
	mode     neo4j.AccessMode
	tx       *fakeTx
	beginErr error
	begun    int
	closed   int
}

func (s *fakeSession) ExecuteRead(context.Context, neo4j.ManagedTransactionWork) (any, error) {
	return nil, nil
}

func (s *fakeSession) ExecuteWrite(context.Context, neo4j.ManagedTransactionWork) (any, error) {
	return nil, nil
}

func (s *fakeSession) BeginTransaction(context.Context) (Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	s.begun++
	if s.tx == nil {
		s.tx = &fakeTx{}
	}
	return s.tx, nil
}

func (s *fakeSession) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

type fakeDriver struct {
	mu        sync.Mutex
	sessions  []*fakeSession
	databases []string
	verifyErr error
	closed    int
}

func (d *fakeDriver) Session(_ context.Context, mode neo4j.AccessMode, database string) Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := &fakeSession{mode: mode}
	d.sessions = append(d.sessions, s)
	d.databases = append(d.databases, database)
	return s
}

func (d *fakeDriver) VerifyConnectivity(context.Context) error {
	return d.verifyErr
}

func (d *fakeDriver) Close(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

// fakeOpener opens sessions from a fixed session.
type fakeOpener struct {
	session *fakeSession
	opened  int
}

func (o *fakeOpener) OpenSession(context.Context, neo4j.AccessMode) Session {
	o.opened++
	return o.session
}

func driversWith(sel Selector, d Driver) *Drivers {
	drivers := NewDrivers()
	drivers.Register(sel, func(*DriverConfiguration) (Driver, error) { return d, nil })
	return drivers
}
