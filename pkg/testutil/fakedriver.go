package testutil

import (
	"context"
	"sync"

	"github.com/ajitpratap0/polybase/pkg/config"
	"github.com/ajitpratap0/polybase/pkg/driver"
)

// ExecutedStatement records one statement seen by a fake connection.
type ExecutedStatement struct {
	SQL       string
	Params    []interface{}
	ParamSets [][]interface{}
}

// FakeDriver implements driver.Driver in memory for tests. It records every
// opened connection and can be told to fail opens or statements.
type FakeDriver struct {
	mu sync.Mutex

	// OpenErr, when set, makes every Open fail
	OpenErr error
	// FailOpensAfter, when positive, fails opens once that many have succeeded
	FailOpensAfter int

	conns []*FakeConn

	// Rows is handed to every Query on connections opened by this driver
	Rows *driver.Rows
}

// Open implements driver.Driver.
func (f *FakeDriver) Open(_ context.Context, _ *config.ServiceConfig) (driver.Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	if f.FailOpensAfter > 0 && len(f.conns) >= f.FailOpensAfter {
		return nil, context.DeadlineExceeded
	}

	conn := &FakeConn{rows: f.Rows}
	f.conns = append(f.conns, conn)
	return conn, nil
}

// OpenedConns returns every connection this driver has opened.
func (f *FakeDriver) OpenedConns() []*FakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeConn(nil), f.conns...)
}

// OpenCount returns how many connections have been opened.
func (f *FakeDriver) OpenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

// FakeConn is an in-memory driver connection recording what runs on it.
type FakeConn struct {
	mu sync.Mutex

	// ExecErr fails the next Exec/ExecBatch when set
	ExecErr error
	// QueryErr fails the next Query when set
	QueryErr error

	rows       *driver.Rows
	statements []ExecutedStatement
	closed     bool
}

// Query implements driver.Conn.
func (c *FakeConn) Query(_ context.Context, sql string, params ...interface{}) (*driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.statements = append(c.statements, ExecutedStatement{SQL: sql, Params: params})
	if c.QueryErr != nil {
		return nil, c.QueryErr
	}
	if c.rows == nil {
		return &driver.Rows{}, nil
	}
	return c.rows, nil
}

// Exec implements driver.Conn.
func (c *FakeConn) Exec(_ context.Context, sql string, params ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.statements = append(c.statements, ExecutedStatement{SQL: sql, Params: params})
	return c.ExecErr
}

// ExecBatch implements driver.Conn.
func (c *FakeConn) ExecBatch(_ context.Context, sql string, paramSets [][]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.statements = append(c.statements, ExecutedStatement{SQL: sql, ParamSets: paramSets})
	return c.ExecErr
}

// Ping implements driver.Conn.
func (c *FakeConn) Ping(context.Context) error {
	return nil
}

// Close implements driver.Conn.
func (c *FakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (c *FakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Statements returns everything executed on this connection, in order.
func (c *FakeConn) Statements() []ExecutedStatement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ExecutedStatement(nil), c.statements...)
}

// SetRows overrides the row set returned by Query.
func (c *FakeConn) SetRows(rows *driver.Rows) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = rows
}
