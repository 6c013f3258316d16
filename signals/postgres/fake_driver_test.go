//go:build unit

package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
)

// fakeDriver records what database/sql asks of it.
type fakeDriver struct {
	mu        sync.Mutex
	events    []string
	args      [][]driver.Value
	execErr   error
	commitErr error
	beginErr  error
}

func (d *fakeDriver) record(event string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.events = append(d.events, event)
}

func (d *fakeDriver) Events() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.events...)
}

func (d *fakeDriver) LastArgs() []driver.Value {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.args) == 0 {
		return nil
	}

	return d.args[len(d.args)-1]
}

func (d *fakeDriver) Open(string) (driver.Conn, error) {
	return &fakeConn{driver: d}, nil
}

func (d *fakeDriver) Connect(context.Context) (driver.Conn, error) {
	return d.Open("")
}

func (d *fakeDriver) Driver() driver.Driver {
	return d
}

func (d *fakeDriver) DB() *sql.DB {
	return sql.OpenDB(d)
}

type fakeConn struct {
	driver *fakeDriver
}

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return &fakeStmt{conn: c, query: query}, nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) {
	if c.driver.beginErr != nil {
		return nil, c.driver.beginErr
	}

	c.driver.record("begin")

	return &fakeTx{driver: c.driver}, nil
}

type fakeStmt struct {
	conn  *fakeConn
	query string
}

func (s *fakeStmt) Close() error { return nil }

func (s *fakeStmt) NumInput() int { return -1 }

func (s *fakeStmt) Exec(args []driver.Value) (driver.Result, error) {
	d := s.conn.driver
	if d.execErr != nil {
		return nil, d.execErr
	}

	d.mu.Lock()
	d.events = append(d.events, "exec "+s.query)
	d.args = append(d.args, args)
	d.mu.Unlock()

	return driver.RowsAffected(1), nil
}

func (s *fakeStmt) Query([]driver.Value) (driver.Rows, error) {
	return &fakeRows{}, nil
}

type fakeRows struct{}

func (*fakeRows) Columns() []string { return nil }

func (*fakeRows) Close() error { return nil }

func (*fakeRows) Next([]driver.Value) error { return io.EOF }

type fakeTx struct {
	driver *fakeDriver
}

func (tx *fakeTx) Commit() error {
	if tx.driver.commitErr != nil {
		return tx.driver.commitErr
	}

	tx.driver.record("commit")

	return nil
}

func (tx *fakeTx) Rollback() error {
	tx.driver.record("rollback")

	return nil
}

var errFakeDriver = errors.New("fake driver failure")
