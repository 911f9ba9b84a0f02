// Package testutil provides a stub database/sql driver emulating the ledger
// table for postgres store tests.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

var stubSeq atomic.Int64

// StubConn records statements and holds ledger rows in memory.
type StubConn struct {
	mu        sync.Mutex
	Execs     []string
	Rows      map[string][]byte
	FailExec  bool
	FailQuery bool
	FailPing  bool
	// RowsErr is returned by a scan after RowsErrAfter rows have been yielded.
	RowsErr      error
	RowsErrAfter int
	openRows     int
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Rows: make(map[string][]byte)}
	name := fmt.Sprintf("stubpg%d", stubSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

// OpenRows reports result sets that have not been closed.
func (c *StubConn) OpenRows() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openRows
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) { return nil, fmt.Errorf("not implemented") }

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	upper := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(upper, "CREATE TABLE"):
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(upper, "INSERT INTO LEDGER"):
		if len(args) != 2 {
			return nil, fmt.Errorf("insert: expected 2 args, got %d", len(args))
		}
		key, ok := args[0].Value.(string)
		if !ok {
			return nil, fmt.Errorf("insert: key must be string")
		}
		value, _ := args[1].Value.([]byte)
		c.Rows[key] = append([]byte(nil), value...)
		return driver.RowsAffected(1), nil
	default:
		return nil, fmt.Errorf("unsupported exec: %s", query)
	}
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailQuery {
		return nil, fmt.Errorf("query fail")
	}
	upper := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(upper, "SELECT PAYLOAD FROM LEDGER"):
		key, _ := args[0].Value.(string)
		r := &stubRows{conn: c, cols: []string{"payload"}}
		if v, ok := c.Rows[key]; ok {
			r.data = [][]driver.Value{{append([]byte(nil), v...)}}
		}
		c.openRows++
		return r, nil
	case strings.HasPrefix(upper, "SELECT ID, PAYLOAD FROM LEDGER"):
		start, _ := args[0].Value.(string)
		end, _ := args[1].Value.(string)
		keys := make([]string, 0, len(c.Rows))
		for k := range c.Rows {
			if k < start || (end != "" && k >= end) {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		r := &stubRows{conn: c, cols: []string{"id", "payload"}, failErr: c.RowsErr, failAfter: c.RowsErrAfter}
		for _, k := range keys {
			r.data = append(r.data, []driver.Value{k, append([]byte(nil), c.Rows[k]...)})
		}
		c.openRows++
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported query: %s", query)
	}
}

type stubRows struct {
	conn      *StubConn
	cols      []string
	data      [][]driver.Value
	pos       int
	failErr   error
	failAfter int
	closed    bool
}

func (r *stubRows) Columns() []string { return r.cols }

func (r *stubRows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.conn.mu.Lock()
	r.conn.openRows--
	r.conn.mu.Unlock()
	return nil
}

func (r *stubRows) Next(dest []driver.Value) error {
	if r.failErr != nil && r.pos >= r.failAfter {
		return r.failErr
	}
	if r.pos >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.pos])
	r.pos++
	return nil
}
