// Package testfixtures contains in-memory stand-ins for the cluster used by the checker's tests.
package testfixtures

import (
	"context"
	"sync"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"

	"github.com/armadaproject/mvcheck/internal/mvcheck/model"
)

type ExecCall struct {
	Stmt        string
	Consistency gocql.Consistency
	Values      []interface{}
}

type ScanCall struct {
	Stmt        string
	Consistency gocql.Consistency
}

// FakeSession records every call and delegates to OnExec / OnScan when set.
type FakeSession struct {
	OnExec func(ctx context.Context, call ExecCall) error
	OnScan func(ctx context.Context, call ScanCall) ([]model.Row, error)

	mu     sync.Mutex
	execs  []ExecCall
	scans  []ScanCall
	closed bool
}

func (s *FakeSession) Exec(ctx context.Context, stmt string, consistency gocql.Consistency, values ...interface{}) error {
	call := ExecCall{Stmt: stmt, Consistency: consistency, Values: values}
	s.mu.Lock()
	s.execs = append(s.execs, call)
	s.mu.Unlock()
	if s.OnExec != nil {
		return s.OnExec(ctx, call)
	}
	return nil
}

func (s *FakeSession) ScanRows(ctx context.Context, stmt string, consistency gocql.Consistency) ([]model.Row, error) {
	call := ScanCall{Stmt: stmt, Consistency: consistency}
	s.mu.Lock()
	s.scans = append(s.scans, call)
	s.mu.Unlock()
	if s.OnScan != nil {
		return s.OnScan(ctx, call)
	}
	return nil, nil
}

func (s *FakeSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *FakeSession) Execs() []ExecCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ExecCall(nil), s.execs...)
}

func (s *FakeSession) Scans() []ScanCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ScanCall(nil), s.scans...)
}

func (s *FakeSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// RowStore is a concurrency safe bag of rows standing in for a table or one replica of a view.
type RowStore struct {
	mu   sync.Mutex
	rows []model.Row
}

func NewRowStore(rows ...model.Row) *RowStore {
	return &RowStore{rows: rows}
}

func (s *RowStore) Add(rows ...model.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
}

// Insert adds the row bound by an insert of (p, c, r).
func (s *RowStore) Insert(values []interface{}) error {
	if len(values) != 3 {
		return errors.Errorf("expected 3 values, got %d", len(values))
	}
	var row model.Row
	for i, dst := range []*int32{&row.P, &row.C, &row.R} {
		v, ok := values[i].(int32)
		if !ok {
			return errors.Errorf("value %d is %T, not int32", i, values[i])
		}
		*dst = v
	}
	s.Add(row)
	return nil
}

// Rows returns a copy of the stored rows in insertion order.
func (s *RowStore) Rows() []model.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Row(nil), s.rows...)
}

func (s *RowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
