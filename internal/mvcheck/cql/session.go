// Package cql is the checker's only boundary to the database cluster.
package cql

import (
	"context"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"

	"github.com/armadaproject/mvcheck/internal/mvcheck/model"
)

// Session executes statements at a chosen consistency level. Implementations must be safe for concurrent use.
type Session interface {
	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, stmt string, consistency gocql.Consistency, values ...interface{}) error
	// ScanRows runs a select of exactly three int columns (p, c, r) and returns every row, following pages.
	ScanRows(ctx context.Context, stmt string, consistency gocql.Consistency) ([]model.Row, error)
	Close()
}

type gocqlSession struct {
	session  *gocql.Session
	pageSize int
}

func newGocqlSession(cfg *gocql.ClusterConfig, pageSize int) (Session, error) {
	session, err := cfg.CreateSession()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &gocqlSession{session: session, pageSize: pageSize}, nil
}

// Statements issued by the checker are inserts of immutable rows and full reads, so all of them are
// safe for the driver to retry.
func (s *gocqlSession) query(ctx context.Context, stmt string, consistency gocql.Consistency, values ...interface{}) *gocql.Query {
	return s.session.Query(stmt, values...).
		WithContext(ctx).
		Consistency(consistency).
		Idempotent(true)
}

func (s *gocqlSession) Exec(ctx context.Context, stmt string, consistency gocql.Consistency, values ...interface{}) error {
	return errors.WithStack(s.query(ctx, stmt, consistency, values...).Exec())
}

func (s *gocqlSession) ScanRows(ctx context.Context, stmt string, consistency gocql.Consistency) ([]model.Row, error) {
	iter := s.query(ctx, stmt, consistency).PageSize(s.pageSize).Iter()
	var rows []model.Row
	var row model.Row
	for iter.Scan(&row.P, &row.C, &row.R) {
		rows = append(rows, row)
	}
	if err := iter.Close(); err != nil {
		return nil, errors.WithStack(err)
	}
	return rows, nil
}

func (s *gocqlSession) Close() {
	s.session.Close()
}
