// Package schema creates the keyspace, base table and materialized view the checker writes to and reads from.
package schema

import (
	"fmt"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"

	"github.com/armadaproject/mvcheck/internal/common/mverrors"
	"github.com/armadaproject/mvcheck/internal/common/mvcontext"
	"github.com/armadaproject/mvcheck/internal/mvcheck/cql"
)

type Names struct {
	Keyspace string
	Table    string
	View     string
}

// BaseTable returns the fully qualified base table name.
func (n Names) BaseTable() string {
	return n.Keyspace + "." + n.Table
}

// ViewTable returns the fully qualified view name.
func (n Names) ViewTable() string {
	return n.Keyspace + "." + n.View
}

// Statements returns the DDL run by Provision, in order.
func Statements(names Names, replicationFactor int) []string {
	return []string{
		fmt.Sprintf("DROP KEYSPACE IF EXISTS %s", names.Keyspace),
		fmt.Sprintf(
			"CREATE KEYSPACE %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': %d}",
			names.Keyspace, replicationFactor,
		),
		fmt.Sprintf("CREATE TABLE %s (p int, c int, r int, PRIMARY KEY (p, c))", names.BaseTable()),
		fmt.Sprintf(
			"CREATE MATERIALIZED VIEW %s AS SELECT p, c, r FROM %s WHERE p IS NOT NULL AND c IS NOT NULL PRIMARY KEY ((p, c))",
			names.ViewTable(), names.BaseTable(),
		),
	}
}

// Provision drops and recreates the keyspace. Any data from a previous run is lost.
func Provision(ctx *mvcontext.Context, session cql.Session, names Names, replicationFactor int) error {
	if replicationFactor < 1 {
		return errors.WithStack(&mverrors.ErrInvalidArgument{
			Name:    "replicationFactor",
			Value:   replicationFactor,
			Message: "must be at least 1",
		})
	}
	for _, stmt := range Statements(names, replicationFactor) {
		ctx.Log.Debugf("Executing %s", stmt)
		// Schema changes must reach every node before the next statement refers to them.
		if err := session.Exec(ctx, stmt, gocql.All); err != nil {
			return errors.WithMessagef(err, "error executing %q", stmt)
		}
	}
	ctx.Log.Infof("Created %s and its view %s", names.BaseTable(), names.ViewTable())
	return nil
}
