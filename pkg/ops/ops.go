// Package ops composes statement generation with session execution to offer
// named CRUD verbs against one connected service. Mutating verbs return nil
// on success; Select returns an empty record set, not an error, when no rows
// match.
package ops

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/polybase/pkg/connector"
	"github.com/ajitpratap0/polybase/pkg/logger"
	"github.com/ajitpratap0/polybase/pkg/metrics"
	"github.com/ajitpratap0/polybase/pkg/statement"
)

// Record is one result row keyed by column name.
type Record map[string]interface{}

// Operations is a thin facade over one session. Like the session it wraps,
// it is owned by a single caller.
type Operations struct {
	session *connector.Session
	logger  *zap.Logger
}

// New wraps a connected session.
func New(session *connector.Session) *Operations {
	return &Operations{
		session: session,
		logger:  logger.Get().With(zap.String("component", "ops"), zap.String("service", session.Service())),
	}
}

// Connect resolves and connects to a service, returning an operations facade
// bound to it.
func Connect(ctx context.Context, c *connector.Connector, serviceName, version string) (*Operations, error) {
	session, err := c.Connect(ctx, serviceName, version)
	if err != nil {
		return nil, err
	}
	return New(session), nil
}

// CreateTable creates a table with columns in the given order and an
// optional primary key.
func (o *Operations) CreateTable(ctx context.Context, table string, columns []statement.ColumnDef, primaryKey []string, ifNotExists bool) error {
	stmt, err := statement.CreateTable(o.session.Dialect(), table, columns, primaryKey, ifNotExists)
	if err != nil {
		return err
	}
	return o.exec(ctx, "create_table", stmt)
}

// DropTable drops a table.
func (o *Operations) DropTable(ctx context.Context, table string, ifExists bool) error {
	stmt, err := statement.DropTable(o.session.Dialect(), table, ifExists)
	if err != nil {
		return err
	}
	return o.exec(ctx, "drop_table", stmt)
}

// CreateIndex creates an index over the given columns.
func (o *Operations) CreateIndex(ctx context.Context, indexName, table string, columns []string, unique bool) error {
	stmt, err := statement.CreateIndex(o.session.Dialect(), indexName, table, columns, unique)
	if err != nil {
		return err
	}
	return o.exec(ctx, "create_index", stmt)
}

// Insert inserts a single row.
func (o *Operations) Insert(ctx context.Context, table string, data statement.Fields) error {
	stmt, err := statement.Insert(o.session.Dialect(), table, data)
	if err != nil {
		return err
	}
	return o.exec(ctx, "insert", stmt)
}

// BulkInsert inserts multiple rows as one batch in a single transaction. All
// rows must share the same column set; a mismatch fails before anything is
// executed, leaving the table unmodified. An empty row set is a no-op.
func (o *Operations) BulkInsert(ctx context.Context, table string, rows []statement.Fields) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := statement.BulkInsert(o.session.Dialect(), table, rows)
	if err != nil {
		return err
	}

	err = o.session.ExecBatch(ctx, batch.SQL, batch.ParamSets)
	metrics.RecordStatement(o.session.Service(), "bulk_insert", err)
	return err
}

// Select returns matching rows as records keyed by column name, in the
// requested column order. No matches yields an empty, non-nil slice; an
// error is returned only on execution failure.
func (o *Operations) Select(ctx context.Context, table string, columns []string, where statement.Fields, orderBy []string, limit int) ([]Record, error) {
	stmt, err := statement.Select(o.session.Dialect(), table, columns, where, orderBy, limit)
	if err != nil {
		return nil, err
	}

	rows, err := o.session.Query(ctx, stmt.SQL, stmt.Params...)
	metrics.RecordStatement(o.session.Service(), "select", err)
	if err != nil {
		return nil, err
	}

	// Requested columns name the record keys; a * select falls back to the
	// result's own column order.
	names := columns
	if len(names) == 0 {
		names = rows.Columns
	}

	records := make([]Record, 0, len(rows.Values))
	for _, tuple := range rows.Values {
		record := make(Record, len(names))
		for i, name := range names {
			if i < len(tuple) {
				record[name] = tuple[i]
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// Update sets the given fields on matching rows. Parameters bind SET values
// before WHERE values. An empty filter updates all rows.
func (o *Operations) Update(ctx context.Context, table string, data, where statement.Fields) error {
	stmt, err := statement.Update(o.session.Dialect(), table, data, where)
	if err != nil {
		return err
	}
	return o.exec(ctx, "update", stmt)
}

// Delete removes matching rows. An empty filter deletes all rows; callers
// opt into that explicitly.
func (o *Operations) Delete(ctx context.Context, table string, where statement.Fields) error {
	stmt, err := statement.Delete(o.session.Dialect(), table, where)
	if err != nil {
		return err
	}
	return o.exec(ctx, "delete", stmt)
}

// Close releases the underlying session.
func (o *Operations) Close() {
	o.session.Close()
}

func (o *Operations) exec(ctx context.Context, verb string, stmt statement.Statement) error {
	err := o.session.Exec(ctx, stmt.SQL, stmt.Params...)
	metrics.RecordStatement(o.session.Service(), verb, err)
	if err != nil {
		o.logger.Error("operation failed", zap.String("verb", verb), zap.Error(err))
	}
	return err
}
