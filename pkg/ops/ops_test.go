package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/polybase/pkg/config"
	"github.com/ajitpratap0/polybase/pkg/connector"
	"github.com/ajitpratap0/polybase/pkg/driver"
	"github.com/ajitpratap0/polybase/pkg/errors"
	"github.com/ajitpratap0/polybase/pkg/registry"
	"github.com/ajitpratap0/polybase/pkg/statement"
	"github.com/ajitpratap0/polybase/pkg/testutil"
)

func newOps(t *testing.T) (*Operations, *testutil.FakeDriver) {
	t.Helper()

	drv := &testutil.FakeDriver{}
	driver.Register(config.DriverSQLite, drv)

	resolver := registry.NewStatic()
	require.NoError(t, resolver.Register(&config.ServiceConfig{
		ServiceType: config.ServiceTypeDatabase,
		ServiceName: "inventory",
		Version:     "1.0",
		Driver:      config.DriverSQLite,
		SQLite:      &config.SQLiteSettings{Path: "/tmp/inventory.db"},
	}))

	c := connector.New(resolver)
	t.Cleanup(c.Close)

	ops, err := Connect(context.Background(), c, "inventory", "1.0")
	require.NoError(t, err)
	t.Cleanup(ops.Close)
	return ops, drv
}

// executed flattens every statement recorded across the driver's connections.
func executed(drv *testutil.FakeDriver) []testutil.ExecutedStatement {
	var all []testutil.ExecutedStatement
	for _, conn := range drv.OpenedConns() {
		all = append(all, conn.Statements()...)
	}
	return all
}

func requireOne(t *testing.T, drv *testutil.FakeDriver) testutil.ExecutedStatement {
	t.Helper()
	all := executed(drv)
	require.Len(t, all, 1)
	return all[0]
}

func TestCreateTable(t *testing.T) {
	ops, drv := newOps(t)

	columns := []statement.ColumnDef{
		{Name: "id", Type: "INTEGER"},
		{Name: "name", Type: "TEXT"},
	}
	require.NoError(t, ops.CreateTable(context.Background(), "users", columns, []string{"id"}, true))

	stmt := requireOne(t, drv)
	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "users" ("id" INTEGER, "name" TEXT, PRIMARY KEY ("id"))`, stmt.SQL)
	assert.Empty(t, stmt.Params)
}

func TestDropTable(t *testing.T) {
	ops, drv := newOps(t)

	require.NoError(t, ops.DropTable(context.Background(), "users", true))
	assert.Equal(t, `DROP TABLE IF EXISTS "users"`, requireOne(t, drv).SQL)
}

func TestCreateIndex(t *testing.T) {
	ops, drv := newOps(t)

	require.NoError(t, ops.CreateIndex(context.Background(), "idx_users_name", "users", []string{"name"}, true))
	assert.Equal(t, `CREATE UNIQUE INDEX "idx_users_name" ON "users" ("name")`, requireOne(t, drv).SQL)
}

func TestInsertBindsInFieldOrder(t *testing.T) {
	ops, drv := newOps(t)

	data := statement.Fields{
		{Column: "id", Value: 1},
		{Column: "name", Value: "Alice"},
	}
	require.NoError(t, ops.Insert(context.Background(), "users", data))

	stmt := requireOne(t, drv)
	assert.Equal(t, `INSERT INTO "users" ("id", "name") VALUES (?, ?)`, stmt.SQL)
	assert.Equal(t, []interface{}{1, "Alice"}, stmt.Params)
}

func TestInsertRejectsEmptyData(t *testing.T) {
	ops, drv := newOps(t)

	err := ops.Insert(context.Background(), "users", nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Empty(t, executed(drv), "nothing reaches the connection on a validation failure")
}

func TestBulkInsert(t *testing.T) {
	ops, drv := newOps(t)

	rows := []statement.Fields{
		{{Column: "id", Value: 1}, {Column: "name", Value: "Alice"}},
		{{Column: "id", Value: 2}, {Column: "name", Value: "Bob"}},
	}
	require.NoError(t, ops.BulkInsert(context.Background(), "users", rows))

	stmt := requireOne(t, drv)
	assert.Equal(t, `INSERT INTO "users" ("id", "name") VALUES (?, ?)`, stmt.SQL)
	require.Len(t, stmt.ParamSets, 2)
	assert.Equal(t, []interface{}{1, "Alice"}, stmt.ParamSets[0])
	assert.Equal(t, []interface{}{2, "Bob"}, stmt.ParamSets[1])
}

func TestBulkInsertEmptyIsNoOp(t *testing.T) {
	ops, drv := newOps(t)

	require.NoError(t, ops.BulkInsert(context.Background(), "users", nil))
	assert.Empty(t, executed(drv))
}

func TestBulkInsertMismatchExecutesNothing(t *testing.T) {
	ops, drv := newOps(t)

	rows := []statement.Fields{
		{{Column: "id", Value: 1}, {Column: "name", Value: "Alice"}},
		{{Column: "id", Value: 2}},
	}
	err := ops.BulkInsert(context.Background(), "users", rows)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaMismatch))
	assert.Empty(t, executed(drv), "a mismatched batch must not touch the table")
}

func TestSelectMapsRowsToRecords(t *testing.T) {
	ops, drv := newOps(t)
	for _, conn := range drv.OpenedConns() {
		conn.SetRows(&driver.Rows{
			Columns: []string{"id", "name"},
			Values: [][]interface{}{
				{int64(1), "Alice"},
				{int64(2), "Bob"},
			},
		})
	}

	where := statement.Fields{{Column: "active", Value: true}}
	records, err := ops.Select(context.Background(), "users", []string{"id", "name"}, where, []string{"id"}, 10)
	require.NoError(t, err)

	stmt := requireOne(t, drv)
	assert.Equal(t, `SELECT "id", "name" FROM "users" WHERE "active" = ? ORDER BY "id" LIMIT 10`, stmt.SQL)
	assert.Equal(t, []interface{}{true}, stmt.Params)

	require.Len(t, records, 2)
	assert.Equal(t, Record{"id": int64(1), "name": "Alice"}, records[0])
	assert.Equal(t, Record{"id": int64(2), "name": "Bob"}, records[1])
}

func TestSelectStarUsesResultColumns(t *testing.T) {
	ops, drv := newOps(t)
	for _, conn := range drv.OpenedConns() {
		conn.SetRows(&driver.Rows{
			Columns: []string{"id", "name"},
			Values:  [][]interface{}{{int64(7), "Carol"}},
		})
	}

	records, err := ops.Select(context.Background(), "users", nil, nil, nil, 0)
	require.NoError(t, err)

	assert.Equal(t, `SELECT * FROM "users"`, requireOne(t, drv).SQL)
	require.Len(t, records, 1)
	assert.Equal(t, Record{"id": int64(7), "name": "Carol"}, records[0])
}

func TestSelectNoMatchesReturnsEmptySlice(t *testing.T) {
	ops, _ := newOps(t)

	records, err := ops.Select(context.Background(), "users", []string{"id"}, nil, nil, 0)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestUpdateBindsSetBeforeWhere(t *testing.T) {
	ops, drv := newOps(t)

	data := statement.Fields{{Column: "name", Value: "Alice"}, {Column: "active", Value: false}}
	where := statement.Fields{{Column: "id", Value: 1}}
	require.NoError(t, ops.Update(context.Background(), "users", data, where))

	stmt := requireOne(t, drv)
	assert.Equal(t, `UPDATE "users" SET "name" = ?, "active" = ? WHERE "id" = ?`, stmt.SQL)
	assert.Equal(t, []interface{}{"Alice", false, 1}, stmt.Params)
}

func TestDelete(t *testing.T) {
	ops, drv := newOps(t)

	where := statement.Fields{{Column: "id", Value: 1}}
	require.NoError(t, ops.Delete(context.Background(), "users", where))

	stmt := requireOne(t, drv)
	assert.Equal(t, `DELETE FROM "users" WHERE "id" = ?`, stmt.SQL)
	assert.Equal(t, []interface{}{1}, stmt.Params)
}

func TestDeleteWithoutFilterAffectsAllRows(t *testing.T) {
	ops, drv := newOps(t)

	require.NoError(t, ops.Delete(context.Background(), "users", nil))
	stmt := requireOne(t, drv)
	assert.Equal(t, `DELETE FROM "users"`, stmt.SQL)
	assert.Empty(t, stmt.Params)
}

func TestExecErrorSurfaced(t *testing.T) {
	ops, drv := newOps(t)
	for _, conn := range drv.OpenedConns() {
		conn.ExecErr = errors.New(errors.ErrorTypeStatement, "no such table")
	}

	err := ops.Insert(context.Background(), "users", statement.Fields{{Column: "id", Value: 1}})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeStatement))
}
