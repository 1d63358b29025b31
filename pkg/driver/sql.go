package driver

import (
	"context"
	"database/sql"
	sqldriver "database/sql/driver"
	stderrors "errors"
	"net"

	// Concrete database/sql drivers, selected by name at Open time.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/snowflakedb/gosnowflake"

	"github.com/ajitpratap0/polybase/pkg/config"
	"github.com/ajitpratap0/polybase/pkg/errors"
)

// sqlDriverNames maps Polybase driver names to database/sql driver names.
var sqlDriverNames = map[string]string{
	config.DriverSQLite:    "sqlite3",
	config.DriverMySQL:     "mysql",
	config.DriverPostgres:  "pgx",
	config.DriverSnowflake: "snowflake",
}

func init() {
	for name, sqlName := range sqlDriverNames {
		Register(name, &SQLDriver{driverName: sqlName})
	}
}

// SQLDriver implements Driver over database/sql. Each Open creates a
// dedicated handle capped at a single underlying connection, so one Conn is
// one physical connection and pool accounting stays accurate.
type SQLDriver struct {
	driverName string
}

// Open establishes one connection using the service's DSN.
func (d *SQLDriver) Open(ctx context.Context, cfg *config.ServiceConfig) (Conn, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to build connection string")
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to open connection")
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "connection is not usable")
	}

	return &sqlConn{db: db}, nil
}

// sqlConn wraps the single-connection handle.
type sqlConn struct {
	db *sql.DB
}

func (c *sqlConn) Query(ctx context.Context, query string, params ...interface{}) (*Rows, error) {
	rows, err := c.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, classify(err, "query failed")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, classify(err, "failed to read result columns")
	}

	result := &Rows{Columns: columns}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		scanTargets := make([]interface{}, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, classify(err, "failed to scan row")
		}
		result.Values = append(result.Values, values)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "row iteration failed")
	}

	return result, nil
}

func (c *sqlConn) Exec(ctx context.Context, query string, params ...interface{}) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err, "failed to begin transaction")
	}

	if _, err := tx.ExecContext(ctx, query, params...); err != nil {
		_ = tx.Rollback()
		return classify(err, "statement failed")
	}

	if err := tx.Commit(); err != nil {
		return classify(err, "commit failed")
	}
	return nil
}

func (c *sqlConn) ExecBatch(ctx context.Context, query string, paramSets [][]interface{}) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err, "failed to begin transaction")
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return classify(err, "failed to prepare statement")
	}

	for _, params := range paramSets {
		if _, err := stmt.ExecContext(ctx, params...); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return classify(err, "batch statement failed")
		}
	}

	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return classify(err, "failed to close statement")
	}
	if err := tx.Commit(); err != nil {
		return classify(err, "commit failed")
	}
	return nil
}

func (c *sqlConn) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnectionLost, "ping failed")
	}
	return nil
}

func (c *sqlConn) Close() error {
	return c.db.Close()
}

// classify maps a driver-level failure onto the error taxonomy: transport
// failures become connection_lost so the holder discards the connection,
// everything else is a statement error that was rolled back.
func classify(err error, message string) error {
	switch {
	case stderrors.Is(err, sqldriver.ErrBadConn):
		return errors.Wrap(err, errors.ErrorTypeConnectionLost, message)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(err, errors.ErrorTypeTimeout, message)
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return errors.Wrap(err, errors.ErrorTypeConnectionLost, message)
	}

	return errors.Wrap(err, errors.ErrorTypeStatement, message)
}
