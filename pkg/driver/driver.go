// Package driver defines the abstract driver capability set the access layer
// depends on: open a connection from resolved settings, execute statements
// with commit/rollback semantics, and close. Concrete drivers are plugged in
// per dialect through the package registry.
package driver

import (
	"context"
	"fmt"
	"sync"

	"github.com/ajitpratap0/polybase/pkg/config"
	"github.com/ajitpratap0/polybase/pkg/errors"
)

// Rows is a fully materialized read result: column names in result order and
// one ordered value tuple per row.
type Rows struct {
	Columns []string
	Values  [][]interface{}
}

// Conn is one live driver connection. A Conn serves at most one in-flight
// statement at a time and is exclusively owned by its holder; concurrent use
// from two goroutines is a caller error.
type Conn interface {
	// Query runs a read statement and returns the row set
	Query(ctx context.Context, sql string, params ...interface{}) (*Rows, error)
	// Exec runs a write statement, committing on success and rolling back
	// the active transaction on failure
	Exec(ctx context.Context, sql string, params ...interface{}) error
	// ExecBatch runs one statement template once per parameter set inside a
	// single transaction; any failure rolls back the whole batch
	ExecBatch(ctx context.Context, sql string, paramSets [][]interface{}) error
	// Ping verifies the connection is still alive
	Ping(ctx context.Context) error
	// Close releases the underlying connection
	Close() error
}

// Driver opens connections from resolved service settings.
type Driver interface {
	Open(ctx context.Context, cfg *config.ServiceConfig) (Conn, error)
}

var (
	drivers = make(map[string]Driver)
	mu      sync.RWMutex
)

// Register adds a driver under the given name.
func Register(name string, d Driver) {
	mu.Lock()
	defer mu.Unlock()
	drivers[name] = d
}

// Get retrieves a registered driver by name.
func Get(name string) (Driver, error) {
	mu.RLock()
	defer mu.RUnlock()

	d, ok := drivers[name]
	if !ok {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("unsupported driver: %s", name))
	}
	return d, nil
}

// List returns the names of all registered drivers.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	return names
}
