// Package dialect centralizes per-dialect SQL rendering rules: identifier
// quoting, parameter placeholder syntax, and row-limiting clause support.
// Statement generation selects a Dialect by name and never hard-codes any
// of these differences.
package dialect

import (
	"fmt"
	"sync"

	"github.com/ajitpratap0/polybase/pkg/errors"
)

// Dialect defines database-specific rendering behavior.
type Dialect interface {
	// Name returns the dialect name, which matches the driver name
	Name() string
	// QuoteIdentifier quotes a table or column name to avoid keyword collisions
	QuoteIdentifier(name string) string
	// Placeholder returns the parameter marker for the given 1-based position
	Placeholder(position int) string
	// LimitClause renders the row-limiting clause, or fails with an
	// unsupported_feature error when the dialect has no equivalent
	LimitClause(limit int) (string, error)
}

var (
	dialects = make(map[string]Dialect)
	mu       sync.RWMutex
)

// Register adds a dialect by name. Registering the same name twice replaces
// the earlier entry; the last registration wins.
func Register(d Dialect) {
	mu.Lock()
	defer mu.Unlock()
	dialects[d.Name()] = d
}

// Get retrieves a registered dialect by name.
func Get(name string) (Dialect, error) {
	mu.RLock()
	defer mu.RUnlock()

	d, ok := dialects[name]
	if !ok {
		return nil, errors.New(errors.ErrorTypeUnsupportedFeature, fmt.Sprintf("unknown dialect: %s", name))
	}
	return d, nil
}

// List returns the names of all registered dialects.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	return names
}
