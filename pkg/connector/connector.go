// Package connector binds resolved services to pooled driver connections.
// Connect returns an explicit Session handle that owns one checked-out
// connection; the caller threads the handle through subsequent calls and
// releases it with Close. Ownership is visible in the type system instead of
// hiding behind implicit thread identity.
package connector

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/polybase/pkg/config"
	"github.com/ajitpratap0/polybase/pkg/dialect"
	"github.com/ajitpratap0/polybase/pkg/driver"
	"github.com/ajitpratap0/polybase/pkg/errors"
	"github.com/ajitpratap0/polybase/pkg/logger"
	"github.com/ajitpratap0/polybase/pkg/pool"
	"github.com/ajitpratap0/polybase/pkg/registry"
)

// Connector owns one connection pool per connected service. It is safe for
// concurrent use; each returned Session is not, matching the one-holder
// ownership of its connection.
type Connector struct {
	resolver registry.Resolver
	logger   *zap.Logger

	mu    sync.Mutex
	pools map[string]*poolEntry
}

// poolEntry pairs a pool with one-time initialization so concurrent Connect
// calls for the same service share a single pool and a single init attempt.
type poolEntry struct {
	pool    *pool.Pool
	once    sync.Once
	initErr error
}

// New creates a connector backed by the given configuration resolver.
func New(resolver registry.Resolver) *Connector {
	return &Connector{
		resolver: resolver,
		pools:    make(map[string]*poolEntry),
		logger:   logger.Get().With(zap.String("component", "connector")),
	}
}

// Connect resolves the service configuration, lazily creates or reuses the
// connection pool for (serviceName, version), acquires a connection, and
// returns a Session bound to it. Resolution or acquisition failure is
// returned as an error, never escalated.
func (c *Connector) Connect(ctx context.Context, serviceName, version string) (*Session, error) {
	cfg, err := c.resolver.Resolve(config.ServiceTypeDatabase, serviceName, version)
	if err != nil {
		c.logger.Error("configuration not found",
			zap.String("service", serviceName),
			zap.String("version", version),
			zap.Error(err))
		return nil, err
	}

	d, err := dialect.Get(cfg.Driver)
	if err != nil {
		return nil, err
	}

	drv, err := driver.Get(cfg.Driver)
	if err != nil {
		return nil, err
	}

	key := serviceName + ":" + version

	c.mu.Lock()
	entry, ok := c.pools[key]
	if !ok {
		entry = &poolEntry{pool: pool.New(cfg, drv)}
		c.pools[key] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.initErr = entry.pool.Initialize(ctx)
	})
	if entry.initErr != nil {
		// Drop the failed entry so a later Connect can retry initialization.
		c.mu.Lock()
		if c.pools[key] == entry {
			delete(c.pools, key)
		}
		c.mu.Unlock()
		return nil, entry.initErr
	}

	pc, err := entry.pool.Acquire(ctx, cfg.AcquireTimeout())
	if err != nil {
		c.logger.Error("failed to acquire connection",
			zap.String("service", serviceName),
			zap.String("version", version),
			zap.Error(err))
		return nil, err
	}

	c.logger.Debug("session opened",
		zap.String("service", serviceName),
		zap.String("version", version),
		zap.String("driver", cfg.Driver))

	return &Session{
		service: serviceName,
		version: version,
		dialect: d,
		pool:    entry.pool,
		conn:    pc,
		logger: c.logger.With(
			zap.String("service", serviceName),
			zap.String("version", version)),
	}, nil
}

// Stats returns a snapshot of every owned pool.
func (c *Connector) Stats() []pool.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := make([]pool.Stats, 0, len(c.pools))
	for _, entry := range c.pools {
		stats = append(stats, entry.pool.Stats())
	}
	return stats
}

// Close shuts down every pool owned by this connector. Sessions still open
// have their connections closed when they release.
func (c *Connector) Close() {
	c.mu.Lock()
	pools := c.pools
	c.pools = make(map[string]*poolEntry)
	c.mu.Unlock()

	for key, entry := range pools {
		entry.pool.Shutdown()
		c.logger.Debug("pool shut down", zap.String("service", key))
	}
}

// Session is one checked-out connection bound to one resolved service. It is
// exclusively owned by the caller that connected; a Session must not be
// shared across goroutines.
type Session struct {
	service string
	version string
	dialect dialect.Dialect
	pool    *pool.Pool
	conn    *pool.PooledConn
	logger  *zap.Logger
	closed  bool
}

// Service returns the logical service name this session is bound to.
func (s *Session) Service() string {
	return s.service
}

// Dialect returns the SQL dialect of the bound service.
func (s *Session) Dialect() dialect.Dialect {
	return s.dialect
}

// Query runs a read statement on the bound connection and returns the row
// set: column names in result order and one ordered value tuple per row.
func (s *Session) Query(ctx context.Context, sqlText string, params ...interface{}) (*driver.Rows, error) {
	if s.closed {
		return nil, errors.New(errors.ErrorTypeConnection, "session is closed")
	}

	rows, err := s.conn.Conn().Query(ctx, sqlText, params...)
	if err != nil {
		s.fail(sqlText, err)
		return nil, err
	}
	return rows, nil
}

// Exec runs a write statement on the bound connection. The driver commits on
// success and rolls back the active transaction on failure; the failure is
// logged and surfaced as an error, never retried here.
func (s *Session) Exec(ctx context.Context, sqlText string, params ...interface{}) error {
	if s.closed {
		return errors.New(errors.ErrorTypeConnection, "session is closed")
	}

	if err := s.conn.Conn().Exec(ctx, sqlText, params...); err != nil {
		s.fail(sqlText, err)
		return err
	}
	return nil
}

// ExecBatch runs one statement template once per parameter tuple inside a
// single transaction.
func (s *Session) ExecBatch(ctx context.Context, sqlText string, paramSets [][]interface{}) error {
	if s.closed {
		return errors.New(errors.ErrorTypeConnection, "session is closed")
	}

	if err := s.conn.Conn().ExecBatch(ctx, sqlText, paramSets); err != nil {
		s.fail(sqlText, err)
		return err
	}
	return nil
}

// Close releases the bound connection back to its pool. Closing twice is a
// no-op.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.pool.Release(s.conn)
	s.conn = nil
	s.logger.Debug("session closed")
}

// fail logs a statement failure and, for connection-level failures, discards
// the broken connection instead of returning it to the pool. Pool capacity
// self-heals on the next acquire.
func (s *Session) fail(sqlText string, err error) {
	s.logger.Error("statement failed",
		zap.String("sql", sqlText),
		zap.Error(err))

	if errors.IsType(err, errors.ErrorTypeConnectionLost) {
		s.closed = true
		s.pool.Discard(s.conn)
		s.conn = nil
		s.logger.Warn("connection lost, discarded from pool")
	}
}

// String implements fmt.Stringer for log-friendly output.
func (s *Session) String() string {
	return fmt.Sprintf("session(%s:%s)", s.service, s.version)
}
