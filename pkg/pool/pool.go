// Package pool provides a bounded pool of live driver connections for one
// resolved service configuration. Checkout blocks up to a timeout when the
// pool is exhausted; a checked-out connection is exclusively owned by its
// holder until released, and the pool never touches it in the meantime.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/polybase/pkg/config"
	"github.com/ajitpratap0/polybase/pkg/driver"
	"github.com/ajitpratap0/polybase/pkg/errors"
	"github.com/ajitpratap0/polybase/pkg/logger"
	"github.com/ajitpratap0/polybase/pkg/metrics"
)

// State is the pool lifecycle state.
type State int32

const (
	// StateUninitialized is the state before Initialize
	StateUninitialized State = iota
	// StateReady accepts Acquire and Release
	StateReady
	// StateDraining closes connections as they come back
	StateDraining
	// StateClosed is terminal
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// warmConnections is how many connections Initialize opens eagerly; the rest
// are created on demand up to the pool bound.
const warmConnections = 2

// PooledConn is a live driver connection plus pool metadata.
type PooledConn struct {
	conn      driver.Conn
	createdAt time.Time
	useCount  int64
}

// Conn returns the underlying driver connection.
func (pc *PooledConn) Conn() driver.Conn {
	return pc.conn
}

// CreatedAt returns when the connection was established.
func (pc *PooledConn) CreatedAt() time.Time {
	return pc.createdAt
}

// Stats is a point-in-time snapshot of pool occupancy.
type Stats struct {
	Service    string `json:"service"`
	State      string `json:"state"`
	MaxSize    int    `json:"max_size"`
	Live       int    `json:"live"`
	Idle       int    `json:"idle"`
	CheckedOut int    `json:"checked_out"`
}

// Pool owns a bounded set of live connections for exactly one service
// configuration. The idle set and counters are the only data mutated by
// multiple goroutines and are guarded by a single mutex; the idle channel
// doubles as the wait queue for blocked checkouts.
type Pool struct {
	cfg     *config.ServiceConfig
	drv     driver.Driver
	logger  *zap.Logger
	maxSize int

	mu    sync.Mutex
	state State
	live  int // idle + checked out, never exceeds maxSize
	idle  chan *PooledConn

	stopCh chan struct{}
}

// New creates a pool in the uninitialized state.
func New(cfg *config.ServiceConfig, drv driver.Driver) *Pool {
	maxSize := cfg.MaxPoolSize()
	return &Pool{
		cfg:     cfg,
		drv:     drv,
		maxSize: maxSize,
		idle:    make(chan *PooledConn, maxSize),
		stopCh:  make(chan struct{}),
		logger: logger.Get().With(
			zap.String("component", "connection_pool"),
			zap.String("service", cfg.ServiceName),
			zap.String("version", cfg.Version)),
	}
}

// Initialize transitions the pool to ready, eagerly establishing a small
// number of warm connections. It fails with a pool_init error if the driver
// cannot establish even one connection.
func (p *Pool) Initialize(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateUninitialized {
		p.mu.Unlock()
		return errors.New(errors.ErrorTypeValidation, fmt.Sprintf("pool already %s", p.state))
	}
	p.mu.Unlock()

	warm := warmConnections
	if warm > p.maxSize {
		warm = p.maxSize
	}

	opened := 0
	for i := 0; i < warm; i++ {
		pc, err := p.open(ctx)
		if err != nil {
			if opened == 0 {
				return errors.Wrap(err, errors.ErrorTypePoolInit, "driver cannot establish a connection")
			}
			p.logger.Warn("partial pool warm-up", zap.Int("opened", opened), zap.Error(err))
			break
		}
		p.idle <- pc
		opened++
	}

	p.mu.Lock()
	p.state = StateReady
	p.live = opened
	p.updateOccupancy()
	p.mu.Unlock()

	p.logger.Info("pool initialized",
		zap.Int("warm_connections", opened),
		zap.Int("max_size", p.maxSize))
	return nil
}

// Acquire checks out a connection: an idle one if available, a freshly
// created one while the pool is under its bound, otherwise it blocks until a
// connection is released or the timeout elapses, failing with a
// pool_exhausted error.
func (p *Pool) Acquire(ctx context.Context, timeout time.Duration) (*PooledConn, error) {
	start := time.Now()

	p.mu.Lock()
	if p.state != StateReady {
		p.mu.Unlock()
		return nil, errors.New(errors.ErrorTypeConnection, fmt.Sprintf("pool is %s", p.state))
	}

	select {
	case pc := <-p.idle:
		p.updateOccupancy()
		p.mu.Unlock()
		pc.useCount++
		p.logger.Debug("reusing pooled connection",
			zap.Int64("use_count", pc.useCount),
			zap.Duration("age", time.Since(pc.createdAt)))
		metrics.ObserveAcquireWait(p.cfg.ServiceName, time.Since(start))
		return pc, nil
	default:
	}

	if p.live < p.maxSize {
		// Reserve capacity before opening so concurrent acquires cannot
		// push the pool past its bound.
		p.live++
		p.updateOccupancy()
		p.mu.Unlock()

		pc, err := p.open(ctx)
		if err != nil {
			p.mu.Lock()
			p.live--
			p.updateOccupancy()
			p.mu.Unlock()
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create connection")
		}

		p.logger.Debug("created new connection", zap.Int("live", p.liveCount()))
		metrics.ObserveAcquireWait(p.cfg.ServiceName, time.Since(start))
		return pc, nil
	}
	p.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case pc := <-p.idle:
		p.mu.Lock()
		p.updateOccupancy()
		p.mu.Unlock()
		pc.useCount++
		metrics.ObserveAcquireWait(p.cfg.ServiceName, time.Since(start))
		return pc, nil
	case <-timer.C:
		return nil, errors.New(errors.ErrorTypePoolExhausted,
			fmt.Sprintf("no connection available within %s", timeout))
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "acquire canceled")
	case <-p.stopCh:
		return nil, errors.New(errors.ErrorTypeConnection, "pool is shutting down")
	}
}

// Release returns a connection to the idle set. While draining or closed, or
// when the pool is already at capacity after a shrink, the connection is
// closed instead of re-pooled.
func (p *Pool) Release(pc *PooledConn) {
	if pc == nil {
		return
	}

	p.mu.Lock()
	if p.state != StateReady {
		p.live--
		p.updateOccupancy()
		p.mu.Unlock()
		_ = pc.conn.Close()
		p.logger.Debug("closed connection released during shutdown")
		return
	}

	select {
	case p.idle <- pc:
		p.updateOccupancy()
		p.mu.Unlock()
		p.logger.Debug("returned connection to pool", zap.Int("idle", len(p.idle)))
		return
	default:
	}

	// Pool is at capacity. Overflow connections are closed eagerly rather
	// than retained by the caller.
	p.live--
	p.updateOccupancy()
	p.mu.Unlock()
	_ = pc.conn.Close()
	p.logger.Warn("pool at capacity, closing overflow connection")
}

// Discard drops a broken connection without re-pooling it, freeing capacity
// so the next Acquire can create a replacement.
func (p *Pool) Discard(pc *PooledConn) {
	if pc == nil {
		return
	}

	p.mu.Lock()
	p.live--
	p.updateOccupancy()
	p.mu.Unlock()
	_ = pc.conn.Close()
	p.logger.Debug("discarded connection", zap.Int("live", p.liveCount()))
}

// Shutdown drains the pool and closes all idle connections. Connections
// still checked out are closed when released.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		return
	}
	p.state = StateDraining
	close(p.stopCh)

	closed := 0
	for {
		select {
		case pc := <-p.idle:
			_ = pc.conn.Close()
			p.live--
			closed++
		default:
			p.state = StateClosed
			p.updateOccupancy()
			p.mu.Unlock()
			p.logger.Info("pool shut down", zap.Int("closed_idle", closed))
			return
		}
	}
}

// Stats returns a snapshot of pool occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	idle := len(p.idle)
	return Stats{
		Service:    p.cfg.ServiceName,
		State:      p.state.String(),
		MaxSize:    p.maxSize,
		Live:       p.live,
		Idle:       idle,
		CheckedOut: p.live - idle,
	}
}

// State returns the current lifecycle state.
func (p *Pool) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pool) open(ctx context.Context) (*PooledConn, error) {
	conn, err := p.drv.Open(ctx, p.cfg)
	if err != nil {
		return nil, err
	}
	return &PooledConn{conn: conn, createdAt: time.Now()}, nil
}

func (p *Pool) liveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

// updateOccupancy pushes current counts to the metrics gauges. Callers must
// hold the mutex.
func (p *Pool) updateOccupancy() {
	idle := len(p.idle)
	metrics.SetPoolOccupancy(p.cfg.ServiceName, idle, p.live-idle)
}
