package pgpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pgpool/pkg/connector"
	errs "pgpool/pkg/errors"
	"pgpool/pkg/logger"
)

// DefaultPoolSize is the number of connections opened when no size is given
const DefaultPoolSize = 100

// Pool is a fixed-capacity pool of database connections. All connections are
// opened eagerly at construction and circulate between the idle queue and
// callers for the pool's entire lifetime; the pool never creates or destroys
// a connection outside construction and shutdown.
//
// A Pool should be created once per application and shared by reference.
type Pool struct {
	connString string
	size       int
	conn       connector.Connector
	timeout    time.Duration
	log        *logger.Logger

	mu        sync.Mutex
	available *sync.Cond
	idle      []connector.Conn // FIFO: acquire pops the head, release appends
	leased    int
	reclaimed int
	draining  bool
}

// Option configures a Pool
type Option func(*Pool)

// WithSize sets the number of connections the pool opens
func WithSize(n int) Option {
	return func(p *Pool) { p.size = n }
}

// WithConnector sets the database client used to open connections
func WithConnector(c connector.Connector) Option {
	return func(p *Pool) { p.conn = c }
}

// WithAcquireTimeout bounds how long Acquire waits for an idle connection.
// Zero means wait indefinitely.
func WithAcquireTimeout(d time.Duration) Option {
	return func(p *Pool) { p.timeout = d }
}

// New creates a pool by synchronously opening size connections to connString.
// Construction either fully succeeds or fails; on failure every connection
// opened so far is closed and the pool must not be used.
func New(ctx context.Context, connString string, opts ...Option) (*Pool, error) {
	p := &Pool{
		connString: connString,
		size:       DefaultPoolSize,
		conn:       connector.PostgresConnector{},
		log:        logger.Get().With("component", "pgpool"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.size < 1 {
		return nil, errs.ErrInvalidPoolSize
	}
	if p.conn == nil {
		return nil, errs.ErrNilConnector
	}
	p.available = sync.NewCond(&p.mu)

	p.idle = make([]connector.Conn, 0, p.size)
	for i := 0; i < p.size; i++ {
		c, err := p.conn.Connect(ctx, connString)
		if err != nil {
			for _, open := range p.idle {
				_ = open.Close(ctx)
			}
			p.idle = nil
			return nil, fmt.Errorf("failed to open connection %d of %d: %w", i+1, p.size, err)
		}
		p.idle = append(p.idle, c)
	}

	p.log.InfoWith("connection pool ready", "size", p.size)
	return p, nil
}

// Acquire blocks until an idle connection is available and returns it wrapped
// in a Lease. If the pool is shutting down, or enters shutdown while the
// caller waits, Acquire fails with ErrPoolShuttingDown.
func (p *Pool) Acquire() (*Lease, error) {
	return p.AcquireContext(context.Background())
}

// AcquireContext is Acquire with cancellation. The wait is additionally
// bounded by the pool's acquire timeout when one is configured.
func (p *Pool) AcquireContext(ctx context.Context) (*Lease, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if done := ctx.Done(); done != nil {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-done:
				// Take the lock so the waiter is either parked in Wait
				// (broadcast reaches it) or has not yet checked ctx.
				p.mu.Lock()
				p.mu.Unlock()
				p.available.Broadcast()
			case <-stop:
			}
		}()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.idle) == 0 && !p.draining && ctx.Err() == nil {
		p.available.Wait()
	}
	if p.draining {
		return nil, errs.ErrPoolShuttingDown
	}
	if err := ctx.Err(); err != nil {
		// This waiter may have consumed a signal meant for another; pass
		// it on so the idle connection is not stranded.
		if len(p.idle) > 0 {
			p.available.Signal()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errs.ErrAcquireTimeout
		}
		return nil, err
	}
	return p.popLocked(), nil
}

// TryAcquire returns an idle connection without blocking, or
// ErrPoolExhausted when none is available.
func (p *Pool) TryAcquire() (*Lease, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.draining {
		return nil, errs.ErrPoolShuttingDown
	}
	if len(p.idle) == 0 {
		return nil, errs.ErrPoolExhausted
	}
	return p.popLocked(), nil
}

func (p *Pool) popLocked() *Lease {
	c := p.idle[0]
	p.idle = p.idle[1:]
	p.leased++
	l := &Lease{pool: p, conn: c}
	l.refs.Store(1)
	return l
}

// put is the lease release hook: it runs exactly once per checkout, when the
// last reference to a Lease is released. While the pool runs, the connection
// rejoins the idle queue and one waiter is woken. During drain the connection
// is closed instead; it must never re-enter a drained queue.
func (p *Pool) put(c connector.Conn) {
	p.mu.Lock()
	p.leased--
	if p.draining {
		p.reclaimed++
		p.mu.Unlock()
		if err := c.Close(context.Background()); err != nil {
			p.log.ErrorWithErr("failed to close reclaimed connection", err)
		}
		p.available.Broadcast()
		return
	}
	p.idle = append(p.idle, c)
	p.mu.Unlock()
	p.available.Signal()
}

// Close transitions the pool to draining: all waiters are woken and fail
// with ErrPoolShuttingDown, subsequent acquires fail immediately, and every
// idle connection is closed. Connections still checked out are not touched;
// each is closed when its last lease reference is released. Close is
// idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return
	}
	p.draining = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	p.available.Broadcast()

	for _, c := range idle {
		if err := c.Close(context.Background()); err != nil {
			p.log.ErrorWithErr("failed to close idle connection", err)
		}
	}
	p.log.InfoWith("connection pool closed", "drained", len(idle))
}

// CloseAndWait closes the pool and blocks until every checked-out connection
// has been returned and reclaimed, or ctx is cancelled.
func (p *Pool) CloseAndWait(ctx context.Context) error {
	p.Close()

	if done := ctx.Done(); done != nil {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-done:
				p.mu.Lock()
				p.mu.Unlock()
				p.available.Broadcast()
			case <-stop:
			}
		}()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for p.leased > 0 && ctx.Err() == nil {
		p.available.Wait()
	}
	return ctx.Err()
}

// Stats is a point-in-time snapshot of pool counters
type Stats struct {
	Capacity  int  // connections opened at construction
	Idle      int  // connections waiting in the pool
	Leased    int  // connections checked out by callers
	Reclaimed int  // late returns closed during drain
	Draining  bool // pool has been closed
}

// Stats returns current pool statistics
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Capacity:  p.size,
		Idle:      len(p.idle),
		Leased:    p.leased,
		Reclaimed: p.reclaimed,
		Draining:  p.draining,
	}
}
