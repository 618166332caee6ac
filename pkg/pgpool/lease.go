package pgpool

import (
	"sync/atomic"

	"pgpool/pkg/connector"
	errs "pgpool/pkg/errors"
)

// Lease is a shared-ownership wrapper around one checked-out connection.
// The holder that obtained it from Acquire owns one reference; Retain adds a
// reference for each co-owner the lease is handed to. The connection goes
// back to the pool exactly once, when the last reference is released — not
// when the first holder is done with it.
//
// A Lease is never shared between two independent checkouts: at most one
// lease chain wraps a given connection at a time.
type Lease struct {
	pool *Pool
	conn connector.Conn
	refs atomic.Int32
}

// Conn returns the leased connection. Callers reach the client library by
// asserting the concrete type, e.g. l.Conn().(*connector.PgxConn).Conn().
func (l *Lease) Conn() connector.Conn {
	return l.conn
}

// Retain adds a co-owner reference and returns the same lease, so a lease
// can be handed off in one expression:
//
//	consumer.SetConn(lease.Retain())
//
// Every Retain must be matched by exactly one Release.
func (l *Lease) Retain() *Lease {
	l.refs.Add(1)
	return l
}

// Release drops one reference. When the last reference is dropped the
// connection returns to the pool (or is closed, if the pool has shut down)
// and one blocked acquirer is woken. Releasing more times than retained
// returns ErrLeaseReleased.
func (l *Lease) Release() error {
	n := l.refs.Add(-1)
	if n < 0 {
		l.refs.Add(1)
		return errs.ErrLeaseReleased
	}
	if n == 0 {
		l.pool.put(l.conn)
	}
	return nil
}

// Active reports whether the lease still holds the connection
func (l *Lease) Active() bool {
	return l.refs.Load() > 0
}
