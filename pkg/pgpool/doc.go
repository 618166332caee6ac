// Package pgpool provides a bounded pool of reusable database connections
// with blocking acquisition and automatic return.
//
// The pool opens a fixed number of connections eagerly at construction and
// lends them to callers one at a time. Acquire blocks while the pool is
// empty and wakes when a connection is returned or the pool shuts down; no
// connection is ever created or destroyed between construction and shutdown,
// so idle plus leased always equals the configured size.
//
// Usage:
//
//	pool, err := pgpool.New(ctx, "host=localhost dbname=my_db", pgpool.WithSize(10))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pool.Close()
//
//	lease, err := pool.Acquire()
//	if err != nil {
//		return err
//	}
//	defer lease.Release()
//	conn := lease.Conn().(*connector.PgxConn).Conn()
//	// run queries with conn
//
// A lease may be shared: Retain hands a co-owner reference to another holder
// and the connection only returns to the pool when the last holder releases.
// Shutdown wakes every blocked acquirer with ErrPoolShuttingDown, closes all
// idle connections, and closes checked-out connections as their leases are
// released.
package pgpool
