// Package connector abstracts the database client used by the pool.
//
// The pool only needs two capabilities from a database client: open a
// connection given a connection string, and close it again. Connector
// captures that boundary so the pool never depends on a specific client
// library. The primary implementation uses pgx for PostgreSQL; a
// database/sql implementation covers MySQL and SQLite.
//
// Usage:
//
//	c, err := connector.New("postgres")
//	if err != nil {
//		log.Fatal(err)
//	}
//	conn, err := c.Connect(ctx, "host=localhost dbname=my_db")
//
// Query and transaction APIs stay entirely on the caller's side; once a
// connection is leased, callers type-assert to the concrete Conn to reach
// the client library underneath.
package connector
