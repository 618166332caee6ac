package connector

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// SQLConnector opens connections through database/sql for any registered
// driver. MySQL and SQLite drivers are linked in.
type SQLConnector struct {
	Driver string
}

// Connect opens a dedicated single-connection handle. database/sql pools
// internally, so each handle is pinned to exactly one underlying connection
// to keep the one-handle-one-connection contract.
func (c SQLConnector) Connect(ctx context.Context, connString string) (Conn, error) {
	db, err := sql.Open(c.Driver, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", c.Driver, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", c.Driver, err)
	}
	return &SQLConn{db: db}, nil
}

// SQLConn wraps a single-connection database/sql handle
type SQLConn struct {
	db *sql.DB
}

// DB returns the underlying handle for query execution
func (c *SQLConn) DB() *sql.DB {
	return c.db
}

// Close terminates the connection
func (c *SQLConn) Close(ctx context.Context) error {
	return c.db.Close()
}
