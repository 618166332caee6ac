package connector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// PostgresConnector opens PostgreSQL connections using pgx
type PostgresConnector struct{}

// Connect opens a single PostgreSQL connection
func (PostgresConnector) Connect(ctx context.Context, connString string) (Conn, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &PgxConn{conn: conn}, nil
}

// PgxConn wraps a live pgx connection
type PgxConn struct {
	conn *pgx.Conn
}

// Conn returns the underlying pgx connection for query execution
func (c *PgxConn) Conn() *pgx.Conn {
	return c.conn
}

// Close terminates the connection
func (c *PgxConn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}
