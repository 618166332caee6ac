package connector

import (
	"context"

	errs "pgpool/pkg/errors"
)

// Conn is a single live database connection owned by the pool or lent to a
// caller. Implementations expose their underlying client object through a
// concrete accessor (see PgxConn.Conn and SQLConn.DB).
type Conn interface {
	// Close terminates the connection. Called by the pool during drain or
	// when a lease is returned after shutdown.
	Close(ctx context.Context) error
}

// Connector opens connections on behalf of the pool. The connection string
// is passed through verbatim in whatever syntax the backend accepts.
type Connector interface {
	Connect(ctx context.Context, connString string) (Conn, error)
}

// New returns a Connector for the given driver name
func New(driver string) (Connector, error) {
	switch driver {
	case "postgres", "pgx", "":
		return PostgresConnector{}, nil
	case "mysql", "sqlite3":
		return SQLConnector{Driver: driver}, nil
	default:
		return nil, errs.ErrUnsupportedDriver
	}
}
