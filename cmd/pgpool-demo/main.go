// Command pgpool-demo builds a connection pool from configuration and walks
// through its two usage patterns: a scoped acquire-query-release, and a lease
// shared with a consumer that outlives the caller that acquired it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"pgpool/pkg/config"
	"pgpool/pkg/connector"
	"pgpool/pkg/health"
	"pgpool/pkg/logger"
	"pgpool/pkg/pgpool"
)

func main() {
	configPath := flag.String("config", "", "Config file path (optional)")
	dsn := flag.String("dsn", "", "Connection string (overrides config)")
	size := flag.Int("size", 0, "Pool size (overrides config)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}
	if *size > 0 {
		cfg.Pool.Size = *size
	}

	logger.Init(logger.LogLevel(cfg.Logging.Level), cfg.Logging.Format)
	log := logger.Get()
	log.InfoWith("starting pgpool demo", "config", cfg.String())

	conn, err := connector.New(cfg.Database.Driver)
	if err != nil {
		log.ErrorWithErr("failed to select connector", err, "driver", cfg.Database.Driver)
		os.Exit(1)
	}

	// The pool is created once and shared; construction opens every
	// connection up front and may take a moment for large sizes.
	ctx := context.Background()
	pool, err := pgpool.New(ctx, cfg.Database.DSN,
		pgpool.WithSize(cfg.Pool.Size),
		pgpool.WithConnector(conn),
		pgpool.WithAcquireTimeout(time.Duration(cfg.Pool.AcquireTimeoutSeconds)*time.Second),
	)
	if err != nil {
		log.ErrorWithErr("failed to build connection pool", err)
		os.Exit(1)
	}

	monitor := health.NewMonitor()
	monitor.ObservePool("database", pool.Stats())
	log.InfoWith("pool health", "status", monitor.GetHealth().Status)

	if err := simpleSample(ctx, pool); err != nil {
		log.ErrorWithErr("simple sample failed", err)
	}
	if err := sharedSample(ctx, pool); err != nil {
		log.ErrorWithErr("shared sample failed", err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.CloseAndWait(shutdownCtx); err != nil {
		log.ErrorWithErr("shutdown did not drain cleanly", err)
		os.Exit(1)
	}
	log.Info("pool drained, exiting")
}

// simpleSample acquires a connection, runs one query and lets the deferred
// release hand the connection back
func simpleSample(ctx context.Context, pool *pgpool.Pool) error {
	lease, err := pool.Acquire()
	if err != nil {
		return err
	}
	defer lease.Release()

	return queryVersion(ctx, lease)
}

// reporter holds a shared lease beyond the scope that acquired it
type reporter struct {
	lease *pgpool.Lease
}

func (r *reporter) setLease(l *pgpool.Lease) {
	r.lease = l
}

func (r *reporter) report(ctx context.Context) error {
	defer r.lease.Release()
	return queryVersion(ctx, r.lease)
}

// sharedSample shares one lease between two holders; the connection only
// returns to the pool when the second holder finishes
func sharedSample(ctx context.Context, pool *pgpool.Pool) error {
	r := &reporter{}

	{
		lease, err := pool.Acquire()
		if err != nil {
			return err
		}
		r.setLease(lease.Retain())
		lease.Release()
	}

	// The connection is still leased even though the acquiring scope ended
	if !r.lease.Active() {
		return fmt.Errorf("shared lease returned early")
	}
	return r.report(ctx)
}

func queryVersion(ctx context.Context, lease *pgpool.Lease) error {
	pc, ok := lease.Conn().(*connector.PgxConn)
	if !ok {
		// Non-postgres connectors have nothing to demo against
		return nil
	}
	var version string
	if err := pc.Conn().QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		return err
	}
	logger.Get().InfoWith("server version", "version", version)
	return nil
}
