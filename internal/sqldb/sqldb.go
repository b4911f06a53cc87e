// Package sqldb opens SQL connections from loaded credentials.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/lox/merdata/internal/config"
)

const (
	DriverSQLServer = "sqlserver"
	DriverSQLite    = "sqlite"

	defaultPingAttempts = 4
)

// DSN returns the driver name and data source name for creds. The driver
// defaults to SQL Server; "sqlite" treats Database as a file path.
func DSN(creds config.Credentials) (string, string, error) {
	switch creds.Driver {
	case "", DriverSQLServer, "mssql", "ODBC Driver 17 for SQL Server":
		if err := creds.Validate(); err != nil {
			return "", "", err
		}
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(creds.User, creds.Password),
			Host:     creds.Host,
			RawQuery: url.Values{"database": {creds.Database}}.Encode(),
		}
		return DriverSQLServer, u.String(), nil
	case DriverSQLite:
		if creds.Database == "" {
			return "", "", fmt.Errorf("%w: db", config.ErrMissingCredentials)
		}
		return DriverSQLite, creds.Database, nil
	default:
		return "", "", fmt.Errorf("sqldb: unsupported driver %q", creds.Driver)
	}
}

// Options tune connection establishment.
type Options struct {
	PingAttempts    uint64
	InitialInterval time.Duration
	Logger          *zap.Logger
}

// Open opens the database described by creds and pings it, retrying with
// exponential backoff until the attempts are exhausted or ctx is done.
func Open(ctx context.Context, creds config.Credentials, opts Options) (*sql.DB, error) {
	driver, dsn, err := DSN(creds)
	if err != nil {
		return nil, err
	}
	if opts.PingAttempts == 0 {
		opts.PingAttempts = defaultPingAttempts
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqldb: open %s: %w", driver, err)
	}

	b := backoff.NewExponentialBackOff()
	if opts.InitialInterval > 0 {
		b.InitialInterval = opts.InitialInterval
	}

	attempt := 0
	operation := func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			opts.Logger.Warn("sqldb: ping failed", zap.Int("attempt", attempt), zap.String("host", creds.Host), zap.Error(err))
			return err
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, opts.PingAttempts-1), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqldb: ping %s after %d attempts: %w", driver, attempt, err)
	}

	opts.Logger.Info("sqldb: connected", zap.String("driver", driver), zap.String("database", creds.Database))
	return db, nil
}
