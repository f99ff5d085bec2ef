// Package sqlexec executes SQL scripts directly over a pgx connection pool.
// It is the --direct alternative to the management API: DDL that the REST
// layer refuses still runs here, and the result is shaped like the API's
// response (an array of row objects) so the dispatcher can print either.
package sqlexec

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"sqldispatch/cli/internal/logging"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Executor executes SQL scripts using a connection pool.
type Executor struct {
	// Pool is the PostgreSQL connection pool
	Pool *pgxpool.Pool
}

// New creates an Executor from an existing pgx pool.
func New(pool *pgxpool.Pool) *Executor {
	return &Executor{Pool: pool}
}

// Connect opens a pool for dsn and verifies it with a ping bounded by timeout.
// A zero timeout leaves the ping bounded only by ctx.
func Connect(ctx context.Context, dsn string, timeout time.Duration) (*Executor, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %s", logging.Mask(err.Error()))
	}
	cfg.MaxConns = 1

	pingCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return New(pool), nil
}

// Close releases the pool.
func (e *Executor) Close() {
	if e.Pool != nil {
		e.Pool.Close()
	}
}

// QueryError carries an error raised by the server while executing the script.
type QueryError struct {
	Err *pgconn.PgError
}

func (e *QueryError) Error() string {
	msg := fmt.Sprintf("%s (SQLSTATE %s)", e.Err.Message, e.Err.Code)
	if e.Err.Position > 0 {
		msg += fmt.Sprintf(" at character %d", e.Err.Position)
	}
	if e.Err.Detail != "" {
		msg += ": " + e.Err.Detail
	}
	return msg
}

func (e *QueryError) Unwrap() error { return e.Err }

// QueryFailed marks the error as raised by the database itself.
func (e *QueryError) QueryFailed() bool { return true }

// RunQuery runs the whole script with the simple query protocol, so multiple
// statements execute as one implicit transaction. The rows of the last
// row-returning statement are returned as a JSON array of objects.
func (e *Executor) RunQuery(ctx context.Context, sql string) (json.RawMessage, error) {
	conn, err := e.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	results, err := conn.Conn().PgConn().Exec(ctx, sql).ReadAll()
	if err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) {
			return nil, &QueryError{Err: pgErr}
		}
		return nil, err
	}

	for _, r := range results {
		logging.Debugf("statement: %s", r.CommandTag.String())
	}
	return json.Marshal(lastRows(results))
}

// lastRows converts the last result that has columns into row objects.
// Values are the server's text representation; NULL becomes nil.
func lastRows(results []*pgconn.Result) []map[string]any {
	rows := []map[string]any{}
	for i := len(results) - 1; i >= 0; i-- {
		r := results[i]
		if len(r.FieldDescriptions) == 0 {
			continue
		}
		for _, raw := range r.Rows {
			row := make(map[string]any, len(r.FieldDescriptions))
			for j, fd := range r.FieldDescriptions {
				if j >= len(raw) || raw[j] == nil {
					row[fd.Name] = nil
					continue
				}
				row[fd.Name] = string(raw[j])
			}
			rows = append(rows, row)
		}
		break
	}
	return rows
}

// Lazy is a runner that opens its pool on the first query, so no connection
// is attempted before the script has been read.
type Lazy struct {
	DSN     string
	Timeout time.Duration

	exec *Executor
}

// RunQuery connects if needed and runs sql. A non-zero Timeout bounds the
// connection and the query together.
func (l *Lazy) RunQuery(ctx context.Context, sql string) (json.RawMessage, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	if l.exec == nil {
		e, err := Connect(ctx, l.DSN, l.Timeout)
		if err != nil {
			return nil, err
		}
		l.exec = e
	}
	return l.exec.RunQuery(ctx, sql)
}

// Close releases the pool if one was opened.
func (l *Lazy) Close() {
	if l.exec != nil {
		l.exec.Close()
	}
}
