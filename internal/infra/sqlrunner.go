package infra

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLExecutor is the query surface shared by the pool-backed runner and test stubs.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

var markerRegexp = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ErrMissingMarker is returned for inline SQL without a `--sql <uuid>` first line.
var ErrMissingMarker = errors.New("sql marker missing or invalid")

// SQLRunner executes marked inline queries and logs each one by its marker.
type SQLRunner struct {
	pool   *pgxpool.Pool
	logger *Logger
}

func NewSQLRunner(pool *pgxpool.Pool, logger *Logger) *SQLRunner {
	return &SQLRunner{pool: pool, logger: LoggerOrDiscard(logger)}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	start := time.Now()
	tag, err := r.pool.Exec(ctx, trimmed, args...)
	if err != nil {
		r.logger.Error().Err(err).Str("sql", marker).Msg("sql: exec failed")
		return tag, err
	}
	r.logger.Debug().Str("sql", marker).Int64("rows", tag.RowsAffected()).Dur("took", time.Since(start)).Msg("sql: exec")
	return tag, nil
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		return errorRow{err: err}
	}
	r.logger.Debug().Str("sql", marker).Msg("sql: query_row")
	return loggingRow{row: r.pool.QueryRow(ctx, trimmed, args...), logger: r.logger, marker: marker}
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		return nil, err
	}
	r.logger.Debug().Str("sql", marker).Msg("sql: query")
	rows, err := r.pool.Query(ctx, trimmed, args...)
	if err != nil {
		r.logger.Error().Err(err).Str("sql", marker).Msg("sql: query failed")
		return nil, err
	}
	return rows, nil
}

type loggingRow struct {
	row    pgx.Row
	logger *Logger
	marker string
}

func (l loggingRow) Scan(dest ...any) error {
	err := l.row.Scan(dest...)
	// An empty claim is the normal idle case for workers.
	if err != nil && !IsNoRows(err) {
		l.logger.Error().Err(err).Str("sql", l.marker).Msg("sql: scan failed")
	}
	return err
}

type errorRow struct {
	err error
}

func (e errorRow) Scan(dest ...any) error {
	return e.err
}

func extractMarker(query string) (string, string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", "", errors.New("empty query")
	}
	markerLine, body, _ := strings.Cut(trimmed, "\n")
	markerLine = strings.TrimSpace(markerLine)
	if !markerRegexp.MatchString(markerLine) {
		return "", "", ErrMissingMarker
	}
	return strings.TrimPrefix(markerLine, "--sql "), body, nil
}

var _ SQLExecutor = (*SQLRunner)(nil)
