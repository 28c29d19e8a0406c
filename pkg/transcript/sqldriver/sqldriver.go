// Package sqldriver implements transcript.Driver over database/sql. The
// sqlite and postgres packages open the connection and supply a Dialect.
package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/agentchat/pkg/transcript"
)

// Dialect carries the differences between SQL backends.
type Dialect struct {
	Name string

	// NumberedParams rewrites "?" placeholders to "$1", "$2", ...
	NumberedParams bool

	// Schema is executed in order when the driver is created.
	Schema []string
}

// created_at is stored as Unix nanoseconds so aggregates keep a comparable
// type on every backend.
const columns = `id, thread_id, run_id, agent, prompt, response, streamed, failed, error, duration_ns, created_at`

// Driver implements transcript.Driver on a *sql.DB.
type Driver struct {
	DB      *sql.DB
	dialect Dialect
}

// New applies the dialect's schema and returns a Driver that owns db.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Driver, error) {
	for _, stmt := range dialect.Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &Driver{DB: db, dialect: dialect}, nil
}

func (d *Driver) Put(ctx context.Context, ex *transcript.Exchange) error {
	if ex == nil {
		return errors.New("cannot store nil exchange")
	}
	ex.EnsureID()

	_, err := d.DB.ExecContext(ctx, d.rebind(
		`INSERT INTO exchanges (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		ex.ID, ex.ThreadID, ex.RunID, ex.Agent, ex.Prompt, ex.Response,
		ex.Streamed, ex.Failed, ex.Error, int64(ex.Duration), ex.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting exchange %s: %w", ex.ID, err)
	}
	return nil
}

func (d *Driver) Get(ctx context.Context, id string) (*transcript.Exchange, error) {
	row := d.DB.QueryRowContext(ctx, d.rebind(`SELECT `+columns+` FROM exchanges WHERE id = ?`), id)

	ex, err := scanExchange(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, transcript.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("reading exchange %s: %w", id, err)
	}
	return ex, nil
}

func (d *Driver) List(ctx context.Context, limit int) ([]*transcript.Exchange, error) {
	query := `SELECT ` + columns + ` FROM exchanges ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return d.query(ctx, query, args...)
}

func (d *Driver) ListByThread(ctx context.Context, threadID string) ([]*transcript.Exchange, error) {
	return d.query(ctx, `SELECT `+columns+` FROM exchanges WHERE thread_id = ? ORDER BY created_at ASC`, threadID)
}

func (d *Driver) Threads(ctx context.Context) ([]transcript.ThreadSummary, error) {
	rows, err := d.DB.QueryContext(ctx,
		`SELECT thread_id, COUNT(*), MAX(created_at) AS last_at FROM exchanges GROUP BY thread_id ORDER BY last_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing threads: %w", err)
	}
	defer rows.Close()

	var result []transcript.ThreadSummary
	for rows.Next() {
		var (
			sum    transcript.ThreadSummary
			lastAt int64
		)
		if err := rows.Scan(&sum.ThreadID, &sum.Exchanges, &lastAt); err != nil {
			return nil, fmt.Errorf("scanning thread: %w", err)
		}
		sum.LastAt = time.Unix(0, lastAt).UTC()
		result = append(result, sum)
	}
	return result, rows.Err()
}

func (d *Driver) Close() error {
	return d.DB.Close()
}

func (d *Driver) query(ctx context.Context, query string, args ...any) ([]*transcript.Exchange, error) {
	rows, err := d.DB.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("listing exchanges: %w", err)
	}
	defer rows.Close()

	result := []*transcript.Exchange{}
	for rows.Next() {
		ex, err := scanExchange(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning exchange: %w", err)
		}
		result = append(result, ex)
	}
	return result, rows.Err()
}

// rebind rewrites "?" placeholders for dialects with numbered parameters.
// Queries never contain a literal "?".
func (d *Driver) rebind(query string) string {
	if !d.dialect.NumberedParams {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExchange(s scanner) (*transcript.Exchange, error) {
	var (
		ex         transcript.Exchange
		durationNS int64
		createdAt  int64
	)
	err := s.Scan(
		&ex.ID, &ex.ThreadID, &ex.RunID, &ex.Agent, &ex.Prompt, &ex.Response,
		&ex.Streamed, &ex.Failed, &ex.Error, &durationNS, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	ex.Duration = time.Duration(durationNS)
	ex.CreatedAt = time.Unix(0, createdAt).UTC()
	return &ex, nil
}
