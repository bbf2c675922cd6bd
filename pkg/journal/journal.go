// Package journal keeps an append-only SQLite audit log of model switch requests.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docker/model-switcher/pkg/sqliteutil"
)

// timeLayout is fixed width so that created_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DefaultLimit bounds Recent when the caller passes a non-positive limit.
const DefaultLimit = 20

// Entry is the terminal state of one switch request.
type Entry struct {
	ID        string
	Operation string
	Requested string
	Previous  string
	Active    string
	Outcome   string
	Source    string
	Error     string
	CreatedAt time.Time
}

type Journal struct {
	db *sql.DB
}

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "001_create_switches",
		sql: `CREATE TABLE IF NOT EXISTS switches (
			id TEXT PRIMARY KEY,
			operation TEXT NOT NULL,
			requested TEXT,
			previous TEXT,
			active TEXT,
			outcome TEXT NOT NULL,
			source TEXT,
			error TEXT,
			created_at TEXT NOT NULL
		)`,
	},
	{
		name: "002_index_switches_created_at",
		sql:  `CREATE INDEX IF NOT EXISTS idx_switches_created_at ON switches (created_at)`,
	},
}

// Open opens the journal at path and applies pending migrations.
func Open(ctx context.Context, path string) (*Journal, error) {
	db, err := sqliteutil.Open(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}

	return &Journal{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS migrations (
		name TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return err
	}

	for _, m := range migrations {
		var count int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations WHERE name = ?", m.name).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO migrations (name, applied_at) VALUES (?, ?)", m.name, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// Record appends e. A missing ID or timestamp is filled in.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO switches (id, operation, requested, previous, active, outcome, source, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.Operation,
		nullIfEmpty(e.Requested),
		nullIfEmpty(e.Previous),
		nullIfEmpty(e.Active),
		e.Outcome,
		nullIfEmpty(e.Source),
		nullIfEmpty(e.Error),
		e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record switch: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, operation, requested, previous, active, outcome, source, error, created_at
		 FROM switches ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                                     Entry
			requested, previous, active, src, msg sql.NullString
			createdAt                             string
		)
		if err := rows.Scan(&e.ID, &e.Operation, &requested, &previous, &active, &e.Outcome, &src, &msg, &createdAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		e.Requested = requested.String
		e.Previous = previous.String
		e.Active = active.String
		e.Source = src.String
		e.Error = msg.String
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse journal timestamp %q: %w", createdAt, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
