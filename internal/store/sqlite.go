package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/pslang/internal/model"
)

//go:embed schema.sql
var schema string

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore is a Store backed by a SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenSQLite opens or creates the database at path and applies the schema.
// ":memory:" opens a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("store: create directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	// One writer; an in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path, now: time.Now}, nil
}

// Path returns the database location.
func (s *SQLiteStore) Path() string { return s.path }

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, doc Document) (Document, error) {
	doc = prepare(doc, s.now())

	tags, err := json.Marshal(doc.Tags)
	if err != nil {
		return Document{}, fmt.Errorf("store: marshal tags: %w", err)
	}
	var signals sql.NullString
	if doc.Signals != nil {
		b, err := json.Marshal(doc.Signals)
		if err != nil {
			return Document{}, fmt.Errorf("store: marshal signals: %w", err)
		}
		signals = sql.NullString{String: string(b), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, name, content, sha256, tags, signals, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name, content = excluded.content, sha256 = excluded.sha256,
		   tags = excluded.tags, signals = excluded.signals`,
		doc.ID, doc.Name, doc.Content, doc.SHA256, string(tags), signals,
		doc.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return Document{}, fmt.Errorf("store: insert %s: %w", doc.ID, err)
	}
	return doc, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, content, sha256, tags, signals, created_at FROM documents WHERE id = ?`, id)

	var (
		d       Document
		tags    string
		signals sql.NullString
		created string
	)
	if err := row.Scan(&d.ID, &d.Name, &d.Content, &d.SHA256, &tags, &signals, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Document{}, fmt.Errorf("store: get %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(tags), &d.Tags); err != nil {
		return Document{}, fmt.Errorf("store: decode tags of %s: %w", id, err)
	}
	if signals.Valid {
		d.Signals = &model.EstimatedSignals{}
		if err := json.Unmarshal([]byte(signals.String), d.Signals); err != nil {
			return Document{}, fmt.Errorf("store: decode signals of %s: %w", id, err)
		}
	}
	ts, err := time.Parse(timeLayout, created)
	if err != nil {
		return Document{}, fmt.Errorf("store: decode created_at of %s: %w", id, err)
	}
	d.CreatedAt = ts
	return d, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, sha256, length(CAST(content AS BLOB)), tags, created_at
		 FROM documents ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sum     Summary
			tags    string
			created string
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.SHA256, &sum.Size, &tags, &created); err != nil {
			return nil, fmt.Errorf("store: scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &sum.Tags); err != nil {
			return nil, fmt.Errorf("store: decode tags of %s: %w", sum.ID, err)
		}
		if sum.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("store: decode created_at of %s: %w", sum.ID, err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate rows: %w", err)
	}
	return out, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
