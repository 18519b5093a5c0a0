package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/brunobiangulo/studyplan/graph"
)

// Store is the SQLite SessionStore.
type Store struct {
	db *sql.DB
}

var _ SessionStore = (*Store)(nil)

// New opens (or creates) a SQLite database at the given path, applies the
// schema and runs pending migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Put inserts or replaces a session record.
func (s *Store) Put(ctx context.Context, sess *Session) error {
	info, err := json.Marshal(sess.ProgramInfo)
	if err != nil {
		return fmt.Errorf("encoding program info: %w", err)
	}
	courses, err := json.Marshal(sess.Courses)
	if err != nil {
		return fmt.Errorf("encoding courses: %w", err)
	}
	g, err := json.Marshal(sess.Graph)
	if err != nil {
		return fmt.Errorf("encoding graph: %w", err)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (id, filename, format, method, program_info, courses, graph, csv, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				filename = excluded.filename,
				format = excluded.format,
				method = excluded.method,
				program_info = excluded.program_info,
				courses = excluded.courses,
				graph = excluded.graph,
				csv = excluded.csv,
				created_at = excluded.created_at
		`, sess.ID, sess.Filename, sess.Format, sess.Method,
			string(info), string(courses), string(g), sess.CSV,
			sess.CreatedAt.UnixMilli())
		return err
	})
}

// Get retrieves a session by id.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	var (
		sess                 Session
		info, courses, gJSON string
		created              int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, filename, format, method, program_info, courses, graph, csv, created_at
		FROM sessions WHERE id = ?
	`, id).Scan(&sess.ID, &sess.Filename, &sess.Format, &sess.Method,
		&info, &courses, &gJSON, &sess.CSV, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(info), &sess.ProgramInfo); err != nil {
		return nil, fmt.Errorf("decoding program info: %w", err)
	}
	if err := json.Unmarshal([]byte(courses), &sess.Courses); err != nil {
		return nil, fmt.Errorf("decoding courses: %w", err)
	}
	var g graph.StudyPlanGraph
	if err := json.Unmarshal([]byte(gJSON), &g); err != nil {
		return nil, fmt.Errorf("decoding graph: %w", err)
	}
	if g.Nodes != nil || g.Edges != nil {
		sess.Graph = &g
	}
	sess.CreatedAt = time.UnixMilli(created)
	return &sess, nil
}

// Delete removes a session.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Sweep deletes every session created before the cutoff.
func (s *Store) Sweep(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE created_at < ?", before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("sweeping sessions: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Count returns the number of stored sessions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&n)
	return n, err
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
