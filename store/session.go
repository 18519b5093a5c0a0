// Package store keeps parse sessions: the result of one uploaded document,
// addressable by id until it expires. Three backends implement
// SessionStore: SQLite (the default), Badger and an in-process map.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/brunobiangulo/studyplan/graph"
	"github.com/brunobiangulo/studyplan/plan"
)

var (
	// ErrNotFound is returned when a session id is unknown or expired.
	ErrNotFound = errors.New("store: session not found")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store: closed")
)

// Session is one parse result.
type Session struct {
	ID          string                `json:"session_id"`
	Filename    string                `json:"filename"`
	Format      string                `json:"format"`
	Method      string                `json:"method"`
	ProgramInfo plan.ProgramInfo      `json:"program_info"`
	Courses     []plan.Course         `json:"courses"`
	Graph       *graph.StudyPlanGraph `json:"graph"`
	CSV         string                `json:"-"`
	CreatedAt   time.Time             `json:"created_at"`
}

// SessionStore persists sessions.
type SessionStore interface {
	// Put inserts or replaces a session.
	Put(ctx context.Context, s *Session) error
	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (*Session, error)
	// Delete returns ErrNotFound for unknown ids.
	Delete(ctx context.Context, id string) error
	// Sweep removes sessions created before the cutoff and reports how many
	// were removed.
	Sweep(ctx context.Context, before time.Time) (int, error)
	// Count returns the number of live sessions.
	Count(ctx context.Context) (int, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Open creates the SessionStore for backend. path is the SQLite file or
// the Badger directory and is ignored for the memory backend. ttl is
// handed to backends that expire entries natively.
func Open(backend, path string, ttl time.Duration) (SessionStore, error) {
	switch backend {
	case BackendSQLite, "":
		return New(path)
	case BackendBadger:
		return NewBadger(path, ttl)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, errors.New("store: unknown backend " + backend)
	}
}
