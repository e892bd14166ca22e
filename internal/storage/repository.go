package storage

import (
	"context"

	"audio-interviewer/internal/errors"
)

var (
	// ErrNotFound is returned by every store when the requested record is absent
	// or its id is not in the store's identifier format.
	ErrNotFound = errors.New(errors.CodeNotFound, "record not found")
	// ErrConflict is returned when a conditional write loses a race.
	ErrConflict = errors.New(errors.CodeConflict, "record was modified concurrently")
)

// SessionRepository persists whole session documents.
type SessionRepository interface {
	// Insert assigns ID and Version (1) and stores the session.
	Insert(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, id string) (*Session, error)
	// Replace writes the session only if the stored Version still equals
	// session.Version, then bumps session.Version. Otherwise ErrConflict.
	Replace(ctx context.Context, session *Session) error
}

// ReportRepository persists evaluation reports.
type ReportRepository interface {
	// Insert assigns ID. A second report for the same session yields ErrConflict.
	Insert(ctx context.Context, report *Report) error
	Replace(ctx context.Context, report *Report) error
	FindByID(ctx context.Context, id string) (*Report, error)
	FindByEmail(ctx context.Context, email string) ([]Report, error)
	FindBySession(ctx context.Context, sessionID string) (*Report, error)
}

// BlobStore keeps raw audio bytes under opaque ids.
type BlobStore interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
	Download(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

// Store bundles the repositories a backend provides.
type Store interface {
	Sessions() SessionRepository
	Reports() ReportRepository
	Blobs() BlobStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
