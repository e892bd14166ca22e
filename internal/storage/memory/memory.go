// Package memory provides an in-process Store used for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"audio-interviewer/internal/storage"

	"github.com/google/uuid"
)

// Store keeps sessions, reports and blobs in maps guarded by one mutex.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*storage.Session
	reports  map[string]*storage.Report
	blobs    map[string][]byte
	now      func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		sessions: make(map[string]*storage.Session),
		reports:  make(map[string]*storage.Report),
		blobs:    make(map[string][]byte),
		now:      time.Now,
	}
}

func (s *Store) Sessions() storage.SessionRepository { return sessionRepo{s} }
func (s *Store) Reports() storage.ReportRepository   { return reportRepo{s} }
func (s *Store) Blobs() storage.BlobStore            { return blobRepo{s} }

func (s *Store) Ping(ctx context.Context) error  { return ctx.Err() }
func (s *Store) Close(ctx context.Context) error { return nil }

// validID mirrors the identifier format of the SQL store.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type sessionRepo struct{ s *Store }

func (r sessionRepo) Insert(ctx context.Context, session *storage.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now().UTC()
	session.ID = uuid.NewString()
	session.Version = 1
	session.CreatedAt = now
	session.UpdatedAt = now
	r.s.sessions[session.ID] = session.Clone()
	return nil
}

func (r sessionRepo) FindByID(ctx context.Context, id string) (*storage.Session, error) {
	if !validID(id) {
		return nil, storage.ErrNotFound
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stored, ok := r.s.sessions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return stored.Clone(), nil
}

func (r sessionRepo) Replace(ctx context.Context, session *storage.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.sessions[session.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if stored.Version != session.Version {
		return storage.ErrConflict
	}
	session.Version++
	session.UpdatedAt = r.s.now().UTC()
	r.s.sessions[session.ID] = session.Clone()
	return nil
}

type reportRepo struct{ s *Store }

func (r reportRepo) Insert(ctx context.Context, report *storage.Report) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.reports {
		if report.SessionID != "" && existing.SessionID == report.SessionID {
			return storage.ErrConflict
		}
	}
	report.ID = uuid.NewString()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = r.s.now().UTC()
	}
	r.s.reports[report.ID] = report.Clone()
	return nil
}

func (r reportRepo) Replace(ctx context.Context, report *storage.Report) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.reports[report.ID]; !ok {
		return storage.ErrNotFound
	}
	r.s.reports[report.ID] = report.Clone()
	return nil
}

func (r reportRepo) FindByID(ctx context.Context, id string) (*storage.Report, error) {
	if !validID(id) {
		return nil, storage.ErrNotFound
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stored, ok := r.s.reports[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return stored.Clone(), nil
}

func (r reportRepo) FindByEmail(ctx context.Context, email string) ([]storage.Report, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	reports := []storage.Report{}
	for _, stored := range r.s.reports {
		if stored.Email == email {
			reports = append(reports, *stored.Clone())
		}
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.Before(reports[j].CreatedAt)
	})
	return reports, nil
}

func (r reportRepo) FindBySession(ctx context.Context, sessionID string) (*storage.Report, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, stored := range r.s.reports {
		if stored.SessionID == sessionID {
			return stored.Clone(), nil
		}
	}
	return nil, storage.ErrNotFound
}

type blobRepo struct{ s *Store }

func (r blobRepo) Upload(ctx context.Context, name string, data []byte) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id := uuid.NewString()
	r.s.blobs[id] = append([]byte(nil), data...)
	return id, nil
}

func (r blobRepo) Download(ctx context.Context, id string) ([]byte, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	data, ok := r.s.blobs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (r blobRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.blobs[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.s.blobs, id)
	return nil
}
