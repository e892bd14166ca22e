// Package sqlstore implements the storage interfaces on PostgreSQL or SQLite via sqlx.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"

	"audio-interviewer/internal/errors"
	"audio-interviewer/internal/storage"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Store implements storage.Store on a SQL database.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, errors.ConfigInvalid("unsupported SQL driver: " + driver)
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	if driver == DriverSQLite {
		// One connection keeps ":memory:" databases shared and serializes writers.
		db.SetMaxOpenConns(1)
	}
	return New(db), nil
}

// New wraps an existing connection.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, driver: db.DriverName()}
}

func (s *Store) Sessions() storage.SessionRepository { return &SessionRepository{db: s.db} }
func (s *Store) Reports() storage.ReportRepository   { return &ReportRepository{db: s.db} }
func (s *Store) Blobs() storage.BlobStore            { return &BlobRepository{db: s.db} }

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	return NewRunner(s.driver).Run(ctx, s.db)
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.DatabaseError("database ping failed", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Close()
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode column")
	}
	return string(data), nil
}

func decodeJSON[T any](raw string) ([]T, error) {
	out := []T{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, errors.Wrap(err, "failed to decode column")
	}
	return out, nil
}
