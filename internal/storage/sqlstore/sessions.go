package sqlstore

import (
	"context"
	"time"

	"audio-interviewer/internal/errors"
	"audio-interviewer/internal/storage"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// sessionRow is the column layout of interview_sessions.
type sessionRow struct {
	ID             string    `db:"id"`
	Email          string    `db:"email"`
	JobDescription string    `db:"job_description"`
	Questions      string    `db:"questions"`
	Answers        string    `db:"answers"`
	CurrentIndex   int       `db:"current_index"`
	Version        int64     `db:"version"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (row sessionRow) toSession() (*storage.Session, error) {
	questions, err := decodeJSON[storage.Question](row.Questions)
	if err != nil {
		return nil, err
	}
	answers, err := decodeJSON[storage.Answer](row.Answers)
	if err != nil {
		return nil, err
	}
	return &storage.Session{
		ID:             row.ID,
		Email:          row.Email,
		JobDescription: row.JobDescription,
		Questions:      questions,
		Answers:        answers,
		CurrentIndex:   row.CurrentIndex,
		Version:        row.Version,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}, nil
}

// SessionRepository implements storage.SessionRepository for SQL databases
type SessionRepository struct {
	db *sqlx.DB
}

// Insert stores a new session with version 1
func (r *SessionRepository) Insert(ctx context.Context, session *storage.Session) error {
	questions, err := encodeJSON(session.Questions)
	if err != nil {
		return err
	}
	answers, err := encodeJSON(session.Answers)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	id := uuid.NewString()
	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO interview_sessions (id, email, job_description, questions, answers, current_index, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
	`), id, session.Email, session.JobDescription, questions, answers, session.CurrentIndex, now, now)
	if err != nil {
		return errors.DatabaseError("failed to insert session", err)
	}

	session.ID = id
	session.Version = 1
	session.CreatedAt = now
	session.UpdatedAt = now
	return nil
}

// FindByID loads a session document
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*storage.Session, error) {
	if !validID(id) {
		return nil, storage.ErrNotFound
	}

	var row sessionRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT id, email, job_description, questions, answers, current_index, version, created_at, updated_at
		FROM interview_sessions
		WHERE id = ?
	`), id)
	if isNoRows(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load session", err)
	}
	return row.toSession()
}

// Replace rewrites the whole document guarded by the version column
func (r *SessionRepository) Replace(ctx context.Context, session *storage.Session) error {
	questions, err := encodeJSON(session.Questions)
	if err != nil {
		return err
	}
	answers, err := encodeJSON(session.Answers)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE interview_sessions
		SET questions = ?, answers = ?, current_index = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`), questions, answers, session.CurrentIndex, now, session.ID, session.Version)
	if err != nil {
		return errors.DatabaseError("failed to replace session", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.DatabaseError("failed to read affected rows", err)
	}
	if affected == 0 {
		var exists int
		err := r.db.GetContext(ctx, &exists, r.db.Rebind(`SELECT COUNT(1) FROM interview_sessions WHERE id = ?`), session.ID)
		if err != nil {
			return errors.DatabaseError("failed to check session", err)
		}
		if exists == 0 {
			return storage.ErrNotFound
		}
		return storage.ErrConflict
	}

	session.Version++
	session.UpdatedAt = now
	return nil
}
