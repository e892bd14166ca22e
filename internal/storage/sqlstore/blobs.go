package sqlstore

import (
	"context"
	"time"

	"audio-interviewer/internal/errors"
	"audio-interviewer/internal/storage"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// BlobRepository stores audio in the audio_blobs table
type BlobRepository struct {
	db *sqlx.DB
}

func (r *BlobRepository) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if data == nil {
		// a nil slice binds as NULL
		data = []byte{}
	}
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO audio_blobs (id, name, size, data, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), id, name, len(data), data, time.Now().UTC())
	if err != nil {
		return "", errors.DatabaseError("failed to store audio", err)
	}
	return id, nil
}

func (r *BlobRepository) Download(ctx context.Context, id string) ([]byte, error) {
	if !validID(id) {
		return nil, storage.ErrNotFound
	}
	var data []byte
	err := r.db.GetContext(ctx, &data, r.db.Rebind(`SELECT data FROM audio_blobs WHERE id = ?`), id)
	if isNoRows(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load audio", err)
	}
	return data, nil
}

func (r *BlobRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return storage.ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM audio_blobs WHERE id = ?`), id)
	if err != nil {
		return errors.DatabaseError("failed to delete audio", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
