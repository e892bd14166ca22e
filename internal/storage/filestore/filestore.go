// Package filestore keeps audio blobs as files in a local directory.
package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"audio-interviewer/internal/errors"
	"audio-interviewer/internal/storage"

	"github.com/google/uuid"
)

// blobMeta is written next to every blob.
type blobMeta struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store implements storage.BlobStore on the filesystem.
type Store struct {
	dir string
}

// New creates the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create directory %s", dir)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) dataPath(id string) string { return filepath.Join(s.dir, id+".bin") }
func (s *Store) metaPath(id string) string { return filepath.Join(s.dir, id+".json") }

// Upload writes data and its metadata, returning the new blob id
func (s *Store) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()

	if err := os.WriteFile(s.dataPath(id), data, 0644); err != nil {
		return "", errors.Wrapf(err, "failed to write audio file %s", id)
	}

	meta, err := json.MarshalIndent(blobMeta{ID: id, Name: name, Size: len(data), CreatedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to encode audio metadata")
	}
	if err := os.WriteFile(s.metaPath(id), meta, 0644); err != nil {
		_ = os.Remove(s.dataPath(id))
		return "", errors.Wrapf(err, "failed to write audio metadata %s", id)
	}
	return id, nil
}

// Download reads a blob back
func (s *Store) Download(ctx context.Context, id string) ([]byte, error) {
	if !validID(id) {
		return nil, storage.ErrNotFound
	}
	data, err := os.ReadFile(s.dataPath(id))
	if os.IsNotExist(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read audio file %s", id)
	}
	return data, nil
}

// Delete removes the blob and its metadata
func (s *Store) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return storage.ErrNotFound
	}
	err := os.Remove(s.dataPath(id))
	if os.IsNotExist(err) {
		return storage.ErrNotFound
	}
	if err != nil {
		return errors.Wrapf(err, "failed to delete audio file %s", id)
	}
	_ = os.Remove(s.metaPath(id))
	return nil
}

// validID also keeps ids from escaping the directory.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
