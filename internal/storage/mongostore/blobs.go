package mongostore

import (
	"bytes"
	"context"
	"time"

	"audio-interviewer/internal/errors"
	"audio-interviewer/internal/storage"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BlobRepository stores audio files in a GridFS bucket. Buckets carry
// per-instance deadlines, so every call opens its own.
type BlobRepository struct {
	db *mongo.Database
}

func (r *BlobRepository) openBucket() (*gridfs.Bucket, error) {
	bucket, err := gridfs.NewBucket(r.db, options.GridFSBucket().SetName(audioBucket))
	if err != nil {
		return nil, errors.DatabaseError("failed to open gridfs bucket", err)
	}
	return bucket, nil
}

func (r *BlobRepository) Upload(ctx context.Context, name string, data []byte) (string, error) {
	bucket, err := r.openBucket()
	if err != nil {
		return "", err
	}
	if err := bucket.SetWriteDeadline(deadline(ctx)); err != nil {
		return "", errors.DatabaseError("failed to set gridfs deadline", err)
	}
	id, err := bucket.UploadFromStream(name, bytes.NewReader(data))
	if err != nil {
		return "", errors.DatabaseError("failed to upload audio", err)
	}
	return id.Hex(), nil
}

func (r *BlobRepository) Download(ctx context.Context, id string) ([]byte, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	bucket, err := r.openBucket()
	if err != nil {
		return nil, err
	}
	if err := bucket.SetReadDeadline(deadline(ctx)); err != nil {
		return nil, errors.DatabaseError("failed to set gridfs deadline", err)
	}

	var buf bytes.Buffer
	_, err = bucket.DownloadToStream(oid, &buf)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to download audio", err)
	}
	return buf.Bytes(), nil
}

func (r *BlobRepository) Delete(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return storage.ErrNotFound
	}
	bucket, err := r.openBucket()
	if err != nil {
		return err
	}
	err = bucket.DeleteContext(ctx, oid)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return storage.ErrNotFound
	}
	if err != nil {
		return errors.DatabaseError("failed to delete audio", err)
	}
	return nil
}

// deadline returns the context deadline or the zero time, which clears it.
func deadline(ctx context.Context) time.Time {
	d, _ := ctx.Deadline()
	return d
}
