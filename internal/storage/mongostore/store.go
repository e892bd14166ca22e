// Package mongostore implements the storage interfaces on MongoDB, keeping
// audio in GridFS.
package mongostore

import (
	"context"

	"audio-interviewer/internal/errors"
	"audio-interviewer/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	sessionsCollection = "interview_sessions"
	reportsCollection  = "interview_reports"
	audioBucket        = "audio"
)

// Store implements storage.Store on a MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects, pings and prepares indexes.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to mongodb", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.DatabaseError("mongodb ping failed", err)
	}

	st := &Store{client: client, db: client.Database(database)}
	if err := st.Migrate(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return st, nil
}

// Migrate creates the indexes the repositories rely on.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.Collection(reportsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "email", Value: 1}, {Key: "created_at", Value: 1}}},
	})
	if err != nil {
		return errors.DatabaseError("failed to create report indexes", err)
	}
	_, err = s.db.Collection(sessionsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
	})
	if err != nil {
		return errors.DatabaseError("failed to create session indexes", err)
	}
	return nil
}

func (s *Store) Sessions() storage.SessionRepository {
	return &SessionRepository{coll: s.db.Collection(sessionsCollection)}
}

func (s *Store) Reports() storage.ReportRepository {
	return &ReportRepository{coll: s.db.Collection(reportsCollection)}
}

func (s *Store) Blobs() storage.BlobStore { return &BlobRepository{db: s.db} }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return errors.DatabaseError("mongodb ping failed", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// objectID parses a hex id; anything else is treated as absent.
func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}
