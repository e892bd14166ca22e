package mongostore

import (
	"context"
	"time"

	"audio-interviewer/internal/errors"
	"audio-interviewer/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type questionDoc struct {
	Text string `bson:"text"`
}

type answerDoc struct {
	Question   string `bson:"question"`
	Transcript string `bson:"transcript"`
	AudioURL   string `bson:"audio_url"`
}

type sessionDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Email          string             `bson:"email"`
	JobDescription string             `bson:"job_description"`
	Questions      []questionDoc      `bson:"questions"`
	Answers        []answerDoc        `bson:"answers"`
	CurrentIndex   int                `bson:"current_index"`
	Version        int64              `bson:"version"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}

func toAnswerDocs(answers []storage.Answer) []answerDoc {
	docs := make([]answerDoc, 0, len(answers))
	for _, a := range answers {
		docs = append(docs, answerDoc(a))
	}
	return docs
}

func fromAnswerDocs(docs []answerDoc) []storage.Answer {
	answers := make([]storage.Answer, 0, len(docs))
	for _, d := range docs {
		answers = append(answers, storage.Answer(d))
	}
	return answers
}

func newSessionDoc(session *storage.Session) sessionDoc {
	questions := make([]questionDoc, 0, len(session.Questions))
	for _, q := range session.Questions {
		questions = append(questions, questionDoc(q))
	}
	return sessionDoc{
		Email:          session.Email,
		JobDescription: session.JobDescription,
		Questions:      questions,
		Answers:        toAnswerDocs(session.Answers),
		CurrentIndex:   session.CurrentIndex,
		Version:        session.Version,
		CreatedAt:      session.CreatedAt,
		UpdatedAt:      session.UpdatedAt,
	}
}

func (d sessionDoc) toSession() *storage.Session {
	questions := make([]storage.Question, 0, len(d.Questions))
	for _, q := range d.Questions {
		questions = append(questions, storage.Question(q))
	}
	return &storage.Session{
		ID:             d.ID.Hex(),
		Email:          d.Email,
		JobDescription: d.JobDescription,
		Questions:      questions,
		Answers:        fromAnswerDocs(d.Answers),
		CurrentIndex:   d.CurrentIndex,
		Version:        d.Version,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// SessionRepository implements storage.SessionRepository on a collection
type SessionRepository struct {
	coll *mongo.Collection
}

func (r *SessionRepository) Insert(ctx context.Context, session *storage.Session) error {
	now := time.Now().UTC()
	session.Version = 1
	session.CreatedAt = now
	session.UpdatedAt = now

	doc := newSessionDoc(session)
	doc.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return errors.DatabaseError("failed to insert session", err)
	}
	session.ID = doc.ID.Hex()
	return nil
}

func (r *SessionRepository) FindByID(ctx context.Context, id string) (*storage.Session, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, storage.ErrNotFound
	}

	var doc sessionDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load session", err)
	}
	return doc.toSession(), nil
}

// Replace swaps the whole document only while its version is unchanged
func (r *SessionRepository) Replace(ctx context.Context, session *storage.Session) error {
	oid, ok := objectID(session.ID)
	if !ok {
		return storage.ErrNotFound
	}

	doc := newSessionDoc(session)
	doc.ID = oid
	doc.Version = session.Version + 1
	doc.UpdatedAt = time.Now().UTC()

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": oid, "version": session.Version}, doc)
	if err != nil {
		return errors.DatabaseError("failed to replace session", err)
	}
	if res.MatchedCount == 0 {
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return errors.DatabaseError("failed to check session", err)
		}
		if n == 0 {
			return storage.ErrNotFound
		}
		return storage.ErrConflict
	}

	session.Version = doc.Version
	session.UpdatedAt = doc.UpdatedAt
	return nil
}
