package mongostore

import (
	"context"
	"time"

	"audio-interviewer/internal/errors"
	"audio-interviewer/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type reportDoc struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	SessionID         string             `bson:"session_id"`
	Email             string             `bson:"email"`
	JobDescription    string             `bson:"job_description"`
	CandidateFitScore int                `bson:"candidate_fit_score"`
	Strengths         []string           `bson:"strengths"`
	ImprovementAreas  []string           `bson:"improvement_areas"`
	SuggestedFollowUp []string           `bson:"suggested_follow_up"`
	Answers           []answerDoc        `bson:"answers"`
	CreatedAt         time.Time          `bson:"created_at"`
}

func newReportDoc(report *storage.Report) reportDoc {
	return reportDoc{
		SessionID:         report.SessionID,
		Email:             report.Email,
		JobDescription:    report.JobDescription,
		CandidateFitScore: report.CandidateFitScore,
		Strengths:         nonNil(report.Strengths),
		ImprovementAreas:  nonNil(report.ImprovementAreas),
		SuggestedFollowUp: nonNil(report.SuggestedFollowUp),
		Answers:           toAnswerDocs(report.Answers),
		CreatedAt:         report.CreatedAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func (d reportDoc) toReport() *storage.Report {
	return &storage.Report{
		ID:                d.ID.Hex(),
		SessionID:         d.SessionID,
		Email:             d.Email,
		JobDescription:    d.JobDescription,
		CandidateFitScore: d.CandidateFitScore,
		Strengths:         nonNil(d.Strengths),
		ImprovementAreas:  nonNil(d.ImprovementAreas),
		SuggestedFollowUp: nonNil(d.SuggestedFollowUp),
		Answers:           fromAnswerDocs(d.Answers),
		CreatedAt:         d.CreatedAt,
	}
}

// ReportRepository implements storage.ReportRepository on a collection
type ReportRepository struct {
	coll *mongo.Collection
}

func (r *ReportRepository) Insert(ctx context.Context, report *storage.Report) error {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	doc := newReportDoc(report)
	doc.ID = primitive.NewObjectID()

	_, err := r.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return errors.DatabaseError("failed to insert report", err)
	}
	report.ID = doc.ID.Hex()
	return nil
}

func (r *ReportRepository) Replace(ctx context.Context, report *storage.Report) error {
	oid, ok := objectID(report.ID)
	if !ok {
		return storage.ErrNotFound
	}
	doc := newReportDoc(report)
	doc.ID = oid

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return errors.DatabaseError("failed to replace report", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *ReportRepository) FindByID(ctx context.Context, id string) (*storage.Report, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *ReportRepository) FindBySession(ctx context.Context, sessionID string) (*storage.Report, error) {
	return r.findOne(ctx, bson.M{"session_id": sessionID})
}

func (r *ReportRepository) findOne(ctx context.Context, filter bson.M) (*storage.Report, error) {
	var doc reportDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load report", err)
	}
	return doc.toReport(), nil
}

// FindByEmail lists a candidate's reports, oldest first
func (r *ReportRepository) FindByEmail(ctx context.Context, email string) ([]storage.Report, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"email": email}, opts)
	if err != nil {
		return nil, errors.DatabaseError("failed to list reports", err)
	}

	var docs []reportDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.DatabaseError("failed to decode reports", err)
	}

	reports := make([]storage.Report, 0, len(docs))
	for _, d := range docs {
		reports = append(reports, *d.toReport())
	}
	return reports, nil
}
