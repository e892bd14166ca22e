package sqlstore

import (
	"context"
	"time"

	"audio-interviewer/internal/errors"
	"audio-interviewer/internal/storage"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type reportRow struct {
	ID                string    `db:"id"`
	SessionID         string    `db:"session_id"`
	Email             string    `db:"email"`
	JobDescription    string    `db:"job_description"`
	CandidateFitScore int       `db:"candidate_fit_score"`
	Strengths         string    `db:"strengths"`
	ImprovementAreas  string    `db:"improvement_areas"`
	SuggestedFollowUp string    `db:"suggested_follow_up"`
	Answers           string    `db:"answers"`
	CreatedAt         time.Time `db:"created_at"`
}

const reportColumns = `id, session_id, email, job_description, candidate_fit_score, strengths, improvement_areas, suggested_follow_up, answers, created_at`

func newReportRow(report *storage.Report) (*reportRow, error) {
	row := &reportRow{
		ID:                report.ID,
		SessionID:         report.SessionID,
		Email:             report.Email,
		JobDescription:    report.JobDescription,
		CandidateFitScore: report.CandidateFitScore,
		CreatedAt:         report.CreatedAt,
	}
	var err error
	if row.Strengths, err = encodeJSON(nonNil(report.Strengths)); err != nil {
		return nil, err
	}
	if row.ImprovementAreas, err = encodeJSON(nonNil(report.ImprovementAreas)); err != nil {
		return nil, err
	}
	if row.SuggestedFollowUp, err = encodeJSON(nonNil(report.SuggestedFollowUp)); err != nil {
		return nil, err
	}
	answers := report.Answers
	if answers == nil {
		answers = []storage.Answer{}
	}
	if row.Answers, err = encodeJSON(answers); err != nil {
		return nil, err
	}
	return row, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func (row reportRow) toReport() (*storage.Report, error) {
	strengths, err := decodeJSON[string](row.Strengths)
	if err != nil {
		return nil, err
	}
	improvements, err := decodeJSON[string](row.ImprovementAreas)
	if err != nil {
		return nil, err
	}
	followUps, err := decodeJSON[string](row.SuggestedFollowUp)
	if err != nil {
		return nil, err
	}
	answers, err := decodeJSON[storage.Answer](row.Answers)
	if err != nil {
		return nil, err
	}
	return &storage.Report{
		ID:                row.ID,
		SessionID:         row.SessionID,
		Email:             row.Email,
		JobDescription:    row.JobDescription,
		CandidateFitScore: row.CandidateFitScore,
		Strengths:         strengths,
		ImprovementAreas:  improvements,
		SuggestedFollowUp: followUps,
		Answers:           answers,
		CreatedAt:         row.CreatedAt,
	}, nil
}

// ReportRepository implements storage.ReportRepository for SQL databases
type ReportRepository struct {
	db *sqlx.DB
}

// Insert stores a new report; the unique session index rejects duplicates
func (r *ReportRepository) Insert(ctx context.Context, report *storage.Report) error {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	report.ID = uuid.NewString()

	row, err := newReportRow(report)
	if err != nil {
		return err
	}
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO interview_reports (`+reportColumns+`)
		VALUES (:id, :session_id, :email, :job_description, :candidate_fit_score, :strengths, :improvement_areas, :suggested_follow_up, :answers, :created_at)
	`, row)
	if isUniqueViolation(err) {
		report.ID = ""
		return storage.ErrConflict
	}
	if err != nil {
		report.ID = ""
		return errors.DatabaseError("failed to insert report", err)
	}
	return nil
}

// Replace overwrites an existing report keeping its id
func (r *ReportRepository) Replace(ctx context.Context, report *storage.Report) error {
	row, err := newReportRow(report)
	if err != nil {
		return err
	}
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE interview_reports
		SET email = :email, job_description = :job_description, candidate_fit_score = :candidate_fit_score,
			strengths = :strengths, improvement_areas = :improvement_areas,
			suggested_follow_up = :suggested_follow_up, answers = :answers, created_at = :created_at
		WHERE id = :id
	`, row)
	if err != nil {
		return errors.DatabaseError("failed to replace report", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.DatabaseError("failed to read affected rows", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// FindByID loads a report by id
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*storage.Report, error) {
	if !validID(id) {
		return nil, storage.ErrNotFound
	}
	return r.findOne(ctx, `SELECT `+reportColumns+` FROM interview_reports WHERE id = ?`, id)
}

// FindBySession loads the report generated for a session
func (r *ReportRepository) FindBySession(ctx context.Context, sessionID string) (*storage.Report, error) {
	return r.findOne(ctx, `SELECT `+reportColumns+` FROM interview_reports WHERE session_id = ?`, sessionID)
}

func (r *ReportRepository) findOne(ctx context.Context, query string, arg string) (*storage.Report, error) {
	var row reportRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(query), arg)
	if isNoRows(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load report", err)
	}
	return row.toReport()
}

// FindByEmail returns all reports for a candidate, oldest first
func (r *ReportRepository) FindByEmail(ctx context.Context, email string) ([]storage.Report, error) {
	var rows []reportRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT `+reportColumns+`
		FROM interview_reports
		WHERE email = ?
		ORDER BY created_at ASC
	`), email)
	if err != nil {
		return nil, errors.DatabaseError("failed to list reports", err)
	}

	reports := make([]storage.Report, 0, len(rows))
	for _, row := range rows {
		report, err := row.toReport()
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, nil
}
