package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"iquizu/internal/common"
	"iquizu/internal/domain/model"
)

type SubmissionRepository interface {
	// Upsert writes s keyed by (student, assignment) and reports whether a new row was created.
	// On update, s.ID is replaced with the existing row's ID.
	Upsert(ctx context.Context, tx *sql.Tx, s *model.QuizSubmission) (bool, error)
	FindByID(ctx context.Context, id string) (*model.QuizSubmission, error)
	FindByAssignment(ctx context.Context, studentID, assignmentID string) (*model.QuizSubmission, error)
	List(ctx context.Context, filter model.SubmissionFilter) ([]*model.QuizSubmission, error)
	UpdateRecommendations(ctx context.Context, tx *sql.Tx, id string, recs []string, status string) error
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

const submissionColumns = `id, assignment_id, quiz_id, class_id, student_id, student_email, student_name, quiz_title,
	class_name, subject, teacher_email, teacher_name, quiz_mode, correct_points, total_points, raw_score_percentage,
	base50_score_percentage, score, remark, score_level, answers, recommendations, recommendation_status,
	submitted_at, updated_at`

func scanSubmission(row rowScanner) (*model.QuizSubmission, error) {
	s := &model.QuizSubmission{}
	var answers, recs []byte
	err := row.Scan(&s.ID, &s.AssignmentID, &s.QuizID, &s.ClassID, &s.StudentID, &s.StudentEmail, &s.StudentName,
		&s.QuizTitle, &s.ClassName, &s.Subject, &s.TeacherEmail, &s.TeacherName, &s.QuizMode, &s.CorrectPoints,
		&s.TotalPoints, &s.RawScorePercentage, &s.Base50ScorePercentage, &s.Score, &s.Remark, &s.ScoreLevel,
		&answers, &recs, &s.RecommendationStatus, &s.SubmittedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := fromJSON(answers, &s.Answers); err != nil {
		return nil, fmt.Errorf("decoding answers of submission %s: %w", s.ID, err)
	}
	if err := fromJSON(recs, &s.Recommendations); err != nil {
		return nil, fmt.Errorf("decoding recommendations of submission %s: %w", s.ID, err)
	}
	return s, nil
}

func (r *pgSubmissionRepository) Upsert(ctx context.Context, tx *sql.Tx, s *model.QuizSubmission) (bool, error) {
	answers, err := toJSON(s.Answers)
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.Upsert: %w", err)
	}
	recs, err := toJSON(s.Recommendations)
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.Upsert: %w", err)
	}
	// xmax = 0 only for freshly inserted rows.
	query := `INSERT INTO quiz_submissions (` + submissionColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
	                  $21, $22, $23, $24, $25)
	          ON CONFLICT (student_id, assignment_id) DO UPDATE SET
	              correct_points = EXCLUDED.correct_points, total_points = EXCLUDED.total_points,
	              raw_score_percentage = EXCLUDED.raw_score_percentage,
	              base50_score_percentage = EXCLUDED.base50_score_percentage, score = EXCLUDED.score,
	              remark = EXCLUDED.remark, score_level = EXCLUDED.score_level, answers = EXCLUDED.answers,
	              recommendations = EXCLUDED.recommendations, recommendation_status = EXCLUDED.recommendation_status,
	              updated_at = EXCLUDED.updated_at
	          RETURNING id, submitted_at, (xmax = 0)`
	var inserted bool
	err = pick(r.db, tx).QueryRowContext(ctx, query, s.ID, s.AssignmentID, s.QuizID, s.ClassID, s.StudentID,
		s.StudentEmail, s.StudentName, s.QuizTitle, s.ClassName, s.Subject, s.TeacherEmail, s.TeacherName,
		s.QuizMode, s.CorrectPoints, s.TotalPoints, s.RawScorePercentage, s.Base50ScorePercentage, s.Score,
		s.Remark, s.ScoreLevel, answers, recs, s.RecommendationStatus, s.SubmittedAt, s.UpdatedAt,
	).Scan(&s.ID, &s.SubmittedAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.Upsert: %w", err)
	}
	return inserted, nil
}

func (r *pgSubmissionRepository) FindByID(ctx context.Context, id string) (*model.QuizSubmission, error) {
	return r.findOne(ctx, `SELECT `+submissionColumns+` FROM quiz_submissions WHERE id = $1`, id)
}

func (r *pgSubmissionRepository) FindByAssignment(ctx context.Context, studentID, assignmentID string) (*model.QuizSubmission, error) {
	return r.findOne(ctx, `SELECT `+submissionColumns+` FROM quiz_submissions WHERE student_id = $1 AND assignment_id = $2`, studentID, assignmentID)
}

func (r *pgSubmissionRepository) findOne(ctx context.Context, query string, args ...interface{}) (*model.QuizSubmission, error) {
	s, err := scanSubmission(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.findOne: %w", err)
	}
	return s, nil
}

func (r *pgSubmissionRepository) List(ctx context.Context, f model.SubmissionFilter) ([]*model.QuizSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM quiz_submissions
	          WHERE ($1 = '' OR student_id = $1)
	            AND ($2 = '' OR quiz_id = $2)
	            AND ($3 = '' OR class_id = $3)
	            AND ($4::timestamptz IS NULL OR submitted_at >= $4)
	          ORDER BY submitted_at DESC`
	rows, err := r.db.QueryContext(ctx, query, f.StudentID, f.QuizID, f.ClassID, f.Since)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.List: %w", err)
	}
	defer rows.Close()

	var list []*model.QuizSubmission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.List scan: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *pgSubmissionRepository) UpdateRecommendations(ctx context.Context, tx *sql.Tx, id string, recs []string, status string) error {
	encoded, err := toJSON(recs)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.UpdateRecommendations: %w", err)
	}
	query := `UPDATE quiz_submissions SET recommendations = $1, recommendation_status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3`
	res, err := pick(r.db, tx).ExecContext(ctx, query, encoded, status, id)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.UpdateRecommendations: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}
