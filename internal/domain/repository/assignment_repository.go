package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"iquizu/internal/common"
	"iquizu/internal/domain/model"
)

type AssignmentRepository interface {
	Create(ctx context.Context, tx *sql.Tx, a *model.AssignedQuiz) error
	Update(ctx context.Context, tx *sql.Tx, a *model.AssignedQuiz) error
	// FindByID and List lock the returned rows when tx is not nil.
	FindByID(ctx context.Context, tx *sql.Tx, id string) (*model.AssignedQuiz, error)
	// List matches every non-empty field of filter. An empty filter lists everything.
	List(ctx context.Context, tx *sql.Tx, filter model.AssignmentFilter) ([]*model.AssignedQuiz, error)
}

type pgAssignmentRepository struct {
	db *sql.DB
}

func NewPgAssignmentRepository(db *sql.DB) AssignmentRepository {
	return &pgAssignmentRepository{db: db}
}

const assignmentColumns = `id, quiz_id, class_id, student_id, student_name, student_no, quiz_title, class_name, subject,
	teacher_id, quiz_mode, due_date, instructions, max_attempts, quiz_code, session_status, session_started_at,
	session_ended_at, status, completed, score, raw_score_percentage, base50_score_percentage, attempts,
	started_at, submitted_at, answers, assigned_at`

func findAssignmentQuery(tx *sql.Tx) string {
	return `SELECT ` + assignmentColumns + ` FROM assigned_quizzes WHERE id = $1` + forUpdate(tx)
}

// Rows are locked in a fixed order so concurrent session transitions on one
// class cannot deadlock.
func listAssignmentsQuery(tx *sql.Tx) string {
	return `SELECT ` + assignmentColumns + ` FROM assigned_quizzes
	          WHERE ($1 = '' OR quiz_id = $1)
	            AND ($2 = '' OR class_id = $2)
	            AND ($3 = '' OR student_id = $3)
	            AND ($4 = '' OR quiz_code = $4)
	            AND ($5 = '' OR quiz_mode = $5)
	          ORDER BY assigned_at, student_name, id` + forUpdate(tx)
}

func scanAssignment(row rowScanner) (*model.AssignedQuiz, error) {
	a := &model.AssignedQuiz{}
	var answers []byte
	err := row.Scan(&a.ID, &a.QuizID, &a.ClassID, &a.StudentID, &a.StudentName, &a.StudentNo, &a.QuizTitle,
		&a.ClassName, &a.Subject, &a.TeacherID, &a.QuizMode, &a.DueDate, &a.Instructions, &a.MaxAttempts,
		&a.QuizCode, &a.SessionStatus, &a.SessionStartedAt, &a.SessionEndedAt, &a.Status, &a.Completed,
		&a.Score, &a.RawScorePercentage, &a.Base50ScorePercentage, &a.Attempts, &a.StartedAt, &a.SubmittedAt,
		&answers, &a.AssignedAt)
	if err != nil {
		return nil, err
	}
	if err := fromJSON(answers, &a.Answers); err != nil {
		return nil, fmt.Errorf("decoding answers of assignment %s: %w", a.ID, err)
	}
	return a, nil
}

func (r *pgAssignmentRepository) Create(ctx context.Context, tx *sql.Tx, a *model.AssignedQuiz) error {
	answers, err := toJSON(a.Answers)
	if err != nil {
		return fmt.Errorf("pgAssignmentRepository.Create: %w", err)
	}
	query := `INSERT INTO assigned_quizzes (` + assignmentColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
	                  $21, $22, $23, $24, $25, $26, $27, $28)`
	_, err = pick(r.db, tx).ExecContext(ctx, query, a.ID, a.QuizID, a.ClassID, a.StudentID, a.StudentName, a.StudentNo,
		a.QuizTitle, a.ClassName, a.Subject, a.TeacherID, a.QuizMode, a.DueDate, a.Instructions, a.MaxAttempts,
		a.QuizCode, a.SessionStatus, a.SessionStartedAt, a.SessionEndedAt, a.Status, a.Completed, a.Score,
		a.RawScorePercentage, a.Base50ScorePercentage, a.Attempts, a.StartedAt, a.SubmittedAt, answers, a.AssignedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("quiz already assigned to student %s: %w", a.StudentID, common.ErrConflict)
		}
		return fmt.Errorf("pgAssignmentRepository.Create: %w", err)
	}
	return nil
}

func (r *pgAssignmentRepository) Update(ctx context.Context, tx *sql.Tx, a *model.AssignedQuiz) error {
	answers, err := toJSON(a.Answers)
	if err != nil {
		return fmt.Errorf("pgAssignmentRepository.Update: %w", err)
	}
	query := `UPDATE assigned_quizzes SET
	              due_date = $1, instructions = $2, max_attempts = $3, quiz_code = $4, session_status = $5,
	              session_started_at = $6, session_ended_at = $7, status = $8, completed = $9, score = $10,
	              raw_score_percentage = $11, base50_score_percentage = $12, attempts = $13, started_at = $14,
	              submitted_at = $15, answers = $16
	          WHERE id = $17`
	res, err := pick(r.db, tx).ExecContext(ctx, query, a.DueDate, a.Instructions, a.MaxAttempts, a.QuizCode,
		a.SessionStatus, a.SessionStartedAt, a.SessionEndedAt, a.Status, a.Completed, a.Score,
		a.RawScorePercentage, a.Base50ScorePercentage, a.Attempts, a.StartedAt, a.SubmittedAt, answers, a.ID)
	if err != nil {
		return fmt.Errorf("pgAssignmentRepository.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgAssignmentRepository) FindByID(ctx context.Context, tx *sql.Tx, id string) (*model.AssignedQuiz, error) {
	a, err := scanAssignment(pick(r.db, tx).QueryRowContext(ctx, findAssignmentQuery(tx), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgAssignmentRepository.FindByID: %w", err)
	}
	return a, nil
}

func (r *pgAssignmentRepository) List(ctx context.Context, tx *sql.Tx, f model.AssignmentFilter) ([]*model.AssignedQuiz, error) {
	rows, err := pick(r.db, tx).QueryContext(ctx, listAssignmentsQuery(tx), f.QuizID, f.ClassID, f.StudentID, f.QuizCode, f.QuizMode)
	if err != nil {
		return nil, fmt.Errorf("pgAssignmentRepository.List: %w", err)
	}
	defer rows.Close()

	var list []*model.AssignedQuiz
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("pgAssignmentRepository.List scan: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
