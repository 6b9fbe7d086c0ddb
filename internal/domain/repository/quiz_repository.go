package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"iquizu/internal/common"
	"iquizu/internal/domain/model"
)

type QuizRepository interface {
	Create(ctx context.Context, tx *sql.Tx, quiz *model.Quiz) error
	Update(ctx context.Context, tx *sql.Tx, quiz *model.Quiz) error
	Delete(ctx context.Context, tx *sql.Tx, id string) error
	FindByID(ctx context.Context, id string) (*model.Quiz, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]*model.Quiz, error)
	ListAll(ctx context.Context) ([]*model.Quiz, error)
}

type pgQuizRepository struct {
	db *sql.DB
}

func NewPgQuizRepository(db *sql.DB) QuizRepository {
	return &pgQuizRepository{db: db}
}

const quizColumns = `id, title, teacher_id, questions, settings, status, mode, created_at, updated_at`

func scanQuiz(row rowScanner) (*model.Quiz, error) {
	q := &model.Quiz{}
	var questions, settings []byte
	if err := row.Scan(&q.ID, &q.Title, &q.TeacherID, &questions, &settings, &q.Status, &q.Mode, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}
	if err := fromJSON(questions, &q.Questions); err != nil {
		return nil, fmt.Errorf("decoding questions of quiz %s: %w", q.ID, err)
	}
	if err := fromJSON(settings, &q.Settings); err != nil {
		return nil, fmt.Errorf("decoding settings of quiz %s: %w", q.ID, err)
	}
	return q, nil
}

func (r *pgQuizRepository) Create(ctx context.Context, tx *sql.Tx, q *model.Quiz) error {
	questions, err := toJSON(q.Questions)
	if err != nil {
		return fmt.Errorf("pgQuizRepository.Create: %w", err)
	}
	settings, err := toJSON(q.Settings)
	if err != nil {
		return fmt.Errorf("pgQuizRepository.Create: %w", err)
	}
	query := `INSERT INTO quizzes (id, title, teacher_id, questions, settings, status, mode, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = pick(r.db, tx).ExecContext(ctx, query, q.ID, q.Title, q.TeacherID, questions, settings, q.Status, q.Mode, q.CreatedAt, q.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("quiz already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgQuizRepository.Create: %w", err)
	}
	return nil
}

func (r *pgQuizRepository) Update(ctx context.Context, tx *sql.Tx, q *model.Quiz) error {
	questions, err := toJSON(q.Questions)
	if err != nil {
		return fmt.Errorf("pgQuizRepository.Update: %w", err)
	}
	settings, err := toJSON(q.Settings)
	if err != nil {
		return fmt.Errorf("pgQuizRepository.Update: %w", err)
	}
	query := `UPDATE quizzes SET title = $1, questions = $2, settings = $3, status = $4, mode = $5, created_at = $6, updated_at = $7
	          WHERE id = $8`
	res, err := pick(r.db, tx).ExecContext(ctx, query, q.Title, questions, settings, q.Status, q.Mode, q.CreatedAt, q.UpdatedAt, q.ID)
	if err != nil {
		return fmt.Errorf("pgQuizRepository.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgQuizRepository) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := pick(r.db, tx).ExecContext(ctx, `DELETE FROM quizzes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("pgQuizRepository.Delete: %w", err)
	}
	return nil
}

func (r *pgQuizRepository) FindByID(ctx context.Context, id string) (*model.Quiz, error) {
	q, err := scanQuiz(r.db.QueryRowContext(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgQuizRepository.FindByID: %w", err)
	}
	return q, nil
}

func (r *pgQuizRepository) ListByTeacher(ctx context.Context, teacherID string) ([]*model.Quiz, error) {
	return r.list(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE teacher_id = $1 AND status <> 'archived' ORDER BY updated_at DESC`, teacherID)
}

func (r *pgQuizRepository) ListAll(ctx context.Context) ([]*model.Quiz, error) {
	return r.list(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY updated_at DESC`)
}

func (r *pgQuizRepository) list(ctx context.Context, query string, args ...interface{}) ([]*model.Quiz, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgQuizRepository.list: %w", err)
	}
	defer rows.Close()

	var quizzes []*model.Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("pgQuizRepository.list scan: %w", err)
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}
