package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"iquizu/internal/common"
	"iquizu/internal/domain/model"
)

// ArchiveRepository stores snapshots of archived classes and quizzes.
type ArchiveRepository interface {
	SaveClass(ctx context.Context, tx *sql.Tx, a *model.ArchivedClass) error
	FindClass(ctx context.Context, id string) (*model.ArchivedClass, error)
	ListClasses(ctx context.Context, teacherID string) ([]*model.ArchivedClass, error)
	DeleteClass(ctx context.Context, tx *sql.Tx, id string) error

	SaveQuiz(ctx context.Context, tx *sql.Tx, a *model.ArchivedQuiz) error
	FindQuiz(ctx context.Context, id string) (*model.ArchivedQuiz, error)
	ListQuizzes(ctx context.Context, teacherID string) ([]*model.ArchivedQuiz, error)
	DeleteQuiz(ctx context.Context, tx *sql.Tx, id string) error
}

type pgArchiveRepository struct {
	db *sql.DB
}

func NewPgArchiveRepository(db *sql.DB) ArchiveRepository {
	return &pgArchiveRepository{db: db}
}

func (r *pgArchiveRepository) save(ctx context.Context, tx *sql.Tx, table, id, originalID, teacherID, archivedBy string, snapshot interface{}, at interface{}) error {
	encoded, err := toJSON(snapshot)
	if err != nil {
		return err
	}
	query := `INSERT INTO ` + table + ` (id, original_id, teacher_id, snapshot, archived_at, archived_by)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := pick(r.db, tx).ExecContext(ctx, query, id, originalID, teacherID, encoded, at, archivedBy); err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("already archived: %w", common.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *pgArchiveRepository) delete(ctx context.Context, tx *sql.Tx, table, id string) error {
	res, err := pick(r.db, tx).ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgArchiveRepository) SaveClass(ctx context.Context, tx *sql.Tx, a *model.ArchivedClass) error {
	if err := r.save(ctx, tx, "archived_classes", a.ID, a.OriginalID, a.TeacherID, a.ArchivedBy, a.Class, a.ArchivedAt); err != nil {
		return fmt.Errorf("pgArchiveRepository.SaveClass: %w", err)
	}
	return nil
}

func scanArchivedClass(row rowScanner) (*model.ArchivedClass, error) {
	a := &model.ArchivedClass{}
	var snapshot []byte
	if err := row.Scan(&a.ID, &a.OriginalID, &snapshot, &a.ArchivedAt, &a.ArchivedBy); err != nil {
		return nil, err
	}
	id := a.ID
	if err := fromJSON(snapshot, &a.Class); err != nil {
		return nil, fmt.Errorf("decoding archived class %s: %w", id, err)
	}
	a.ID = id
	return a, nil
}

func (r *pgArchiveRepository) FindClass(ctx context.Context, id string) (*model.ArchivedClass, error) {
	query := `SELECT id, original_id, snapshot, archived_at, archived_by FROM archived_classes WHERE id = $1`
	a, err := scanArchivedClass(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgArchiveRepository.FindClass: %w", err)
	}
	return a, nil
}

func (r *pgArchiveRepository) ListClasses(ctx context.Context, teacherID string) ([]*model.ArchivedClass, error) {
	query := `SELECT id, original_id, snapshot, archived_at, archived_by FROM archived_classes
	          WHERE teacher_id = $1 ORDER BY archived_at DESC`
	rows, err := r.db.QueryContext(ctx, query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("pgArchiveRepository.ListClasses: %w", err)
	}
	defer rows.Close()

	var list []*model.ArchivedClass
	for rows.Next() {
		a, err := scanArchivedClass(rows)
		if err != nil {
			return nil, fmt.Errorf("pgArchiveRepository.ListClasses scan: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (r *pgArchiveRepository) DeleteClass(ctx context.Context, tx *sql.Tx, id string) error {
	if err := r.delete(ctx, tx, "archived_classes", id); err != nil {
		return fmt.Errorf("pgArchiveRepository.DeleteClass: %w", err)
	}
	return nil
}

func (r *pgArchiveRepository) SaveQuiz(ctx context.Context, tx *sql.Tx, a *model.ArchivedQuiz) error {
	if err := r.save(ctx, tx, "archived_quizzes", a.ID, a.OriginalID, a.TeacherID, a.ArchivedBy, a.Quiz, a.ArchivedAt); err != nil {
		return fmt.Errorf("pgArchiveRepository.SaveQuiz: %w", err)
	}
	return nil
}

func scanArchivedQuiz(row rowScanner) (*model.ArchivedQuiz, error) {
	a := &model.ArchivedQuiz{}
	var snapshot []byte
	if err := row.Scan(&a.ID, &a.OriginalID, &snapshot, &a.ArchivedAt, &a.ArchivedBy); err != nil {
		return nil, err
	}
	id := a.ID
	if err := fromJSON(snapshot, &a.Quiz); err != nil {
		return nil, fmt.Errorf("decoding archived quiz %s: %w", id, err)
	}
	a.ID = id
	return a, nil
}

func (r *pgArchiveRepository) FindQuiz(ctx context.Context, id string) (*model.ArchivedQuiz, error) {
	query := `SELECT id, original_id, snapshot, archived_at, archived_by FROM archived_quizzes WHERE id = $1`
	a, err := scanArchivedQuiz(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgArchiveRepository.FindQuiz: %w", err)
	}
	return a, nil
}

func (r *pgArchiveRepository) ListQuizzes(ctx context.Context, teacherID string) ([]*model.ArchivedQuiz, error) {
	query := `SELECT id, original_id, snapshot, archived_at, archived_by FROM archived_quizzes
	          WHERE teacher_id = $1 ORDER BY archived_at DESC`
	rows, err := r.db.QueryContext(ctx, query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("pgArchiveRepository.ListQuizzes: %w", err)
	}
	defer rows.Close()

	var list []*model.ArchivedQuiz
	for rows.Next() {
		a, err := scanArchivedQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("pgArchiveRepository.ListQuizzes scan: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (r *pgArchiveRepository) DeleteQuiz(ctx context.Context, tx *sql.Tx, id string) error {
	if err := r.delete(ctx, tx, "archived_quizzes", id); err != nil {
		return fmt.Errorf("pgArchiveRepository.DeleteQuiz: %w", err)
	}
	return nil
}
