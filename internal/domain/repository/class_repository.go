package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"iquizu/internal/common"
	"iquizu/internal/domain/model"
)

type ClassRepository interface {
	Create(ctx context.Context, tx *sql.Tx, class *model.Class) error
	Update(ctx context.Context, tx *sql.Tx, class *model.Class) error
	// SetSourceFileURL touches only the stored file link of a class.
	SetSourceFileURL(ctx context.Context, id, url string) error
	Delete(ctx context.Context, tx *sql.Tx, id string) error
	FindByID(ctx context.Context, id string) (*model.Class, error)
	ListByTeacher(ctx context.Context, teacherID, status string) ([]*model.Class, error)
	CountByTeacher(ctx context.Context, tx *sql.Tx, teacherID string) (int, error)
	ListAll(ctx context.Context) ([]*model.Class, error)
}

type pgClassRepository struct {
	db *sql.DB
}

func NewPgClassRepository(db *sql.DB) ClassRepository {
	return &pgClassRepository{db: db}
}

const classColumns = `id, name, slug, subject, teacher_id, teacher_email, teacher_name, student_count, status,
	file_name, source_file_url, uploaded_at`

func scanClass(row rowScanner) (*model.Class, error) {
	c := &model.Class{}
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Subject, &c.TeacherID, &c.TeacherEmail, &c.TeacherName,
		&c.StudentCount, &c.Status, &c.FileName, &c.SourceFileURL, &c.UploadedAt)
	return c, err
}

func (r *pgClassRepository) Create(ctx context.Context, tx *sql.Tx, c *model.Class) error {
	query := `INSERT INTO classes (id, name, slug, subject, teacher_id, teacher_email, teacher_name, student_count, status, file_name, source_file_url, uploaded_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := pick(r.db, tx).ExecContext(ctx, query, c.ID, c.Name, c.Slug, c.Subject, c.TeacherID, c.TeacherEmail,
		c.TeacherName, c.StudentCount, c.Status, c.FileName, c.SourceFileURL, c.UploadedAt)
	if err != nil {
		return fmt.Errorf("pgClassRepository.Create: %w", err)
	}
	return nil
}

func (r *pgClassRepository) Update(ctx context.Context, tx *sql.Tx, c *model.Class) error {
	query := `UPDATE classes SET name = $1, slug = $2, subject = $3, student_count = $4, status = $5,
	              file_name = $6, source_file_url = $7
	          WHERE id = $8`
	res, err := pick(r.db, tx).ExecContext(ctx, query, c.Name, c.Slug, c.Subject, c.StudentCount, c.Status,
		c.FileName, c.SourceFileURL, c.ID)
	if err != nil {
		return fmt.Errorf("pgClassRepository.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgClassRepository) SetSourceFileURL(ctx context.Context, id, url string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE classes SET source_file_url = $1 WHERE id = $2`, url, id)
	if err != nil {
		return fmt.Errorf("pgClassRepository.SetSourceFileURL: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgClassRepository) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := pick(r.db, tx).ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("pgClassRepository.Delete: %w", err)
	}
	return nil
}

func (r *pgClassRepository) FindByID(ctx context.Context, id string) (*model.Class, error) {
	c, err := scanClass(r.db.QueryRowContext(ctx, `SELECT `+classColumns+` FROM classes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgClassRepository.FindByID: %w", err)
	}
	return c, nil
}

// ListByTeacher returns the teacher's classes; an empty status matches all.
func (r *pgClassRepository) ListByTeacher(ctx context.Context, teacherID, status string) ([]*model.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes
	          WHERE teacher_id = $1 AND ($2 = '' OR status = $2)
	          ORDER BY uploaded_at DESC`
	return r.list(ctx, query, teacherID, status)
}

func (r *pgClassRepository) ListAll(ctx context.Context) ([]*model.Class, error) {
	return r.list(ctx, `SELECT `+classColumns+` FROM classes ORDER BY uploaded_at DESC`)
}

func (r *pgClassRepository) list(ctx context.Context, query string, args ...interface{}) ([]*model.Class, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgClassRepository.list: %w", err)
	}
	defer rows.Close()

	var classes []*model.Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("pgClassRepository.list scan: %w", err)
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

func (r *pgClassRepository) CountByTeacher(ctx context.Context, tx *sql.Tx, teacherID string) (int, error) {
	var n int
	err := pick(r.db, tx).QueryRowContext(ctx, `SELECT COUNT(*) FROM classes WHERE teacher_id = $1`, teacherID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("pgClassRepository.CountByTeacher: %w", err)
	}
	return n, nil
}
