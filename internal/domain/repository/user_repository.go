package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"iquizu/internal/common"
	"iquizu/internal/domain/model"
)

type UserRepository interface {
	Create(ctx context.Context, tx *sql.Tx, user *model.User) error
	Update(ctx context.Context, tx *sql.Tx, user *model.User) error
	Delete(ctx context.Context, tx *sql.Tx, id string) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, tx *sql.Tx, email string) (*model.User, error)
	List(ctx context.Context, filter model.UserFilter) ([]*model.User, error)
	ListByClass(ctx context.Context, classID string) ([]*model.User, error)
	AddToClass(ctx context.Context, tx *sql.Tx, userID, classID string) error
	// LockForUpdate serialises writers on the user's row for the life of tx.
	LockForUpdate(ctx context.Context, tx *sql.Tx, id string) error
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `u.id, u.role, u.status, u.name, u.email, u.hashed_password, u.student_no, u.program,
	u.gender, u.year, u.contact_no, u.has_account,
	COALESCE((SELECT string_agg(cm.class_id, ',' ORDER BY cm.class_id) FROM class_members cm WHERE cm.user_id = u.id), ''),
	u.created_at, u.updated_at`

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	var classIDs string
	err := row.Scan(&u.ID, &u.Role, &u.Status, &u.Name, &u.Email, &u.HashedPassword, &u.StudentNo, &u.Program,
		&u.Gender, &u.Year, &u.ContactNo, &u.HasAccount, &classIDs, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if classIDs != "" {
		u.ClassIDs = strings.Split(classIDs, ",")
	}
	return u, nil
}

func (r *pgUserRepository) Create(ctx context.Context, tx *sql.Tx, u *model.User) error {
	query := `INSERT INTO users (id, role, status, name, email, hashed_password, student_no, program, gender, year, contact_no, has_account)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	          RETURNING created_at, updated_at`
	err := pick(r.db, tx).QueryRowContext(ctx, query, u.ID, u.Role, u.Status, u.Name, u.Email, u.HashedPassword,
		u.StudentNo, u.Program, u.Gender, u.Year, u.ContactNo, u.HasAccount).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("user with given email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	for _, classID := range u.ClassIDs {
		if err := r.AddToClass(ctx, tx, u.ID, classID); err != nil {
			return err
		}
	}
	return nil
}

func (r *pgUserRepository) Update(ctx context.Context, tx *sql.Tx, u *model.User) error {
	query := `UPDATE users SET role = $1, status = $2, name = $3, email = $4, hashed_password = $5, student_no = $6,
	              program = $7, gender = $8, year = $9, contact_no = $10, has_account = $11, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $12
	          RETURNING updated_at`
	err := pick(r.db, tx).QueryRowContext(ctx, query, u.Role, u.Status, u.Name, u.Email, u.HashedPassword, u.StudentNo,
		u.Program, u.Gender, u.Year, u.ContactNo, u.HasAccount, u.ID).Scan(&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("user with given email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Update: %w", err)
	}
	return nil
}

func (r *pgUserRepository) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := pick(r.db, tx).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgUserRepository.Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindByID: %w", err)
	}
	return u, nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, tx *sql.Tx, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE lower(u.email) = lower($1) AND u.email <> ''`
	u, err := scanUser(pick(r.db, tx).QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindByEmail: %w", err)
	}
	return u, nil
}

func (r *pgUserRepository) List(ctx context.Context, f model.UserFilter) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u
	          WHERE ($1 = '' OR u.role = $1)
	            AND ($2 = '' OR u.name ILIKE '%' || $2 || '%' OR u.email ILIKE '%' || $2 || '%')
	          ORDER BY u.name, u.email`
	return r.list(ctx, query, f.Role, strings.TrimSpace(f.Search))
}

func (r *pgUserRepository) ListByClass(ctx context.Context, classID string) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u
	          JOIN class_members m ON m.user_id = u.id
	          WHERE m.class_id = $1
	          ORDER BY u.name`
	return r.list(ctx, query, classID)
}

func (r *pgUserRepository) list(ctx context.Context, query string, args ...interface{}) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.list: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("pgUserRepository.list scan: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *pgUserRepository) AddToClass(ctx context.Context, tx *sql.Tx, userID, classID string) error {
	query := `INSERT INTO class_members (class_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := pick(r.db, tx).ExecContext(ctx, query, classID, userID); err != nil {
		return fmt.Errorf("pgUserRepository.AddToClass: %w", err)
	}
	return nil
}

func (r *pgUserRepository) LockForUpdate(ctx context.Context, tx *sql.Tx, id string) error {
	var locked string
	err := pick(r.db, tx).QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		return fmt.Errorf("pgUserRepository.LockForUpdate: %w", err)
	}
	return nil
}
