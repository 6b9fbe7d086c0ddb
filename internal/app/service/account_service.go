package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"iquizu/internal/common"
	"iquizu/internal/common/security"
	"iquizu/internal/domain/model"
	"iquizu/internal/domain/repository"

	"github.com/google/uuid"
)

// AccountService is the admin's user management.
type AccountService struct {
	userRepo repository.UserRepository
	auth     *AuthService
}

func NewAccountService(userRepo repository.UserRepository, auth *AuthService) *AccountService {
	return &AccountService{userRepo: userRepo, auth: auth}
}

type CreateTeacherRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

func (s *AccountService) ListUsers(ctx context.Context, role, search string) ([]*model.User, error) {
	if role != "" && role != model.RoleStudent && role != model.RoleTeacher && role != model.RoleAdmin {
		return nil, fmt.Errorf("unknown role %q: %w", role, common.ErrBadRequest)
	}
	users, err := s.userRepo.List(ctx, model.UserFilter{Role: role, Search: search})
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		u.HashedPassword = ""
	}
	return users, nil
}

// CreateTeacher provisions a teacher account. The caller's own session is never touched.
func (s *AccountService) CreateTeacher(ctx context.Context, req CreateTeacherRequest) (*model.User, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	hashed, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &model.User{
		ID:             uuid.NewString(),
		Role:           model.RoleTeacher,
		Status:         model.UserStatusActive,
		Name:           common.CleanString(req.Name),
		Email:          common.CleanString(req.Email, true),
		HashedPassword: hashed,
		HasAccount:     true,
	}
	if err := s.userRepo.Create(ctx, nil, user); err != nil {
		return nil, fmt.Errorf("failed to create teacher: %w", err)
	}
	log.Printf("INFO: teacher account %s created", user.ID)
	user.HashedPassword = ""
	return user, nil
}

func (s *AccountService) SetStatus(ctx context.Context, actorID, userID string, req SetStatusRequest) (*model.User, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	if actorID == userID {
		return nil, fmt.Errorf("you cannot change your own status: %w", common.ErrBadRequest)
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Status = req.Status
	if err := s.userRepo.Update(ctx, nil, user); err != nil {
		return nil, err
	}
	user.HashedPassword = ""
	return user, nil
}

func (s *AccountService) DeleteUser(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return fmt.Errorf("you cannot delete your own account: %w", common.ErrBadRequest)
	}
	return s.userRepo.Delete(ctx, nil, userID)
}

func (s *AccountService) SendPasswordReset(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Email == "" {
		return fmt.Errorf("user has no email address: %w", common.ErrBadRequest)
	}
	return s.auth.sendReset(ctx, user)
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet.
func (s *AccountService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = common.CleanString(email, true)
	if email == "" || password == "" {
		return nil
	}
	_, err := s.userRepo.FindByEmail(ctx, nil, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return err
	}
	hashed, err := security.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &model.User{
		ID:             uuid.NewString(),
		Role:           model.RoleAdmin,
		Status:         model.UserStatusActive,
		Name:           "Administrator",
		Email:          email,
		HashedPassword: hashed,
		HasAccount:     true,
	}
	if err := s.userRepo.Create(ctx, nil, admin); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	log.Printf("INFO: admin account %s seeded", email)
	return nil
}
