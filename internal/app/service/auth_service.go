package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"iquizu/internal/common"
	"iquizu/internal/common/security"
	"iquizu/internal/domain/model"
	"iquizu/internal/domain/repository"
	"iquizu/internal/platform/mailer"

	"github.com/google/uuid"
)

type AuthService struct {
	userRepo    repository.UserRepository
	txm         repository.TxManager
	tokens      TokenStore
	mail        Mailer
	resetTTL    time.Duration
	frontendURL string
}

func NewAuthService(userRepo repository.UserRepository, txm repository.TxManager, tokens TokenStore, mail Mailer, resetTTL time.Duration, frontendURL string) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		txm:         txm,
		tokens:      tokens,
		mail:        mail,
		resetTTL:    resetTTL,
		frontendURL: frontendURL,
	}
}

type SignupRequest struct {
	Name      string `json:"name" validate:"notblank"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	StudentNo string `json:"student_no"`
	Program   string `json:"program"`
	Gender    string `json:"gender"`
	Year      string `json:"year"`
	ContactNo string `json:"contact_no"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetConfirm struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Signup registers a student. When a teacher already imported the student
// from a classlist, that record is claimed instead of creating a new one.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	email := common.CleanString(req.Email, true)

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var user *model.User
	err = s.txm.WithTx(ctx, func(tx *sql.Tx) error {
		existing, err := s.userRepo.FindByEmail(ctx, tx, email)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		if existing != nil {
			if existing.HasAccount || existing.Role != model.RoleStudent {
				return fmt.Errorf("an account with this email already exists: %w", common.ErrConflict)
			}
			claimFields(existing, req)
			existing.HashedPassword = hashedPassword
			existing.HasAccount = true
			existing.Status = model.UserStatusActive
			user = existing
			return s.userRepo.Update(ctx, tx, existing)
		}

		user = &model.User{
			ID:             uuid.NewString(),
			Role:           model.RoleStudent,
			Status:         model.UserStatusActive,
			Email:          email,
			HashedPassword: hashedPassword,
			HasAccount:     true,
		}
		claimFields(user, req)
		return s.userRepo.Create(ctx, tx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign up: %w", err)
	}
	return s.issue(user)
}

// claimFields copies signup details, keeping roster values the student left blank.
func claimFields(u *model.User, req SignupRequest) {
	set := func(dst *string, v string) {
		if v = common.CleanString(v); v != "" {
			*dst = v
		}
	}
	set(&u.Name, req.Name)
	set(&u.StudentNo, req.StudentNo)
	set(&u.Program, req.Program)
	set(&u.Gender, req.Gender)
	set(&u.Year, req.Year)
	set(&u.ContactNo, req.ContactNo)
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, nil, common.CleanString(req.Email, true))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("invalid email or password: %w", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, fmt.Errorf("invalid email or password: %w", common.ErrUnauthorized)
	}
	if user.Status == model.UserStatusInactive {
		return nil, fmt.Errorf("account is inactive, contact your administrator: %w", common.ErrForbidden)
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*AuthResponse, error) {
	token, err := security.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	user.HashedPassword = ""
	return &AuthResponse{User: user, Token: token}, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.HashedPassword = ""
	return user, nil
}

// RequestPasswordReset mails a reset link. Unknown emails succeed silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, req PasswordResetRequest) error {
	if err := common.ValidateStruct(req); err != nil {
		return err
	}
	user, err := s.userRepo.FindByEmail(ctx, nil, common.CleanString(req.Email, true))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			log.Printf("INFO: password reset requested for unknown email")
			return nil
		}
		return err
	}
	return s.sendReset(ctx, user)
}

func (s *AuthService) sendReset(ctx context.Context, user *model.User) error {
	token, digest := security.NewResetToken()
	if err := s.tokens.Save(ctx, digest, user.ID, s.resetTTL); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	link := s.frontendURL + "/reset-password?token=" + token
	msg := mailer.Message{
		ToName:  user.DisplayName(),
		ToEmail: user.Email,
		Subject: "Reset your password",
		Text:    fmt.Sprintf("Hi %s,\n\nUse the link below to set a new password. It expires in %s.\n\n%s\n", user.DisplayName(), s.resetTTL, link),
		HTML:    fmt.Sprintf(`<p>Hi %s,</p><p>Use the link below to set a new password. It expires in %s.</p><p><a href="%s">Reset password</a></p>`, user.DisplayName(), s.resetTTL, link),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	return nil
}

func (s *AuthService) ConfirmPasswordReset(ctx context.Context, req PasswordResetConfirm) error {
	if err := common.ValidateStruct(req); err != nil {
		return err
	}
	userID, err := s.tokens.Take(ctx, security.HashResetToken(req.Token))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("reset link is invalid or has expired: %w", common.ErrBadRequest)
		}
		return err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	hashed, err := security.HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = hashed
	user.HasAccount = true
	return s.userRepo.Update(ctx, nil, user)
}
