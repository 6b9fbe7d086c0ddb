package service

import (
	"context"
	"testing"

	"iquizu/internal/common"
	"iquizu/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupCreatesStudent(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.auth.Signup(context.Background(), SignupRequest{Name: "Carla", Email: " Carla@School.edu ", Password: "secret123"})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, model.RoleStudent, resp.User.Role)
	assert.Equal(t, "carla@school.edu", resp.User.Email)
	assert.True(t, resp.User.HasAccount)
	assert.Empty(t, resp.User.HashedPassword)
}

func TestSignupClaimsRosterRecord(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.teacher(t, "teacher@school.edu")
	res := env.importClass(t, teacher.ID, "Grade 7", rosterCSV)
	roster := env.studentByEmail(t, "ana@school.edu")
	require.False(t, roster.HasAccount)

	resp, err := env.auth.Signup(context.Background(), SignupRequest{Name: "Ana R.", Email: "ana@school.edu", Password: "secret123"})

	require.NoError(t, err)
	assert.Equal(t, roster.ID, resp.User.ID)
	assert.Equal(t, "2021-001", resp.User.StudentNo)
	assert.Contains(t, resp.User.ClassIDs, res.Class.ID)
}

func TestSignupRejects(t *testing.T) {
	env := newTestEnv(t)
	env.teacher(t, "teacher@school.edu")
	_, err := env.auth.Signup(context.Background(), SignupRequest{Name: "Dan", Email: "dan@school.edu", Password: "secret123"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     SignupRequest
		wantErr error
	}{
		{"existing account", SignupRequest{Name: "Dan", Email: "dan@school.edu", Password: "secret123"}, common.ErrConflict},
		{"teacher email", SignupRequest{Name: "T", Email: "teacher@school.edu", Password: "secret123"}, common.ErrConflict},
		{"short password", SignupRequest{Name: "Eve", Email: "eve@school.edu", Password: "123"}, common.ErrValidation},
		{"blank name", SignupRequest{Name: "   ", Email: "eve@school.edu", Password: "secret123"}, common.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Signup(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.teacher(t, "teacher@school.edu")

	resp, err := env.auth.Login(ctx, LoginRequest{Email: "TEACHER@school.edu", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, teacher.ID, resp.User.ID)

	_, err = env.auth.Login(ctx, LoginRequest{Email: "teacher@school.edu", Password: "wrong"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = env.auth.Login(ctx, LoginRequest{Email: "nobody@school.edu", Password: "secret123"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = env.accounts.SetStatus(ctx, "admin-id", teacher.ID, SetStatusRequest{Status: model.UserStatusInactive})
	require.NoError(t, err)
	_, err = env.auth.Login(ctx, LoginRequest{Email: "teacher@school.edu", Password: "secret123"})
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.teacher(t, "teacher@school.edu")

	require.NoError(t, env.auth.RequestPasswordReset(ctx, PasswordResetRequest{Email: "teacher@school.edu"}))
	msg := env.mail.last()
	assert.Equal(t, "teacher@school.edu", msg.ToEmail)
	assert.Contains(t, msg.Text, "http://app.test/reset-password?token=")
	token := tokenFromLink(t, msg.Text)

	require.NoError(t, env.auth.ConfirmPasswordReset(ctx, PasswordResetConfirm{Token: token, Password: "newsecret"}))

	_, err := env.auth.Login(ctx, LoginRequest{Email: "teacher@school.edu", Password: "newsecret"})
	assert.NoError(t, err)

	err = env.auth.ConfirmPasswordReset(ctx, PasswordResetConfirm{Token: token, Password: "another1"})
	assert.ErrorIs(t, err, common.ErrBadRequest, "tokens are single use")
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	env := newTestEnv(t)

	err := env.auth.RequestPasswordReset(context.Background(), PasswordResetRequest{Email: "ghost@school.edu"})

	assert.NoError(t, err)
	assert.Empty(t, env.mail.sent)
}

func TestAccountAdministration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.accounts.EnsureAdmin(ctx, "admin@school.edu", "adminpass"))
	require.NoError(t, env.accounts.EnsureAdmin(ctx, "admin@school.edu", "adminpass"))
	admins, err := env.accounts.ListUsers(ctx, model.RoleAdmin, "")
	require.NoError(t, err)
	require.Len(t, admins, 1)
	admin := admins[0]

	teacher := env.teacher(t, "teacher@school.edu")
	_, err = env.accounts.CreateTeacher(ctx, CreateTeacherRequest{Name: "Dup", Email: "teacher@school.edu", Password: "secret123"})
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = env.accounts.SetStatus(ctx, admin.ID, admin.ID, SetStatusRequest{Status: model.UserStatusInactive})
	assert.ErrorIs(t, err, common.ErrBadRequest)
	assert.ErrorIs(t, env.accounts.DeleteUser(ctx, admin.ID, admin.ID), common.ErrBadRequest)

	_, err = env.accounts.ListUsers(ctx, "janitor", "")
	assert.ErrorIs(t, err, common.ErrBadRequest)

	require.NoError(t, env.accounts.SendPasswordReset(ctx, teacher.ID))
	assert.Equal(t, "teacher@school.edu", env.mail.last().ToEmail)

	require.NoError(t, env.accounts.DeleteUser(ctx, admin.ID, teacher.ID))
	_, err = env.auth.Me(ctx, teacher.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
