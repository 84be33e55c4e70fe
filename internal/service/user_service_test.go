package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"cityfix-service/internal/auth"
	"cityfix-service/internal/model"
)

func newUserService(f *fixture) *UserService {
	return NewUserService(
		memUsers{f.db},
		memMunicipalities{f.db},
		auth.NewPasswordHasher(bcrypt.MinCost),
		auth.NewIssuer("test-secret", time.Hour),
		zerolog.Nop(),
	)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newUserService(f)

	user, err := svc.Register(ctx, RegisterInput{Email: "Ann@Example.com", Password: "correct-horse", MunicipalityID: &f.m1})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.Equal(t, model.RoleCitizen, user.Role)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)

	_, err = svc.Register(ctx, RegisterInput{Email: "ann@example.com", Password: "another-pass"})
	assert.ErrorIs(t, err, ErrConflict)

	result, err := svc.Login(ctx, LoginInput{Email: "ann@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", result.TokenType)

	claims, err := auth.NewParser("test-secret").Parse(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, string(model.RoleCitizen), claims.Role)

	_, err = svc.Login(ctx, LoginInput{Email: "ann@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newUserService(f)

	user, err := svc.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "password123"})
	require.NoError(t, err)

	f.db.mu.Lock()
	u := f.db.users[user.ID]
	u.IsActive = false
	f.db.users[user.ID] = u
	f.db.mu.Unlock()

	_, err = svc.Login(ctx, LoginInput{Email: "bob@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRegisterValidation(t *testing.T) {
	svc := newUserService(newFixture())
	_, err := svc.Register(context.Background(), RegisterInput{Email: "not-an-email", Password: "password123"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateStaffRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newUserService(f)

	op, err := svc.CreateStaff(ctx, f.manager, CreateStaffInput{Email: "op@example.com", Password: "password123", Role: "operator"})
	require.NoError(t, err)
	assert.Equal(t, f.m1, *op.MunicipalityID)

	_, err = svc.CreateStaff(ctx, f.manager, CreateStaffInput{Email: "m@example.com", Password: "password123", Role: "manager"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = svc.CreateStaff(ctx, f.manager, CreateStaffInput{Email: "op2@example.com", Password: "password123", Role: "operator", MunicipalityID: &f.m2})
	assert.ErrorIs(t, err, ErrScopeMismatch)

	_, err = svc.CreateStaff(ctx, f.operator, CreateStaffInput{Email: "x@example.com", Password: "password123", Role: "operator"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = svc.CreateStaff(ctx, f.admin, CreateStaffInput{Email: "mgr@example.com", Password: "password123", Role: "manager"})
	assert.ErrorIs(t, err, ErrValidation)

	admin, err := svc.CreateStaff(ctx, f.admin, CreateStaffInput{Email: "root@example.com", Password: "password123", Role: "admin"})
	require.NoError(t, err)
	assert.Nil(t, admin.MunicipalityID)
}

func TestListOperatorsScope(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newUserService(f)

	ops, err := svc.ListOperators(ctx, f.manager, nil)
	require.NoError(t, err)
	assert.Len(t, ops, 2)

	_, err = svc.ListOperators(ctx, f.manager, &f.m2)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	ops, err = svc.ListOperators(ctx, f.admin, &f.m2)
	require.NoError(t, err)
	assert.Len(t, ops, 1)

	_, err = svc.ListOperators(ctx, f.citizen, nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = svc.Me(ctx, model.Principal{UserID: uuid.New()})
	assert.ErrorIs(t, err, ErrNotFound)
}
