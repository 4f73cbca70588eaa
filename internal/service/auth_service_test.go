package service

import (
	"context"
	"testing"
	"time"

	"shop-service/internal/apperr"
	"shop-service/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T, f *fakeStore, r *fakeRevoker) *AuthService {
	t.Helper()
	maker, err := token.NewMaker("test-secret-test-secret", time.Hour)
	require.NoError(t, err)
	return NewAuthService(f, maker, r)
}

func TestRegister(t *testing.T) {
	f := newFakeStore()
	svc := newAuthService(t, f, newFakeRevoker())
	ctx := context.Background()

	user, signed, err := svc.Register(ctx, "Alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "user", user.Role)
	assert.NotEqual(t, "secret1", user.Password)
	assert.NotEmpty(t, signed)

	claims, err := svc.Authenticate(ctx, signed)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "user", claims.Role)
}

func TestRegisterValidation(t *testing.T) {
	svc := newAuthService(t, newFakeStore(), newFakeRevoker())
	ctx := context.Background()

	cases := []struct {
		name     string
		userName string
		email    string
		password string
	}{
		{"short name", "A", "alice@example.com", "secret1"},
		{"bad email", "Alice", "not-an-email", "secret1"},
		{"short password", "Alice", "alice@example.com", "12345"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Register(ctx, tc.userName, tc.email, tc.password)
			assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newAuthService(t, newFakeStore(), newFakeRevoker())
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "Alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "Other Alice", "alice@example.com", "secret2")
	require.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
	assert.Equal(t, "User already exists", err.Error())
}

func TestLogin(t *testing.T) {
	svc := newAuthService(t, newFakeStore(), newFakeRevoker())
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "Alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	user, signed, err := svc.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEmpty(t, signed)

	// Unknown email and wrong password are indistinguishable.
	_, _, errUnknown := svc.Login(ctx, "bob@example.com", "secret1")
	_, _, errWrong := svc.Login(ctx, "alice@example.com", "wrong")
	require.Error(t, errUnknown)
	require.Error(t, errWrong)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
	assert.Equal(t, "Invalid credentials", errWrong.Error())
}

func TestLogoutRevokesToken(t *testing.T) {
	svc := newAuthService(t, newFakeStore(), newFakeRevoker())
	ctx := context.Background()

	_, signed, err := svc.Register(ctx, "Alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	claims, err := svc.Authenticate(ctx, signed)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, claims))

	_, err = svc.Authenticate(ctx, signed)
	require.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
	assert.Equal(t, "Token has been revoked", err.Error())
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	svc := newAuthService(t, newFakeStore(), newFakeRevoker())

	_, err := svc.Authenticate(context.Background(), "not.a.token")
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
}
