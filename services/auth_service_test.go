package services

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/repository"
)

type authFixture struct {
	auth   AuthService
	users  repository.UserRepository
	mailer *recordingMailer
}

func newAuthFixture(t *testing.T, allowRegistration bool) *authFixture {
	t.Helper()
	db := newTestDB(t)
	f := &authFixture{
		users:  repository.NewSQLiteUserRepo(db.Conn),
		mailer: &recordingMailer{},
	}
	f.auth = NewAuthService(f.users,
		repository.NewSQLiteSessionRepo(db.Conn),
		repository.NewSQLiteResetTokenRepo(db.Conn),
		f.mailer,
		AuthOptions{
			JWTSecret:         "test-secret-with-enough-length-0123456789",
			AccessExpiry:      15 * time.Minute,
			RefreshExpiry:     24 * time.Hour,
			AllowRegistration: allowRegistration,
			BaseURL:           "https://atelier.example",
		})
	return f
}

func register(t *testing.T, f *authFixture, email string) *models.AuthTokens {
	t.Helper()
	tokens, err := f.auth.Register(context.Background(), &models.RegisterRequest{
		Email: email, Password: "correct horse", Name: "Ada",
	})
	require.NoError(t, err)
	return tokens
}

func TestRegisterFirstUserIsAdmin(t *testing.T) {
	f := newAuthFixture(t, false)

	first := register(t, f, "Ada@Example.art")
	assert.Equal(t, models.RoleAdmin, first.User.Role)
	assert.Equal(t, "ada@example.art", first.User.Email)
	assert.Empty(t, first.User.PasswordHash)
	assert.Equal(t, 900, first.ExpiresIn)

	_, err := f.auth.Register(context.Background(), &models.RegisterRequest{
		Email: "bob@example.art", Password: "correct horse",
	})
	assert.ErrorIs(t, err, pkg.ErrForbidden)
}

func TestRegisterConcurrentFirstUsers(t *testing.T) {
	f := newAuthFixture(t, false)

	const signups = 4
	var wg sync.WaitGroup
	results := make([]*models.AuthTokens, signups)
	errs := make([]error, signups)
	for i := 0; i < signups; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.auth.Register(context.Background(), &models.RegisterRequest{
				Email: fmt.Sprintf("user%d@example.art", i), Password: "correct horse",
			})
		}(i)
	}
	wg.Wait()

	admins := 0
	for i, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, pkg.ErrForbidden)
			continue
		}
		assert.Equal(t, models.RoleAdmin, results[i].User.Role)
		admins++
	}
	assert.Equal(t, 1, admins)

	all, err := f.users.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRegisterOpen(t *testing.T) {
	f := newAuthFixture(t, true)
	register(t, f, "ada@example.art")

	second := register(t, f, "bob@example.art")
	assert.Equal(t, models.RoleMember, second.User.Role)

	_, err := f.auth.Register(context.Background(), &models.RegisterRequest{
		Email: "bob@example.art", Password: "correct horse",
	})
	assert.ErrorIs(t, err, pkg.ErrAlreadyExists)

	_, err = f.auth.Register(context.Background(), &models.RegisterRequest{
		Email: "carol@example.art", Password: "short",
	})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestLoginAndTokens(t *testing.T) {
	f := newAuthFixture(t, false)
	register(t, f, "ada@example.art")
	ctx := context.Background()

	_, err := f.auth.Login(ctx, &models.LoginRequest{Email: "ada@example.art", Password: "wrong password"})
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)
	wrongPassword := err.Error()

	_, err = f.auth.Login(ctx, &models.LoginRequest{Email: "nobody@example.art", Password: "wrong password"})
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)
	assert.Equal(t, wrongPassword, err.Error())

	tokens, err := f.auth.Login(ctx, &models.LoginRequest{Email: " ADA@example.art ", Password: "correct horse"})
	require.NoError(t, err)

	claims, err := f.auth.ValidateAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tokens.User.ID, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = f.auth.ValidateAccessToken(tokens.AccessToken + "x")
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = f.auth.ValidateAccessToken(none)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	f.auth.(*authService).now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = f.auth.ValidateAccessToken(tokens.AccessToken)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)
}

func TestRefreshRotatesSession(t *testing.T) {
	f := newAuthFixture(t, false)
	tokens := register(t, f, "ada@example.art")
	ctx := context.Background()

	next, err := f.auth.RefreshToken(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, next.RefreshToken)

	_, err = f.auth.RefreshToken(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	require.NoError(t, f.auth.Logout(ctx, next.RefreshToken))
	require.NoError(t, f.auth.Logout(ctx, next.RefreshToken))
	_, err = f.auth.RefreshToken(ctx, next.RefreshToken)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	expiring, err := f.auth.Login(ctx, &models.LoginRequest{Email: "ada@example.art", Password: "correct horse"})
	require.NoError(t, err)
	f.auth.(*authService).now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	_, err = f.auth.RefreshToken(ctx, expiring.RefreshToken)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	f := newAuthFixture(t, false)
	tokens := register(t, f, "ada@example.art")
	ctx := context.Background()

	err := f.auth.ChangePassword(ctx, tokens.User.ID, &models.ChangePasswordRequest{
		CurrentPassword: "not it", NewPassword: "battery staple",
	})
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	require.NoError(t, f.auth.ChangePassword(ctx, tokens.User.ID, &models.ChangePasswordRequest{
		CurrentPassword: "correct horse", NewPassword: "battery staple",
	}))

	_, err = f.auth.RefreshToken(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	_, err = f.auth.Login(ctx, &models.LoginRequest{Email: "ada@example.art", Password: "battery staple"})
	assert.NoError(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t, false)
	register(t, f, "ada@example.art")
	ctx := context.Background()

	wait, err := f.auth.ForgotPassword(ctx, "nobody@example.art", "en")
	require.NoError(t, err)
	assert.Zero(t, wait)
	assert.Empty(t, f.mailer.resets)

	wait, err = f.auth.ForgotPassword(ctx, "ada@example.art", "fr")
	require.NoError(t, err)
	assert.Zero(t, wait)
	require.Len(t, f.mailer.resets, 1)

	link, err := url.Parse(f.mailer.resets[0])
	require.NoError(t, err)
	assert.Equal(t, "/fr/reset-password", link.Path)
	token := link.Query().Get("token")
	assert.Len(t, token, 64)

	wait, err = f.auth.ForgotPassword(ctx, "ada@example.art", "fr")
	require.NoError(t, err)
	assert.Positive(t, wait)
	assert.Len(t, f.mailer.resets, 1)

	err = f.auth.ResetPassword(ctx, &models.ResetPasswordRequest{Token: "bogus", NewPassword: "new password"})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	require.NoError(t, f.auth.ResetPassword(ctx, &models.ResetPasswordRequest{Token: token, NewPassword: "new password"}))

	err = f.auth.ResetPassword(ctx, &models.ResetPasswordRequest{Token: token, NewPassword: "other password"})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	_, err = f.auth.Login(ctx, &models.LoginRequest{Email: "ada@example.art", Password: "new password"})
	assert.NoError(t, err)
}

func TestEnsureAdmin(t *testing.T) {
	f := newAuthFixture(t, true)
	register(t, f, "first@example.art")
	member := register(t, f, "bob@example.art")
	ctx := context.Background()

	user, created, err := f.auth.EnsureAdmin(ctx, "bob@example.art", "promoted pass", "Bob")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, member.User.ID, user.ID)
	assert.Equal(t, models.RoleAdmin, user.Role)

	_, err = f.auth.Login(ctx, &models.LoginRequest{Email: "bob@example.art", Password: "promoted pass"})
	assert.NoError(t, err)

	user, created, err = f.auth.EnsureAdmin(ctx, "new@example.art", "brand new pass", "New")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.RoleAdmin, user.Role)
}
