// Package services holds the business rules. Services sit between the HTTP
// handlers and the repositories: they never see an http.Request and never
// run SQL themselves.
package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/pkg/email"
	"github.com/akinalp/atelier/pkg/i18n"
	"github.com/akinalp/atelier/repository"
)

const (
	bcryptCost = 12

	tokenIssuer = "atelier"

	resetTokenTTL  = 20 * time.Minute
	resetCooldown  = 90 * time.Second
	resetTokenSize = 32
)

// AuthService handles accounts, sessions and password resets.
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthTokens, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthTokens, error)
	RefreshToken(ctx context.Context, refreshToken string) (*models.AuthTokens, error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
	// ChangePassword revokes every session of the user on success.
	ChangePassword(ctx context.Context, userID string, req *models.ChangePasswordRequest) error
	SetLanguage(ctx context.Context, userID, language string) error
	// ForgotPassword returns the seconds left on the resend cooldown, or 0
	// when a reset was issued (or the address is unknown).
	ForgotPassword(ctx context.Context, email, locale string) (int, error)
	ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) error
	// EnsureAdmin creates the account or promotes it to admin and resets its
	// password. Used by the CLI.
	EnsureAdmin(ctx context.Context, email, password, name string) (*models.User, bool, error)
}

// AuthOptions configures the auth service.
type AuthOptions struct {
	JWTSecret         string
	AccessExpiry      time.Duration
	RefreshExpiry     time.Duration
	AllowRegistration bool
	// BaseURL builds the reset link: {BaseURL}/{lang}/reset-password?token=...
	BaseURL string
}

type authService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	resetRepo   repository.PasswordResetRepository
	mailer      email.Sender
	opts        AuthOptions
	jwtSecret   []byte
	now         func() time.Time
}

// NewAuthService creates the auth service.
func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	resetRepo repository.PasswordResetRepository,
	mailer email.Sender,
	opts AuthOptions,
) AuthService {
	return &authService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		resetRepo:   resetRepo,
		mailer:      mailer,
		opts:        opts,
		jwtSecret:   []byte(opts.JWTSecret),
		now:         time.Now,
	}
}

// Register creates an account. The first account ever is the admin; after
// that registration is open only when AllowRegistration is set.
//
// The role and the "registration closed" check are settled by the insert
// itself (UserRepository.CreateBootstrap). Reading the user count first and
// inserting afterwards would let every concurrent signup on a fresh install
// see an empty table and become admin.
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthTokens, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		Language:     i18n.Normalize(req.Language),
	}
	// ErrForbidden when closed, ErrAlreadyExists for a taken email.
	if err := s.userRepo.CreateBootstrap(ctx, user, s.opts.AllowRegistration); err != nil {
		return nil, err
	}

	zap.L().Named("auth").Info("user registered",
		zap.String("user_id", user.ID), zap.String("role", string(user.Role)))

	return s.generateTokens(ctx, user)
}

// Login checks the credentials. An unknown email and a wrong password give
// the same error.
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthTokens, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid email or password", pkg.ErrUnauthorized)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", pkg.ErrUnauthorized)
	}

	return s.generateTokens(ctx, user)
}

// RefreshToken rotates a refresh token: the old session is always deleted.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	session, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid refresh token", pkg.ErrUnauthorized)
		}
		return nil, err
	}

	if err := s.sessionRepo.DeleteByID(ctx, session.ID); err != nil && !errors.Is(err, pkg.ErrNotFound) {
		return nil, fmt.Errorf("failed to delete old session: %w", err)
	}

	if s.now().After(session.ExpiresAt) {
		return nil, fmt.Errorf("%w: refresh token expired", pkg.ErrUnauthorized)
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", pkg.ErrUnauthorized)
		}
		return nil, err
	}

	return s.generateTokens(ctx, user)
}

// Logout deletes the session. An unknown token is not an error.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	session, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil
		}
		return err
	}

	if err := s.sessionRepo.DeleteByID(ctx, session.ID); err != nil && !errors.Is(err, pkg.ErrNotFound) {
		return err
	}
	return nil
}

// ValidateAccessToken verifies the signature and expiry of an access token.
func (s *authService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%w: invalid token claims", pkg.ErrUnauthorized)
	}

	return claims, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID string, req *models.ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return fmt.Errorf("%w: current password is incorrect", pkg.ErrUnauthorized)
	}

	return s.setPassword(ctx, userID, req.NewPassword)
}

func (s *authService) SetLanguage(ctx context.Context, userID, language string) error {
	if !i18n.IsSupported(language) {
		return fmt.Errorf("%w: unsupported language %q", pkg.ErrBadRequest, language)
	}
	return s.userRepo.UpdateLanguage(ctx, userID, language)
}

func (s *authService) ForgotPassword(ctx context.Context, emailAddr, locale string) (int, error) {
	log := zap.L().Named("auth")

	user, err := s.userRepo.GetByEmail(ctx, models.NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	latest, err := s.resetRepo.GetLatestByUserID(ctx, user.ID)
	if err != nil && !errors.Is(err, pkg.ErrNotFound) {
		return 0, err
	}
	if latest != nil {
		if elapsed := s.now().Sub(latest.CreatedAt); elapsed < resetCooldown {
			return int((resetCooldown - elapsed + time.Second - 1) / time.Second), nil
		}
	}

	// One live token per user.
	if err := s.resetRepo.DeleteByUserID(ctx, user.ID); err != nil {
		return 0, err
	}

	plain, err := randomHex(resetTokenSize)
	if err != nil {
		return 0, err
	}
	now := s.now()
	token := &models.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: hashToken(plain),
		ExpiresAt: now.Add(resetTokenTTL),
		CreatedAt: now,
	}
	if err := s.resetRepo.Create(ctx, token); err != nil {
		return 0, err
	}

	if !i18n.IsSupported(locale) {
		locale = user.Language
	}
	link := fmt.Sprintf("%s/%s/reset-password?token=%s", s.opts.BaseURL, i18n.Normalize(locale), url.QueryEscape(plain))
	if err := s.mailer.SendPasswordReset(ctx, user.Email, link, locale); err != nil {
		// The response must not reveal whether the address exists.
		log.Error("failed to send password reset", zap.String("user_id", user.ID), zap.Error(err))
	}

	return 0, nil
}

func (s *authService) ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	token, err := s.resetRepo.GetByTokenHash(ctx, hashToken(req.Token))
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return fmt.Errorf("%w: invalid or expired reset token", pkg.ErrBadRequest)
		}
		return err
	}

	if s.now().After(token.ExpiresAt) {
		_ = s.resetRepo.DeleteByID(ctx, token.ID)
		return fmt.Errorf("%w: invalid or expired reset token", pkg.ErrBadRequest)
	}

	if err := s.setPassword(ctx, token.UserID, req.NewPassword); err != nil {
		return err
	}

	return s.resetRepo.DeleteByUserID(ctx, token.UserID)
}

func (s *authService) EnsureAdmin(ctx context.Context, emailAddr, password, name string) (*models.User, bool, error) {
	req := &models.RegisterRequest{Email: emailAddr, Password: password, Name: name}
	if err := req.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, pkg.ErrNotFound) {
		return nil, false, err
	}

	if user != nil {
		if err := s.userRepo.UpdateRole(ctx, user.ID, models.RoleAdmin); err != nil {
			return nil, false, err
		}
		if err := s.setPassword(ctx, user.ID, req.Password); err != nil {
			return nil, false, err
		}
		user.Role = models.RoleAdmin
		user.PasswordHash = ""
		return user, false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, false, fmt.Errorf("failed to hash password: %w", err)
	}
	user = &models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		Language:     i18n.DefaultLanguage,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, false, err
	}
	user.PasswordHash = ""
	return user, true, nil
}

// ─── Private Helpers ───

// setPassword stores a new hash and signs the user out everywhere.
func (s *authService) setPassword(ctx context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	return s.sessionRepo.DeleteByUserID(ctx, userID)
}

func (s *authService) generateTokens(ctx context.Context, user *models.User) (*models.AuthTokens, error) {
	now := s.now()
	accessClaims := &models.TokenClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.AccessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	accessString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshString, err := randomHex(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: refreshString,
		ExpiresAt:    now.Add(s.opts.RefreshExpiry),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	user.PasswordHash = ""

	return &models.AuthTokens{
		AccessToken:  accessString,
		RefreshToken: refreshString,
		ExpiresIn:    int(s.opts.AccessExpiry / time.Second),
		User:         user,
	}, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
