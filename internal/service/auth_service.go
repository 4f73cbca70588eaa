package service

import (
	"context"
	"errors"
	"regexp"
	"time"

	"shop-service/internal/apperr"
	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/token"
	"shop-service/internal/util"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the persistence surface the auth service needs
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// TokenRevoker invalidates issued tokens until they expire on their own
type TokenRevoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthService handles registration, login and token verification
type AuthService struct {
	store   UserStore
	tokens  *token.Maker
	revoker TokenRevoker
	logger  *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(store UserStore, tokens *token.Maker, revoker TokenRevoker) *AuthService {
	return &AuthService{
		store:   store,
		tokens:  tokens,
		revoker: revoker,
		logger:  util.GetLogger(),
	}
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Register creates a new account and issues a token for it
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, string, error) {
	if len(name) < 2 || len(name) > 50 {
		return nil, "", apperr.InvalidArgument("Name must be between 2 and 50 characters")
	}
	if !emailPattern.MatchString(email) {
		return nil, "", apperr.InvalidArgument("A valid email is required")
	}
	if len(password) < 6 {
		return nil, "", apperr.InvalidArgument("Password must be at least 6 characters")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", apperr.Internal("failed to hash password", err)
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: string(hashed),
		Role:     "user",
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, "", apperr.InvalidArgument("User already exists")
		}
		return nil, "", apperr.Internal("failed to create user", err)
	}

	signed, _, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, "", apperr.Internal("failed to issue token", err)
	}

	util.UsersRegisteredTotal.Inc()
	s.logger.Info("User registered", zap.Int64("user_id", user.ID))
	return user, signed, nil
}

// Login verifies credentials and issues a token. Unknown email and wrong
// password produce the same error so account existence is not leaked.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			util.LoginsTotal.WithLabelValues("failure").Inc()
			return nil, "", apperr.InvalidArgument("Invalid credentials")
		}
		return nil, "", apperr.Internal("failed to look up user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		util.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, "", apperr.InvalidArgument("Invalid credentials")
	}

	signed, _, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, "", apperr.Internal("failed to issue token", err)
	}

	util.LoginsTotal.WithLabelValues("success").Inc()
	return user, signed, nil
}

// Logout revokes the presented token for its remaining lifetime
func (s *AuthService) Logout(ctx context.Context, claims *token.Claims) error {
	ttl := time.Until(time.Unix(claims.ExpiresAt, 0))
	if err := s.revoker.RevokeToken(ctx, claims.Id, ttl); err != nil {
		return apperr.Internal("failed to revoke token", err)
	}
	return nil
}

// Authenticate resolves a bearer credential to its claims, rejecting
// invalid, expired and revoked tokens
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*token.Claims, error) {
	claims, err := s.tokens.Verify(tokenString)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired token")
	}

	revoked, err := s.revoker.IsTokenRevoked(ctx, claims.Id)
	if err != nil {
		return nil, apperr.Internal("failed to check token revocation", err)
	}
	if revoked {
		return nil, apperr.Unauthorized("Token has been revoked")
	}
	return claims, nil
}
