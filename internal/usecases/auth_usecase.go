package usecases

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"backoffice/internal/entities"
	"backoffice/internal/interfaces"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoCompany          = errors.New("user is not linked to a company")
	ErrSessionExpired     = errors.New("session expired")
)

type AuthUsecase struct {
	users     interfaces.UserRepository
	sessions  interfaces.SessionStore
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewAuthUsecase(users interfaces.UserRepository, sessions interfaces.SessionStore, secret string, ttl time.Duration, logger *zap.Logger) *AuthUsecase {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthUsecase{
		users:     users,
		sessions:  sessions,
		jwtSecret: []byte(secret),
		tokenTTL:  ttl,
		now:       time.Now,
		logger:    logger.With(zap.String("component", "auth")),
	}
}

type LoginResult struct {
	User  entities.AuthUser `json:"user"`
	Token string            `json:"token"`
}

// Login checks the stored password (bcrypt hash or legacy plaintext), stores
// the session profile and issues a token.
func (uc *AuthUsecase) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	// Stored emails are matched exactly.
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, entities.NewValidationError("email", "email and password are required")
	}

	user, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		uc.logger.Error("user lookup failed", zap.Error(err))
		return nil, fmt.Errorf("login: %w", err)
	}
	if user == nil || !passwordMatches(user.Password, password) {
		uc.logger.Info("login rejected", zap.String("email", email))
		return nil, ErrInvalidCredentials
	}
	if strings.TrimSpace(user.Company) == "" {
		return nil, ErrNoCompany
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"company": user.Company,
		"level":   user.Level,
		"exp":     uc.now().Add(uc.tokenTTL).Unix(),
	})
	tokenString, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	profile := user.AuthUser
	if err := uc.sessions.Save(ctx, profile); err != nil {
		uc.logger.Error("session save failed", zap.String("user_id", profile.ID), zap.Error(err))
		return nil, fmt.Errorf("login: %w", err)
	}
	uc.logger.Info("login", zap.String("user_id", profile.ID), zap.String("company", profile.Company))
	return &LoginResult{User: profile, Token: tokenString}, nil
}

// Session returns the live profile of userID or ErrSessionExpired.
func (uc *AuthUsecase) Session(ctx context.Context, userID string) (*entities.AuthUser, error) {
	profile, err := uc.sessions.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if profile == nil {
		return nil, ErrSessionExpired
	}
	return profile, nil
}

// Logout clears the profile; every tab holding a token of userID is logged out.
func (uc *AuthUsecase) Logout(ctx context.Context, userID string) error {
	if err := uc.sessions.Clear(ctx, userID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	uc.logger.Info("logout", zap.String("user_id", userID))
	return nil
}

// SessionEvents exposes the session store notifications, e.g. to end streams on logout.
func (uc *AuthUsecase) SessionEvents(ctx context.Context) <-chan entities.SessionEvent {
	return uc.sessions.Subscribe(ctx)
}

func passwordMatches(stored, given string) bool {
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}
