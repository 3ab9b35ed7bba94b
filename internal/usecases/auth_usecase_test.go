package usecases

import (
	"context"
	"testing"
	"time"

	"backoffice/internal/entities"
	"backoffice/internal/infrastructure"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func newAuth(t *testing.T) (*AuthUsecase, *infrastructure.MemorySessionStore) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	users := &fakeUsers{byEmail: map[string]entities.UserRecord{
		"ana@acme.com": {
			AuthUser: entities.AuthUser{ID: "u-1", Email: "ana@acme.com", Company: "acme", Level: "admin"},
			Password: "plain-pass",
		},
		"bia@acme.com": {
			AuthUser: entities.AuthUser{ID: "u-2", Email: "bia@acme.com", Company: "acme"},
			Password: string(hash),
		},
		"Cris@Acme.com": {
			AuthUser: entities.AuthUser{ID: "u-4", Email: "Cris@Acme.com", Company: "acme"},
			Password: "plain-pass",
		},
		"solo@nowhere.com": {
			AuthUser: entities.AuthUser{ID: "u-3", Email: "solo@nowhere.com"},
			Password: "plain-pass",
		},
	}}
	sessions := infrastructure.NewMemorySessionStore()
	return NewAuthUsecase(users, sessions, testSecret, time.Hour, zap.NewNop()), sessions
}

func TestAuthUsecase_LoginPlaintextAndBcrypt(t *testing.T) {
	auth, sessions := newAuth(t)
	ctx := context.Background()

	res, err := auth.Login(ctx, "  ana@acme.com ", "plain-pass")
	require.NoError(t, err)
	require.Equal(t, "u-1", res.User.ID)

	token, err := jwt.Parse(res.Token, func(*jwt.Token) (any, error) { return []byte(testSecret), nil })
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	require.Equal(t, "u-1", claims["user_id"])
	require.Equal(t, "acme", claims["company"])
	require.Equal(t, "admin", claims["level"])

	stored, err := sessions.Load(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, "acme", stored.Company)

	res, err = auth.Login(ctx, "bia@acme.com", "hashed-pass")
	require.NoError(t, err)
	require.Equal(t, "u-2", res.User.ID)
}

func TestAuthUsecase_LoginRejections(t *testing.T) {
	auth, sessions := newAuth(t)
	ctx := context.Background()

	_, err := auth.Login(ctx, "ana@acme.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(ctx, "bia@acme.com", "plain-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(ctx, "ghost@acme.com", "plain-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(ctx, "solo@nowhere.com", "plain-pass")
	require.ErrorIs(t, err, ErrNoCompany)

	_, err = auth.Login(ctx, "", "x")
	require.True(t, entities.IsValidation(err))

	profile, err := sessions.Load(ctx, "u-3")
	require.NoError(t, err)
	require.Nil(t, profile)
}

func TestAuthUsecase_SessionAndLogout(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()

	_, err := auth.Session(ctx, "u-1")
	require.ErrorIs(t, err, ErrSessionExpired)

	_, err = auth.Login(ctx, "ana@acme.com", "plain-pass")
	require.NoError(t, err)

	profile, err := auth.Session(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, "ana@acme.com", profile.Email)

	events, cancel := context.WithCancel(ctx)
	defer cancel()
	ch := auth.SessionEvents(events)

	require.NoError(t, auth.Logout(ctx, "u-1"))
	evt := <-ch
	require.Equal(t, "u-1", evt.UserID)
	require.Nil(t, evt.Profile)

	_, err = auth.Session(ctx, "u-1")
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestAuthUsecase_LoginMatchesStoredEmailExactly(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()

	res, err := auth.Login(ctx, " Cris@Acme.com ", "plain-pass")
	require.NoError(t, err)
	require.Equal(t, "u-4", res.User.ID)

	_, err = auth.Login(ctx, "cris@acme.com", "plain-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}
