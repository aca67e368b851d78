package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sevaproject/booking-api/internal/models"
	appErrors "github.com/sevaproject/booking-api/pkg/errors"
)

type authRepoMock struct {
	users   map[string]*models.User
	tokens  map[string]*models.RefreshToken
	revoked []string
}

func newAuthRepoMock() *authRepoMock {
	return &authRepoMock{
		users:  make(map[string]*models.User),
		tokens: make(map[string]*models.RefreshToken),
	}
}

func (m *authRepoMock) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *authRepoMock) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *authRepoMock) UpdateLastLogin(_ context.Context, _ string, _ time.Time) error {
	return nil
}

func (m *authRepoMock) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *authRepoMock) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.tokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *authRepoMock) RevokeRefreshToken(_ context.Context, id string, _ time.Time) error {
	m.revoked = append(m.revoked, id)
	for _, t := range m.tokens {
		if t.ID == id {
			t.Revoked = true
		}
	}
	return nil
}

func (m *authRepoMock) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func authTestConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "booking-api-test",
	}
}

func seedAuthUser(t *testing.T, repo *authRepoMock, email, password string, role models.UserRole, active bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		ID:           "user-" + email,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Test User",
		CompanyName:  "Test Co",
		Role:         role,
		Active:       active,
	}
	repo.users[user.ID] = user
	return user
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newAuthRepoMock()
	user := seedAuthUser(t, repo, "client@example.com", "s3cret", models.RoleClient, true)
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "client@example.com",
		Password: "s3cret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.Equal(t, models.RoleClient, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleClient, claims.Role)
	assert.Equal(t, "Test Co", claims.CompanyName)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newAuthRepoMock()
	seedAuthUser(t, repo, "client@example.com", "s3cret", models.RoleClient, true)
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "client@example.com",
		Password: "wrong",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc := NewAuthService(newAuthRepoMock(), nil, nil, authTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "s3cret",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo := newAuthRepoMock()
	seedAuthUser(t, repo, "client@example.com", "s3cret", models.RoleClient, false)
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "client@example.com",
		Password: "s3cret",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrInactiveAccount))
}

func TestAuthServiceLoginValidation(t *testing.T) {
	svc := NewAuthService(newAuthRepoMock(), nil, nil, authTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: "x"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	repo := newAuthRepoMock()
	seedAuthUser(t, repo, "provider@example.com", "s3cret", models.RoleProvider, true)
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "provider@example.com",
		Password: "s3cret",
	})
	require.NoError(t, err)

	resp, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, login.RefreshToken, resp.RefreshToken)

	// The used token is revoked and cannot be replayed.
	_, err = svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceRefreshExpiredToken(t *testing.T) {
	repo := newAuthRepoMock()
	user := seedAuthUser(t, repo, "client@example.com", "s3cret", models.RoleClient, true)
	repo.tokens["stale"] = &models.RefreshToken{
		ID:        "rt-1",
		UserID:    user.ID,
		Token:     "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	_, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceLogout(t *testing.T) {
	repo := newAuthRepoMock()
	user := seedAuthUser(t, repo, "client@example.com", "s3cret", models.RoleClient, true)
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "client@example.com",
		Password: "s3cret",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, user.ID))
	assert.True(t, repo.tokens[login.RefreshToken].Revoked)

	err = svc.Logout(context.Background(), login.RefreshToken, "someone-else")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestAuthServiceValidateTokenRejectsTampering(t *testing.T) {
	repo := newAuthRepoMock()
	seedAuthUser(t, repo, "client@example.com", "s3cret", models.RoleClient, true)
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "client@example.com",
		Password: "s3cret",
	})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret: "different-secret",
		AccessTokenExpiry: time.Minute,
	})
	_, err = other.ValidateToken(login.AccessToken)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.ValidateToken("not.a.token")
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
