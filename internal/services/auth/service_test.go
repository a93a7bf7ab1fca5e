package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/referolabs/refero/internal/common"
	"github.com/referolabs/refero/internal/models"
	"github.com/referolabs/refero/internal/storage/badger"
)

func testAuth(t *testing.T) *Service {
	t.Helper()
	manager, err := badger.NewManager(&common.BadgerConfig{Path: t.TempDir()}, common.GetLogger())
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	config := &common.AuthConfig{
		SecretKey:     "test-secret",
		TokenLifetime: 30 * time.Minute,
	}
	service, err := NewService(config, manager.Users(), common.GetLogger())
	require.NoError(t, err)
	return service
}

func TestNewService_RequiresSecret(t *testing.T) {
	config := &common.AuthConfig{SecretKey: "  "}
	_, err := NewService(config, nil, common.GetLogger())
	require.Error(t, err)

	var confErr *models.ConfigurationError
	assert.ErrorAs(t, err, &confErr)
}

func TestRegisterAndIssueToken(t *testing.T) {
	service := testAuth(t)
	ctx := context.Background()

	user, err := service.Register(ctx, &models.RegisterRequest{Username: "amy", Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "amy", user.Username)
	// The raw password never appears in the stored hash
	assert.NotContains(t, user.PasswordHash, "hunter2")

	// Duplicate registration conflicts
	_, err = service.Register(ctx, &models.RegisterRequest{Username: "amy", Password: "other"})
	assert.ErrorIs(t, err, models.ErrUserExists)

	token, err := service.IssueToken(ctx, &models.TokenRequest{Username: "amy", Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", token.TokenType)
	assert.Equal(t, int64(1800), token.ExpiresIn)

	username, err := service.VerifyToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "amy", username)
}

func TestIssueToken_BadCredentials(t *testing.T) {
	service := testAuth(t)
	ctx := context.Background()

	_, err := service.Register(ctx, &models.RegisterRequest{Username: "amy", Password: "hunter2"})
	require.NoError(t, err)

	_, err = service.IssueToken(ctx, &models.TokenRequest{Username: "amy", Password: "wrong"})
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	// Unknown user fails identically to a wrong password
	_, err = service.IssueToken(ctx, &models.TokenRequest{Username: "nobody", Password: "hunter2"})
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestVerifyToken_Tampered(t *testing.T) {
	service := testAuth(t)

	_, err := service.VerifyToken("not-a-token")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	// Token signed with a different secret
	claims := jwt.RegisteredClaims{
		Subject:   "amy",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	_, err = service.VerifyToken(forged)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestVerifyToken_Expired(t *testing.T) {
	service := testAuth(t)

	claims := jwt.RegisteredClaims{
		Subject:   "amy",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = service.VerifyToken(expired)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}
