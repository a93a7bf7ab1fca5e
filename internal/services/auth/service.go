package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/ternarybob/arbor"
	"golang.org/x/crypto/bcrypt"

	"github.com/referolabs/refero/internal/common"
	"github.com/referolabs/refero/internal/interfaces"
	"github.com/referolabs/refero/internal/models"
)

// Service handles account registration and token issuance. Tokens are
// HS256 JWTs carrying the username as subject.
type Service struct {
	config *common.AuthConfig
	users  interfaces.UserStorage
	logger arbor.ILogger
}

// NewService creates an auth service. A signing secret is mandatory;
// running without one would make every token forgeable.
func NewService(config *common.AuthConfig, users interfaces.UserStorage, logger arbor.ILogger) (*Service, error) {
	if strings.TrimSpace(config.SecretKey) == "" {
		return nil, &models.ConfigurationError{Reason: "auth.secret_key is required (set REFERO_AUTH_SECRET_KEY or auth.secret_key in config)"}
	}
	return &Service{
		config: config,
		users:  users,
		logger: logger,
	}, nil
}

// Register creates a new account with a bcrypt password hash
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// IssueToken verifies credentials and returns a signed access token
func (s *Service) IssueToken(ctx context.Context, req *models.TokenRequest) (*models.TokenResponse, error) {
	user, err := s.users.Get(ctx, req.Username)
	if err != nil {
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			// Same failure as a bad password, no username probing
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenLifetime)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.logger.Info().Str("username", user.Username).Msg("Access token issued")

	return &models.TokenResponse{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.config.TokenLifetime.Seconds()),
	}, nil
}

// VerifyToken validates a signed token and returns the username
func (s *Service) VerifyToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.config.SecretKey), nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", models.ErrInvalidCredentials
	}
	return claims.Subject, nil
}
