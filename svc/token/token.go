// Package token issues and verifies the API's signed, time-limited bearer
// tokens.
//
// Tokens are stateless HS256 JWTs. An access token lives 30 minutes. A
// refresh token lives 8 hours and is only issued to a caller presenting
// fresh credentials together with an expired, correctly signed token.
// Tokens cannot be revoked before they expire.
package token

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/dmitrymomot/quill/pkg/jwt"
)

const (
	AccessTTL  = 30 * time.Minute
	RefreshTTL = 8 * time.Hour
)

// Identity is the subject a verified token resolves to.
type Identity struct {
	UserID int64
	Name   string
}

// Claims is the token payload. Access and refresh tokens differ only in
// their expiry.
type Claims struct {
	jwt.RegisteredClaims
	User string `json:"user"`
}

// Service issues and verifies tokens.
type Service struct {
	signer *jwt.Service
	auth   Authenticator
}

// New creates a service. The signer's clock drives issuance and expiry.
func New(signer *jwt.Service, auth Authenticator) *Service {
	return &Service{signer: signer, auth: auth}
}

// IssueAccess verifies the credentials and returns a 30 minute token.
func (s *Service) IssueAccess(ctx context.Context, login, password string) (string, error) {
	id, err := s.auth.Authenticate(ctx, login, password)
	if err != nil {
		return "", err
	}
	return s.issue(id, AccessTTL)
}

// IssueRefresh verifies the credentials, then requires presented to be
// expired but otherwise valid before issuing an 8 hour token.
func (s *Service) IssueRefresh(ctx context.Context, login, password, presented string) (string, error) {
	id, err := s.auth.Authenticate(ctx, login, password)
	if err != nil {
		return "", err
	}

	switch _, err := s.Verify(ctx, presented); {
	case err == nil:
		return "", ErrTokenNotExpired
	case errors.Is(err, ErrTokenExpired):
		return s.issue(id, RefreshTTL)
	default:
		return "", err
	}
}

// Verify checks signature and expiry. It returns ErrTokenMissing,
// ErrTokenExpired or ErrTokenInvalid on failure.
func (s *Service) Verify(_ context.Context, token string) (Identity, error) {
	var claims Claims
	if err := s.signer.Parse(token, &claims); err != nil {
		switch {
		case errors.Is(err, jwt.ErrMissingToken):
			return Identity{}, ErrTokenMissing
		case errors.Is(err, jwt.ErrExpiredToken):
			return Identity{}, ErrTokenExpired
		default:
			return Identity{}, errors.Join(ErrTokenInvalid, err)
		}
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, ErrTokenInvalid
	}

	return Identity{UserID: userID, Name: claims.User}, nil
}

func (s *Service) issue(id Identity, ttl time.Duration) (string, error) {
	now := s.signer.Now()
	return s.signer.Generate(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		User: id.Name,
	})
}
