// Package jwt signs and verifies HS256 JSON Web Tokens on top of
// github.com/golang-jwt/jwt/v5 and provides context helpers and request
// token extractors.
//
// Verification checks the signature before any claim, so ErrExpiredToken is
// only returned for tokens this service actually issued.
package jwt

import (
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SigningMethod is the only accepted "alg" header value.
const SigningMethod = "HS256"

// RegisteredClaims are the RFC 7519 registered claims. Embed them in custom
// claim structs.
type RegisteredClaims = gojwt.RegisteredClaims

// Claims is implemented by every claims type, including RegisteredClaims.
type Claims = gojwt.Claims

// NewNumericDate converts t into a claim timestamp (second precision).
func NewNumericDate(t time.Time) *gojwt.NumericDate {
	return gojwt.NewNumericDate(t)
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service handles token generation and validation. It holds no per-token
// state and is safe for concurrent use.
type Service struct {
	signingKey []byte
	now        func() time.Time
}

// New creates a service for the given HMAC key.
func New(signingKey []byte, opts ...Option) (*Service, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}

	s := &Service{signingKey: signingKey, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromString is New for string keys loaded from configuration.
func NewFromString(signingKey string, opts ...Option) (*Service, error) {
	return New([]byte(signingKey), opts...)
}

// Now returns the service clock.
func (s *Service) Now() time.Time {
	return s.now()
}

// Generate signs claims.
func (s *Service) Generate(claims Claims) (string, error) {
	if claims == nil {
		return "", ErrMissingClaims
	}

	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", errors.Join(ErrSigningFailed, err)
	}
	return token, nil
}

// Parse verifies token and decodes it into claims.
//
// It returns ErrMissingToken for an empty string, ErrExpiredToken for a
// correctly signed token past its expiry, and an error wrapping
// ErrInvalidToken for anything else. Tokens without "exp" are invalid.
func (s *Service) Parse(token string, claims Claims) error {
	if token == "" {
		return ErrMissingToken
	}
	if claims == nil {
		return ErrMissingClaims
	}

	_, err := gojwt.ParseWithClaims(token, claims, s.keyFunc,
		gojwt.WithValidMethods([]string{SigningMethod}),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gojwt.ErrTokenExpired):
		return ErrExpiredToken
	default:
		return errors.Join(ErrInvalidToken, err)
	}
}

func (s *Service) keyFunc(*gojwt.Token) (any, error) {
	return s.signingKey, nil
}
