package jwt

import "errors"

var (
	ErrMissingToken      = errors.New("jwt: token is missing")
	ErrInvalidToken      = errors.New("jwt: invalid token")
	ErrExpiredToken      = errors.New("jwt: token is expired")
	ErrMissingSigningKey = errors.New("jwt: missing signing key")
	ErrMissingClaims     = errors.New("jwt: missing claims")
	ErrSigningFailed     = errors.New("jwt: failed to sign token")
)
