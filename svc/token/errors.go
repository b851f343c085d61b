package token

import "errors"

var (
	ErrUnauthorized    = errors.New("token: could not verify credentials")
	ErrTokenMissing    = errors.New("token: token is missing")
	ErrTokenExpired    = errors.New("token: token is expired")
	ErrTokenInvalid    = errors.New("token: token is invalid")
	ErrTokenNotExpired = errors.New("token: token is not expired")
)
