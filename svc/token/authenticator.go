package token

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Account is what an Authenticator needs to know about a user.
type Account struct {
	ID           int64
	Name         string
	PasswordHash string
}

// AccountLookup finds an account by login (e-mail or user name).
// found is false when there is no such account.
type AccountLookup func(ctx context.Context, login string) (acc Account, found bool, err error)

// Authenticator verifies login credentials.
type Authenticator interface {
	// Authenticate returns the account's identity or ErrUnauthorized.
	Authenticate(ctx context.Context, login, password string) (Identity, error)
}

// dummyHash is compared against when the login is unknown so both paths
// cost one bcrypt comparison.
var dummyHash = mustHash("quill-dummy-password", bcrypt.DefaultCost)

// BcryptAuthenticator checks passwords against bcrypt hashes.
type BcryptAuthenticator struct {
	lookup AccountLookup
}

// NewBcryptAuthenticator returns an authenticator over lookup.
func NewBcryptAuthenticator(lookup AccountLookup) *BcryptAuthenticator {
	return &BcryptAuthenticator{lookup: lookup}
}

func (a *BcryptAuthenticator) Authenticate(ctx context.Context, login, password string) (Identity, error) {
	if login == "" || password == "" {
		return Identity{}, ErrUnauthorized
	}

	acc, found, err := a.lookup(ctx, login)
	if err != nil {
		return Identity{}, fmt.Errorf("token: lookup account: %w", err)
	}
	if !found || acc.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return Identity{}, ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return Identity{}, ErrUnauthorized
	}

	return Identity{UserID: acc.ID, Name: acc.Name}, nil
}

// HashPassword hashes password with bcrypt at the given cost.
// Zero cost means bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", errors.New("token: empty password")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("token: hash password: %w", err)
	}
	return string(hash), nil
}

func mustHash(password string, cost int) []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		panic(err)
	}
	return hash
}
