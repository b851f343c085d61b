package jwt_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quill/pkg/jwt"
)

type testClaims struct {
	jwt.RegisteredClaims
	User string `json:"user"`
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNew(t *testing.T) {
	t.Parallel()

	svc, err := jwt.New([]byte("secret"))
	require.NoError(t, err)
	require.NotNil(t, svc)

	_, err = jwt.New(nil)
	assert.ErrorIs(t, err, jwt.ErrMissingSigningKey)

	_, err = jwt.NewFromString("")
	assert.ErrorIs(t, err, jwt.ErrMissingSigningKey)
}

func TestGenerateParse(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc, err := jwt.New([]byte("secret"), jwt.WithClock(fixedClock(now)))
	require.NoError(t, err)

	token, err := svc.Generate(testClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(30 * time.Minute)),
		},
		User: "john",
	})
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	var got testClaims
	require.NoError(t, svc.Parse(token, &got))
	assert.Equal(t, "7", got.Subject)
	assert.Equal(t, "john", got.User)
	assert.True(t, got.ExpiresAt.Equal(now.Add(30*time.Minute)))
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc, err := jwt.New([]byte("secret"), jwt.WithClock(fixedClock(now)))
	require.NoError(t, err)
	other, err := jwt.New([]byte("other-secret"), jwt.WithClock(fixedClock(now)))
	require.NoError(t, err)

	claims := func(exp time.Time) testClaims {
		return testClaims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(exp),
		}}
	}

	expired, err := svc.Generate(claims(now.Add(-time.Minute)))
	require.NoError(t, err)
	foreign, err := other.Generate(claims(now.Add(time.Hour)))
	require.NoError(t, err)
	foreignExpired, err := other.Generate(claims(now.Add(-time.Hour)))
	require.NoError(t, err)
	noExp, err := svc.Generate(testClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}})
	require.NoError(t, err)
	hs512, err := gojwt.NewWithClaims(gojwt.SigningMethodHS512, claims(now.Add(time.Hour))).SignedString([]byte("secret"))
	require.NoError(t, err)
	valid, err := svc.Generate(claims(now.Add(time.Hour)))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "empty", token: "", want: jwt.ErrMissingToken},
		{name: "garbage", token: "not-a-token", want: jwt.ErrInvalidToken},
		{name: "expired", token: expired, want: jwt.ErrExpiredToken},
		{name: "wrong key", token: foreign, want: jwt.ErrInvalidToken},
		{name: "wrong key and expired", token: foreignExpired, want: jwt.ErrInvalidToken},
		{name: "without exp", token: noExp, want: jwt.ErrInvalidToken},
		{name: "other algorithm", token: hs512, want: jwt.ErrInvalidToken},
		{name: "swapped signature", token: swapSignature(valid, expired), want: jwt.ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var c testClaims
			assert.ErrorIs(t, svc.Parse(tt.token, &c), tt.want)
		})
	}
}

// swapSignature keeps the header and payload of a and the signature of b.
func swapSignature(a, b string) string {
	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")
	return pa[0] + "." + pa[1] + "." + pb[2]
}

func TestClockDrivesExpiry(t *testing.T) {
	t.Parallel()

	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	current := issued
	svc, err := jwt.New([]byte("secret"), jwt.WithClock(func() time.Time { return current }))
	require.NoError(t, err)

	token, err := svc.Generate(testClaims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(issued.Add(30 * time.Minute)),
	}})
	require.NoError(t, err)

	var c testClaims
	require.NoError(t, svc.Parse(token, &c))

	current = issued.Add(31 * time.Minute)
	assert.ErrorIs(t, svc.Parse(token, &c), jwt.ErrExpiredToken)
}

func TestExtractors(t *testing.T) {
	t.Parallel()

	t.Run("query", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest("GET", "/posts/?token=abc", nil)
		token, err := jwt.QueryTokenExtractor("token")(r)
		require.NoError(t, err)
		assert.Equal(t, "abc", token)

		_, err = jwt.QueryTokenExtractor("token")(httptest.NewRequest("GET", "/posts/", nil))
		assert.ErrorIs(t, err, jwt.ErrMissingToken)
	})

	t.Run("bearer", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer abc")
		token, err := jwt.BearerTokenExtractor(r)
		require.NoError(t, err)
		assert.Equal(t, "abc", token)

		r.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
		_, err = jwt.BearerTokenExtractor(r)
		assert.ErrorIs(t, err, jwt.ErrMissingToken)
	})

	t.Run("chain", func(t *testing.T) {
		t.Parallel()
		ex := jwt.ChainExtractors(jwt.QueryTokenExtractor("token"), jwt.BearerTokenExtractor)

		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer abc")
		token, err := ex(r)
		require.NoError(t, err)
		assert.Equal(t, "abc", token)

		r = httptest.NewRequest("GET", "/?token=fromquery", nil)
		r.Header.Set("Authorization", "Bearer abc")
		token, err = ex(r)
		require.NoError(t, err)
		assert.Equal(t, "fromquery", token, "query wins")

		_, err = ex(httptest.NewRequest("GET", "/", nil))
		assert.ErrorIs(t, err, jwt.ErrMissingToken)
	})
}
